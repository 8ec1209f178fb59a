package ordernumber

import (
	"errors"
	"fmt"
	"time"
)

// Channel identifies where an order was entered.
type Channel string

const (
	// ChannelAdmin covers orders keyed in by back-office staff.
	ChannelAdmin Channel = "admin"
	// ChannelSalesRep covers orders entered by a field sales representative.
	ChannelSalesRep Channel = "sales-rep"
	// ChannelCustomerPortal covers self-service orders.
	ChannelCustomerPortal Channel = "customer-portal"
)

// Channels lists every supported channel.
var Channels = []Channel{ChannelAdmin, ChannelSalesRep, ChannelCustomerPortal}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelAdmin, ChannelSalesRep, ChannelCustomerPortal:
		return true
	}
	return false
}

// dateLayout is the partition date format, also embedded in order numbers.
const dateLayout = "20060102"

// ErrorKind enumerates the caller errors Generate can report.
type ErrorKind int

const (
	// KindInvalidChannel marks an unrecognised channel.
	KindInvalidChannel ErrorKind = iota + 1
	// KindMissingActor marks a sales-rep request without an actor id.
	KindMissingActor
)

var (
	// ErrInvalidChannel indicates an unknown order channel.
	ErrInvalidChannel = errors.New("ordernumber: invalid channel")
	// ErrMissingActor indicates a sales-rep order without an actor id.
	ErrMissingActor = errors.New("ordernumber: sales-rep channel requires an actor id")
)

// ChannelError is returned for rejected generate requests. It never implies a
// counter was touched.
type ChannelError struct {
	Kind    ErrorKind
	Channel Channel
}

func (e *ChannelError) Error() string {
	switch e.Kind {
	case KindMissingActor:
		return ErrMissingActor.Error()
	default:
		return fmt.Sprintf("%s %q", ErrInvalidChannel.Error(), string(e.Channel))
	}
}

// Is lets errors.Is match the package sentinels.
func (e *ChannelError) Is(target error) bool {
	switch e.Kind {
	case KindInvalidChannel:
		return target == ErrInvalidChannel
	case KindMissingActor:
		return target == ErrMissingActor
	}
	return false
}

// KeyFor derives the counter partition key for a request.
func KeyFor(channel Channel, actorID string, at time.Time) (string, error) {
	if err := checkRequest(channel, actorID); err != nil {
		return "", err
	}
	date := at.UTC().Format(dateLayout)
	switch channel {
	case ChannelSalesRep:
		return "rep:" + actorID + ":" + date, nil
	case ChannelCustomerPortal:
		return "portal:" + date, nil
	default:
		return "admin:" + date, nil
	}
}

// Prefix returns the human-readable order number prefix for a channel.
func Prefix(channel Channel, actorID string) (string, error) {
	if err := checkRequest(channel, actorID); err != nil {
		return "", err
	}
	switch channel {
	case ChannelSalesRep:
		return "SRP-" + actorSuffix(actorID), nil
	case ChannelCustomerPortal:
		return "CPO", nil
	default:
		return "ADM", nil
	}
}

// Format renders an order number. seq is padded to three digits and never
// truncated.
func Format(prefix string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%03d", prefix, at.UTC().Format(dateLayout), seq)
}

func checkRequest(channel Channel, actorID string) error {
	if !channel.Valid() {
		return &ChannelError{Kind: KindInvalidChannel, Channel: channel}
	}
	if channel == ChannelSalesRep && actorID == "" {
		return &ChannelError{Kind: KindMissingActor, Channel: channel}
	}
	return nil
}

func actorSuffix(actorID string) string {
	runes := []rune(actorID)
	if len(runes) <= 4 {
		return actorID
	}
	return string(runes[len(runes)-4:])
}
