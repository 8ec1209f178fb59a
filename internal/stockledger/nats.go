package stockledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// DefaultDriftSubject is the NATS subject drift events are published on.
const DefaultDriftSubject = "stock.drift"

type natsConn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publishes drift events as JSON on a NATS subject.
type NATSPublisher struct {
	conn    natsConn
	subject string
	closeFn func()
}

// NewNATSPublisher connects to url. An empty subject uses DefaultDriftSubject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("orderdesk"))
	if err != nil {
		return nil, fmt.Errorf("stockledger: connect nats: %w", err)
	}
	p := newNATSPublisher(conn, subject)
	p.closeFn = conn.Close
	return p, nil
}

func newNATSPublisher(conn natsConn, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultDriftSubject
	}
	return &NATSPublisher{conn: conn, subject: subject}
}

// PublishDrift implements DriftPublisher.
func (p *NATSPublisher) PublishDrift(_ context.Context, evt DriftEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, body); err != nil {
		return fmt.Errorf("stockledger: publish drift: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (p *NATSPublisher) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}
