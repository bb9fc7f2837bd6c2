package notification

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamPublisher は JetStream へ発行する Publisher です。
type JetStreamPublisher struct {
	js jetstream.JetStream
}

// NewJetStreamPublisher は JetStreamPublisher を生成します。
func NewJetStreamPublisher(js jetstream.JetStream) *JetStreamPublisher {
	return &JetStreamPublisher{js: js}
}

// Publish は JetStream の ack を待って発行します。
func (p *JetStreamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("notification: publish %s: %w", subject, err)
	}
	return nil
}

// Connect は NATS に接続し、subjectPrefix 配下を受け持つストリームを用意します。
func Connect(ctx context.Context, url, stream, subjectPrefix string) (*nats.Conn, jetstream.JetStream, error) {
	conn, err := nats.Connect(url, nats.Name("ems-evaluation"))
	if err != nil {
		return nil, nil, fmt.Errorf("notification: connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("notification: create JetStream context: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: []string{subjectPrefix + ".>"},
	}); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("notification: ensure stream %s: %w", stream, err)
	}

	return conn, js, nil
}
