// Package pubsub announces completed scrapes on a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
)

// Config selects the project and topic.
type Config struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Attributed payloads contribute message attributes alongside the JSON body.
type Attributed interface {
	Attributes() map[string]string
}

type publishFunc func(ctx context.Context, topic string, msg *pubsub.Message) (string, error)

// Publisher publishes JSON payloads through a Pub/Sub client.
type Publisher struct {
	publish publishFunc
	close   func() error
}

// New connects a client for cfg.ProjectID.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("pubsub.project_id is required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client. Topics are resolved lazily per publish.
func NewWithClient(client *pubsub.Client) *Publisher {
	var mu sync.Mutex
	topics := map[string]*pubsub.Topic{}
	return &Publisher{
		publish: func(ctx context.Context, topic string, msg *pubsub.Message) (string, error) {
			mu.Lock()
			t, ok := topics[topic]
			if !ok {
				t = client.Topic(topic)
				topics[topic] = t
			}
			mu.Unlock()
			return t.Publish(ctx, msg).Get(ctx)
		},
		close: func() error {
			mu.Lock()
			defer mu.Unlock()
			for _, t := range topics {
				t.Stop()
			}
			return client.Close()
		},
	}
}

// Publish marshals payload to JSON and blocks until the server acknowledges it.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p == nil || p.publish == nil {
		return "", errors.New("pubsub publisher is not configured")
	}
	if topic == "" {
		return "", errors.New("topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	msg := &pubsub.Message{Data: data}
	if a, ok := payload.(Attributed); ok {
		msg.Attributes = a.Attributes()
	}
	id, err := p.publish(ctx, topic, msg)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	return id, nil
}

// Close flushes topics and closes the client.
func (p *Publisher) Close() error {
	if p == nil || p.close == nil {
		return nil
	}
	return p.close()
}
