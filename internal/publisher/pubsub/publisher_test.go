package pubsub

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	RunID string `json:"runId"`
}

func (e event) Attributes() map[string]string { return map[string]string{"run_id": e.RunID} }

func TestPublishMarshalsPayloadAndAttributes(t *testing.T) {
	t.Parallel()

	var gotTopic string
	var got *pubsub.Message
	p := &Publisher{publish: func(_ context.Context, topic string, msg *pubsub.Message) (string, error) {
		gotTopic, got = topic, msg
		return "msg-1", nil
	}}

	id, err := p.Publish(context.Background(), "scrapes", event{RunID: "r-1"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "scrapes", gotTopic)
	assert.JSONEq(t, `{"runId":"r-1"}`, string(got.Data))
	assert.Equal(t, map[string]string{"run_id": "r-1"}, got.Attributes)
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	var nilPub *Publisher
	_, err := nilPub.Publish(context.Background(), "t", nil)
	assert.Error(t, err)

	p := &Publisher{publish: func(context.Context, string, *pubsub.Message) (string, error) {
		return "", errors.New("unavailable")
	}}
	_, err = p.Publish(context.Background(), "", "x")
	assert.ErrorContains(t, err, "topic is required")

	_, err = p.Publish(context.Background(), "t", map[string]any{"bad": make(chan int)})
	assert.ErrorContains(t, err, "marshal payload")

	_, err = p.Publish(context.Background(), "t", "x")
	assert.ErrorContains(t, err, "unavailable")

	assert.NoError(t, p.Close())
}

func TestNewRequiresProject(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{TopicName: "t"})
	assert.ErrorContains(t, err, "project_id")
}
