package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id, err := pub.Publish(context.Background(), "scrapes", map[string]string{"runId": "r-1"})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)

	id, err = pub.Publish(context.Background(), "scrapes", "second")
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[1].Payload)

	msgs[0].Topic = "changed"
	assert.Equal(t, "scrapes", pub.Messages()[0].Topic)
}

func TestPublisherFailNext(t *testing.T) {
	t.Parallel()

	pub := New()
	pub.FailNext(assert.AnError)
	_, err := pub.Publish(context.Background(), "scrapes", "x")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, pub.Messages())

	_, err = pub.Publish(context.Background(), "scrapes", "x")
	assert.NoError(t, err)
}
