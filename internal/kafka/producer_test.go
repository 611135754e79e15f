package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerPublishAfterCloseIsDropped(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4)
	p.Close()

	require.NotPanics(t, func() {
		p.Publish("order-created", []byte("k"), []byte("v"))
	})
}

func TestProducerCloseIsIdempotent(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4)
	require.NotPanics(t, func() {
		p.Close()
		p.Close()
	})
}

func TestProducerPublishNeverBlocksOnFullInbox(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1)

	p.Publish("order-created", []byte("k1"), []byte("v1"))
	p.Publish("order-created", []byte("k2"), []byte("v2")) // dropped, not blocked

	assert.Len(t, p.inbox, 1)
}
