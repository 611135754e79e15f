package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer is an async writer shared by every outbound topic; messages
// carry their own topic. Publishes are fire-and-forget: delivery errors
// are logged in the writer loop, never surfaced to callers.
type Producer struct {
	w         *kafka.Writer
	inbox     chan kafka.Message
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeCh   chan struct{}
}

func NewProducer(brokers []string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the writer loop until the inbox is closed; remaining messages
// are flushed before the underlying writer shuts down.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.Close()
				for m := range p.inbox {
					p.write(m)
				}
				_ = p.w.Close()
				close(p.closeCh)
				return
			case m, ok := <-p.inbox:
				if !ok {
					_ = p.w.Close()
					close(p.closeCh)
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		slog.Error("kafka write failed", "topic", m.Topic, "err", err)
	}
}

// Publish never blocks and never panics: after Close, or when the inbox
// is full, the message is dropped and logged.
func (p *Producer) Publish(topic string, key, value []byte) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		slog.Warn("publish after close dropped", "topic", topic)
		return
	}
	select {
	case p.inbox <- kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
		Time:  time.Now(),
	}:
	default:
		slog.Warn("producer inbox full, message dropped", "topic", topic)
	}
}

// Close the inbox so the loop flushes remaining messages and exits.
func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.inbox)
	})
}

// WaitClosed blocks until the loop has drained.
func (p *Producer) WaitClosed() { <-p.closeCh }
