package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message was processed and its
// offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	reader  *kafka.Reader
	workers int
	topic   string
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			GroupID:        group,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0, // manual commit
		}),
		workers: workers,
		topic:   topic,
	}
}

// Start reads until ctx is cancelled, fanning messages out to the worker
// pool. Offsets are committed per message after the handler succeeds, so
// redelivery is at-least-once. Start only returns once every worker has
// finished its in-flight message.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.reader.Close()

	jobs := make(chan kafka.Message, 1024)
	errs := make(chan error, c.workers)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.work(ctx, jobs, errs, h)
		}()
	}

	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			close(jobs)
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil
		}
		c.drainErrors(errs)
	}
}

func (c *Consumer) work(ctx context.Context, jobs <-chan kafka.Message, errs chan<- error, h Handler) {
	for m := range jobs {
		if err := h(ctx, m); err != nil {
			errs <- err
			continue
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			errs <- err
		}
	}
}

// drainErrors logs without blocking the read loop; the short pause keeps a
// persistently failing handler from spinning.
func (c *Consumer) drainErrors(errs <-chan error) {
	select {
	case err := <-errs:
		slog.Error("consumer worker error", "topic", c.topic, "err", err)
		time.Sleep(200 * time.Millisecond)
	default:
	}
}
