package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Queue is the dispatch layer: at-least-once delivery with bounded retries.
// Payloads are opaque JSON bodies so the in-memory and AMQP implementations
// behave identically.
type Queue interface {
	Publish(topic string, body []byte) error
	Subscribe(topic string, handler func(body []byte) error) error
}

// DeliveryJob is the payload for one post-delivery execution.
type DeliveryJob struct {
	DeliveryID int `json:"delivery_id"`
}

// InMemoryQueue runs handlers in-process. Used in tests and single-binary
// deployments without a broker.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]func(body []byte) error
	MaxRetries int
	Backoff    time.Duration
	Logger     *logrus.Logger
}

func NewInMemoryQueue(maxRetries int, logger *logrus.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(body []byte) error),
		MaxRetries: maxRetries,
		Backoff:    500 * time.Millisecond,
		Logger:     logger,
	}
}

// Publish hands the body to every subscriber of the topic, each on its own
// goroutine so one slow job never blocks another.
func (q *InMemoryQueue) Publish(topic string, body []byte) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		go q.process(topic, handler, body)
	}
	return nil
}

func (q *InMemoryQueue) process(topic string, handler func([]byte) error, body []byte) {
	for attempt := 0; ; attempt++ {
		err := handler(body)
		if err == nil {
			return
		}

		if attempt >= q.MaxRetries {
			q.Logger.WithFields(logrus.Fields{
				"topic":    topic,
				"attempts": attempt + 1,
			}).WithError(err).Error("job permanently failed")
			return
		}

		q.Logger.WithFields(logrus.Fields{
			"topic":   topic,
			"attempt": attempt + 1,
		}).WithError(err).Warn("job failed, retrying")

		time.Sleep(time.Duration(attempt+1) * q.Backoff)
	}
}

// Subscribe registers a handler for a topic.
func (q *InMemoryQueue) Subscribe(topic string, handler func(body []byte) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}
