package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestInMemoryQueueDelivers(t *testing.T) {
	q := NewInMemoryQueue(3, quietLogger())
	q.Backoff = time.Millisecond

	got := make(chan []byte, 1)
	require.NoError(t, q.Subscribe("jobs", func(body []byte) error {
		got <- body
		return nil
	}))
	require.NoError(t, q.Publish("jobs", []byte(`{"delivery_id":1}`)))

	select {
	case body := <-got:
		assert.JSONEq(t, `{"delivery_id":1}`, string(body))
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestInMemoryQueueRetriesUntilSuccess(t *testing.T) {
	q := NewInMemoryQueue(3, quietLogger())
	q.Backoff = time.Millisecond

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	require.NoError(t, q.Subscribe("jobs", func(body []byte) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}))
	require.NoError(t, q.Publish("jobs", []byte("x")))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never succeeded")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestInMemoryQueueStopsAfterMaxRetries(t *testing.T) {
	q := NewInMemoryQueue(2, quietLogger())
	q.Backoff = time.Millisecond

	var mu sync.Mutex
	attempts := 0
	require.NoError(t, q.Subscribe("jobs", func(body []byte) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("permanent")
	}))
	require.NoError(t, q.Publish("jobs", []byte("x")))

	// First attempt plus two retries, then the job is dropped.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 3
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestPublishWithoutSubscribersFails(t *testing.T) {
	q := NewInMemoryQueue(1, quietLogger())
	assert.Error(t, q.Publish("nobody-listens", []byte("x")))
}
