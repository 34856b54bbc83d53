package queue

import (
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// AMQPQueue backs the Queue interface with RabbitMQ. Jobs are durable and
// acked manually; failed jobs are requeued until x-retry-count exceeds
// MaxRetries.
type AMQPQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	MaxRetries int
	Logger     *logrus.Logger
}

func DialAMQP(url string, maxRetries int, logger *logrus.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, ch: ch, MaxRetries: maxRetries, Logger: logger}, nil
}

func (q *AMQPQueue) Close() {
	q.ch.Close()
	q.conn.Close()
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(topic, true, false, false, false, nil)
}

func (q *AMQPQueue) Publish(topic string, body []byte) error {
	queue, err := q.declare(topic)
	if err != nil {
		return err
	}
	return q.ch.Publish("", queue.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (q *AMQPQueue) Subscribe(topic string, handler func(body []byte) error) error {
	queue, err := q.declare(topic)
	if err != nil {
		return err
	}

	msgs, err := q.ch.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			if err := handler(d.Body); err != nil {
				retries := retryCount(d.Headers)
				if retries < q.MaxRetries {
					q.Logger.WithFields(logrus.Fields{
						"topic": topic,
						"retry": retries + 1,
					}).WithError(err).Warn("job failed, requeueing")
					q.republish(queue.Name, d.Body, retries+1)
				} else {
					q.Logger.WithField("topic", topic).
						WithError(err).Error("job permanently failed")
				}
			}
			d.Ack(false)
		}
	}()
	return nil
}

// republish re-enqueues the body with a bumped retry header. A plain Nack
// would loop forever without the counter.
func (q *AMQPQueue) republish(name string, body []byte, retries int) {
	err := q.ch.Publish("", name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{"x-retry-count": int32(retries)},
		Body:         body,
	})
	if err != nil {
		q.Logger.WithError(err).Error("failed to requeue job")
	}
}

func retryCount(headers amqp.Table) int {
	switch v := headers["x-retry-count"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
