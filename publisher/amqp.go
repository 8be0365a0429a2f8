package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/acme/batchworker/logging"
	"github.com/acme/batchworker/retry"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig configures an AMQPPublisher.
type AMQPConfig struct {
	BootstrapServers string // AMQP broker URL
	Topic            string // durable topic exchange name
	ConsumerGroup    string // durable queue declared and bound to Topic; not consumed here
	TimeoutMs        int
	RetryConfig      retry.Config
	Logger           logging.Logger
}

// AMQPPublisher publishes completion events over AMQP, declaring a durable
// topic exchange and publishing persistent, JSON-encoded messages with the
// routing key set to the event type.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	config   AMQPConfig
	sequence atomic.Int64
}

// NewAMQPPublisher dials the broker named by config.BootstrapServers,
// declares the topic exchange, and, when config.ConsumerGroup is set,
// declares it as a durable queue bound to the exchange. Nothing in this
// module consumes from that queue.
func NewAMQPPublisher(config AMQPConfig) (*AMQPPublisher, error) {
	conn, err := dial(config.BootstrapServers)
	if err != nil {
		return nil, fmt.Errorf("dialing amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(config.Topic, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", config.Topic, err)
	}

	if config.ConsumerGroup != "" {
		if _, err := ch.QueueDeclare(config.ConsumerGroup, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declaring queue %s: %w", config.ConsumerGroup, err)
		}
		if err := ch.QueueBind(config.ConsumerGroup, "#", config.Topic, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("binding queue %s to %s: %w", config.ConsumerGroup, config.Topic, err)
		}
	}

	return &AMQPPublisher{conn: conn, ch: ch, config: config}, nil
}

func dial(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for attempt := 0; attempt < 10; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		time.Sleep(time.Duration(1+attempt) * time.Second)
	}
	return nil, err
}

// PublishCompleted publishes a CompletedEvent to the configured exchange
// with the routing key set to eventType.
func (p *AMQPPublisher) PublishCompleted(ctx context.Context, workerID, fileID, eventType string, totalRows int64) error {
	event := CompletedEvent{
		WorkerID:      workerID,
		FileID:        fileID,
		EventType:     eventType,
		CompletedAt:   time.Now().UTC(),
		TotalRows:     totalRows,
		CorrelationID: fmt.Sprintf("%s:%s:%d", workerID, fileID, p.sequence.Add(1)),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding completion event: %w", err)
	}

	return retry.Do(ctx, p.config.RetryConfig, func(ctx context.Context) error {
		err := p.ch.PublishWithContext(ctx, p.config.Topic, eventType, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("publishing completion event for %s/%s: %w", workerID, fileID, err)
		}
		if p.config.Logger != nil {
			p.config.Logger.Info(ctx, "published completion event", "workerId", workerID, "fileId", fileID, "correlationId", event.CorrelationID)
		}
		return nil
	})
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	chErr := p.ch.Close()
	connErr := p.conn.Close()
	if chErr != nil {
		return chErr
	}
	return connErr
}
