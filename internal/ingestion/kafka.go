package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Kafka defaults.
const (
	DefaultKafkaWorkers = 8
	kafkaPollTimeout    = 100 * time.Millisecond
)

// MessageHandler processes one raw message. *Processor implements it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, source string, data []byte) error
}

// messageReader is the part of *kafka.Consumer the consumer loop uses.
type messageReader interface {
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
	Close() error
}

// KafkaConsumerOptions configures KafkaConsumer.
type KafkaConsumerOptions struct {
	Brokers []string
	GroupID string
	Topic   string
	Workers int // bounds in-flight messages
	Handler MessageHandler
	Logger  *zap.Logger
}

// KafkaConsumer feeds trade messages from a topic into a bounded worker pool.
type KafkaConsumer struct {
	reader  messageReader
	handler MessageHandler
	workers int
	logger  *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool // claimed by the first of Start or Stop
	done    chan struct{}
}

// NewKafkaConsumer connects to the brokers and subscribes to the topic.
func NewKafkaConsumer(opts KafkaConsumerOptions) (*KafkaConsumer, error) {
	if len(opts.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers")
	}
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":       strings.Join(opts.Brokers, ","),
		"group.id":                opts.GroupID,
		"auto.offset.reset":       "latest",
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
		"session.timeout.ms":      10000,
		"heartbeat.interval.ms":   3000,
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	if err := consumer.SubscribeTopics([]string{opts.Topic}, nil); err != nil {
		consumer.Close()
		return nil, fmt.Errorf("subscribe %s: %w", opts.Topic, err)
	}
	return newKafkaConsumer(consumer, opts), nil
}

func newKafkaConsumer(reader messageReader, opts KafkaConsumerOptions) *KafkaConsumer {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultKafkaWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaConsumer{
		reader:  reader,
		handler: opts.Handler,
		workers: workers,
		logger:  logger.Named("kafka"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start polls the topic until Stop. It blocks. Start after Stop returns at once.
func (c *KafkaConsumer) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	defer close(c.done)

	jobs := make(chan []byte)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for data := range jobs {
				if err := c.handler.HandleMessage(c.ctx, "kafka", data); err != nil {
					c.logger.Error("message failed", zap.Error(err))
				}
			}
		}()
	}

	c.logger.Info("kafka consumer started", zap.Int("workers", c.workers))
	c.poll(jobs)
	close(jobs)
	wg.Wait()
	c.logger.Info("kafka consumer stopped")
}

func (c *KafkaConsumer) poll(jobs chan<- []byte) {
	for {
		if c.ctx.Err() != nil {
			return
		}
		msg, err := c.reader.ReadMessage(kafkaPollTimeout)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
				continue
			}
			c.logger.Warn("kafka read error", zap.Error(err))
			select {
			case <-time.After(kafkaPollTimeout):
			case <-c.ctx.Done():
			}
			continue
		}
		select {
		case jobs <- msg.Value:
		case <-c.ctx.Done():
			return
		}
	}
}

// Stop cancels in-flight work, waits for Start to return and closes the consumer.
func (c *KafkaConsumer) Stop() {
	c.cancel()
	if c.started.CompareAndSwap(false, true) {
		close(c.done)
	}
	<-c.done
	if err := c.reader.Close(); err != nil {
		c.logger.Warn("close kafka consumer", zap.Error(err))
	}
}
