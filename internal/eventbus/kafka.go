package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"fundraiser/internal/domain"
)

const kafkaQueueSize = 256

// KafkaConfig selects the brokers and topic events are written to.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues events and writes them to Kafka from a background
// loop, keyed by fundraiser id so a ledger's events stay ordered within a
// partition. A full queue drops the event and logs it.
type KafkaPublisher struct {
	topic  string
	log    zerolog.Logger
	writer messageWriter
	queue  chan kafka.Message

	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	dropped   atomic.Int64
}

var errPublisherNilWriter = errors.New("eventbus: kafka writer is required")

// NewKafkaPublisher builds a publisher over a hash-balanced kafka.Writer.
func NewKafkaPublisher(cfg KafkaConfig, logger zerolog.Logger) (*KafkaPublisher, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("eventbus: kafka topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("eventbus: at least one kafka broker is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
	}
	return newKafkaPublisher(cfg.Topic, logger, w)
}

func newKafkaPublisher(topic string, logger zerolog.Logger, w messageWriter) (*KafkaPublisher, error) {
	if w == nil {
		return nil, errPublisherNilWriter
	}
	return &KafkaPublisher{
		topic:  topic,
		log:    logger.With().Str("component", "kafka_publisher").Str("topic", topic).Logger(),
		writer: w,
		queue:  make(chan kafka.Message, kafkaQueueSize),
	}, nil
}

// Start launches the delivery loop. It is safe to call more than once. The
// loop keeps ctx's values but not its cancellation and runs until Stop.
func (p *KafkaPublisher) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.runCtx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
		p.started.Store(true)
		p.wg.Add(1)
		go p.run()
		p.log.Info().Msg("kafka publisher started")
	})
}

// Stop drains queued events, then closes the writer.
func (p *KafkaPublisher) Stop(ctx context.Context) error {
	var stopErr error
	p.stopOnce.Do(func() {
		p.started.Store(false)
		if p.cancel != nil {
			p.cancel()
		}
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = ctx.Err()
		}
		if err := p.writer.Close(); err != nil {
			p.log.Error().Err(err).Msg("kafka writer close failed")
		}
		p.log.Info().Int64("dropped", p.dropped.Load()).Msg("kafka publisher stopped")
	})
	return stopErr
}

// Publish enqueues ev without blocking the ledger.
func (p *KafkaPublisher) Publish(_ context.Context, ev domain.Event) {
	if !p.started.Load() {
		p.drop(ev, "not started")
		return
	}
	value, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Str("event_id", ev.ID.String()).Msg("encode event failed")
		return
	}
	msg := kafka.Message{
		Key:   []byte(ev.FundraiserID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
		},
	}
	select {
	case p.queue <- msg:
	default:
		p.drop(ev, "queue full")
	}
}

// Dropped reports how many events were discarded.
func (p *KafkaPublisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *KafkaPublisher) drop(ev domain.Event, reason string) {
	p.dropped.Add(1)
	p.log.Warn().
		Str("event_id", ev.ID.String()).
		Str("fundraiser_id", ev.FundraiserID.String()).
		Str("reason", reason).
		Msg("event dropped")
}

func (p *KafkaPublisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.runCtx.Done():
			p.drain()
			return
		case msg := <-p.queue:
			p.deliver(p.runCtx, msg)
		}
	}
}

func (p *KafkaPublisher) drain() {
	for {
		select {
		case msg := <-p.queue:
			// The run context is already cancelled.
			p.deliver(context.Background(), msg)
		default:
			return
		}
	}
}

func (p *KafkaPublisher) deliver(ctx context.Context, msg kafka.Message) {
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error().Err(err).Str("key", string(msg.Key)).Msg("kafka write failed")
	}
}
