package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds producer configuration.
type ProducerConfig struct {
	Brokers          []string
	RequiredAcks     int
	Compression      string
	MaxAttempts      int
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	BatchSize        int
	BatchTimeout     time.Duration
	HashByKey        bool
	AutoCreateTopics bool
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression accepts gzip, snappy, lz4, zstd or none.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = compression }
}

// WithRequiredAcks sets required acknowledgements (-1 = all).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) { c.MaxAttempts = n }
}

func WithBatchSize(size int) ProducerOption {
	return func(c *ProducerConfig) { c.BatchSize = size }
}

// WithBatchTimeout bounds how long a partial batch lingers before flushing.
func WithBatchTimeout(timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) { c.BatchTimeout = timeout }
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithHashByKey keeps every message with the same key on one partition.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}

func WithAutoCreateTopics(enabled bool) ProducerOption {
	return func(c *ProducerConfig) { c.AutoCreateTopics = enabled }
}

// Producer publishes JSON documents. Writes are synchronous so a returned nil
// means the broker acknowledged the message.
type Producer struct {
	writer messageWriter
	comp   string
}

// NewProducer builds a kafka.Writer from opts.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    10,
		BatchTimeout: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("brokers are required")
	}
	comp, ok := parseCompression(cfg.Compression)
	if !ok {
		return nil, fmt.Errorf("unsupported compression %q", cfg.Compression)
	}

	var bal kafka.Balancer = &kafka.LeastBytes{}
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               bal,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		MaxAttempts:            cfg.MaxAttempts,
		WriteTimeout:           cfg.WriteTimeout,
		ReadTimeout:            cfg.ReadTimeout,
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: cfg.AutoCreateTopics,
	}
	if comp != 0 {
		w.Compression = comp
	}
	return newProducer(w, strings.ToLower(cfg.Compression)), nil
}

func newProducer(w messageWriter, comp string) *Producer {
	registerProducerMetrics()
	return &Producer{writer: w, comp: comp}
}

// Publish encodes value as JSON unless it is already []byte and writes it to topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value any) error {
	start := time.Now()
	payload, err := encodeValue(value)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   payload,
		Time:    start,
		Headers: []kafka.Header{{Key: "content-type", Value: []byte("application/json")}},
	})
	p.observe(topic, len(payload), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func encodeValue(value any) ([]byte, error) {
	if b, ok := value.([]byte); ok {
		return b, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return b, nil
}

// parseCompression returns 0 for "none".
func parseCompression(s string) (kafka.Compression, bool) {
	switch strings.ToLower(s) {
	case "", "gzip":
		return kafka.Gzip, true
	case "snappy":
		return kafka.Snappy, true
	case "lz4":
		return kafka.Lz4, true
	case "zstd":
		return kafka.Zstd, true
	case "none":
		return 0, true
	default:
		return 0, false
	}
}

var (
	producerMetrics struct {
		messages *prometheus.CounterVec
		bytes    *prometheus.CounterVec
		latency  *prometheus.HistogramVec
	}
	producerMetricsOnce sync.Once
)

func registerProducerMetrics() {
	producerMetricsOnce.Do(func() {
		producerMetrics.messages = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "pillarcast_kafka_producer_messages_total", Help: "Published messages by outcome"},
			[]string{"topic", "result"},
		)
		producerMetrics.bytes = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "pillarcast_kafka_producer_bytes_total", Help: "Published payload bytes"},
			[]string{"topic", "compression"},
		)
		producerMetrics.latency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "pillarcast_kafka_producer_publish_seconds", Help: "Publish latency", Buckets: prometheus.DefBuckets},
			[]string{"topic"},
		)
	})
}

func (p *Producer) observe(topic string, n int, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		producerMetrics.bytes.WithLabelValues(topic, p.comp).Add(float64(n))
	}
	producerMetrics.messages.WithLabelValues(topic, result).Inc()
	producerMetrics.latency.WithLabelValues(topic).Observe(d.Seconds())
}
