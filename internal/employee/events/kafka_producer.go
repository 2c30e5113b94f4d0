package events

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gartstein/empleados/internal/employee/metrics"
	"github.com/gartstein/empleados/internal/employee/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	EmployeeCreated EventType = "employee_created"
	EmployeeUpdated EventType = "employee_updated"
)

const queueSize = 1000

type Event struct {
	Type     EventType        `json:"type"`
	Employee *models.Employee `json:"employee"`
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	metrics   *metrics.Metrics
	closeChan chan struct{}
}

// NewProducer creates topic on the first broker when it does not exist yet
// and starts the delivery loop.
func NewProducer(brokers []string, topic string, logger *zap.Logger, m *metrics.Metrics) (*Producer, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}
	p := newProducer(writer, queueSize, logger, m)
	go p.eventLoop()
	return p, nil
}

func newProducer(writer KafkaWriter, size int, logger *zap.Logger, m *metrics.Metrics) *Producer {
	return &Producer{
		writer:    writer,
		events:    make(chan Event, size),
		logger:    logger.Named("kafka_producer"),
		metrics:   m,
		closeChan: make(chan struct{}),
	}
}

// Produce queues an event without blocking. When the queue is full the
// event is dropped and a warning logged.
func (p *Producer) Produce(eventType EventType, employee *models.Employee) {
	snapshot := *employee
	select {
	case p.events <- Event{Type: eventType, Employee: &snapshot}:
	default:
		p.metrics.CountEvent(string(eventType), "dropped")
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.Int64("employee_id", employee.ID),
		)
	}
}

func (p *Producer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.metrics.CountEvent(string(event.Type), "failed")
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.Int64("employee_id", event.Employee.ID),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.Employee.ID, 10)),
		Value: value,
	})
	if err != nil {
		p.metrics.CountEvent(string(event.Type), "failed")
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.Int64("employee_id", event.Employee.ID),
		)
		return
	}
	p.metrics.CountEvent(string(event.Type), "sent")
}

// Close stops the delivery loop and closes the writer. Events still queued
// are discarded.
func (p *Producer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// NopProducer discards every event. It is used when no brokers are configured.
type NopProducer struct{}

func (NopProducer) Produce(EventType, *models.Employee) {}

func (NopProducer) Close() {}
