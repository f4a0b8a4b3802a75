// Package mqtt publishes the center of pressure to an MQTT topic.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/okian/balanceboard/internal/adapters/sink"
	"github.com/okian/balanceboard/internal/domain/cop"
	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/pkg/logger"
	"github.com/okian/balanceboard/pkg/metrics"
)

// Defaults.
const (
	DefaultBroker         = "tcp://localhost:1883"
	DefaultTopic          = "balanceboard/cop"
	DefaultClientIDPrefix = "balanceboard-"

	connectTimeout    = 10 * time.Second
	publishTimeout    = 2 * time.Second
	disconnectQuiesce = 250 // ms

	name = "mqtt"
)

// Message is the JSON payload published for each new sample.
type Message struct {
	Seq   uint64    `json:"seq"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
	FL    int       `json:"fl"`
	FR    int       `json:"fr"`
	BL    int       `json:"bl"`
	BR    int       `json:"br"`
	Total int       `json:"total"`
	TS    time.Time `json:"ts"`
}

// NewMessage builds the payload for snap.
func NewMessage(snap model.Snapshot) Message {
	return Message{
		Seq:   snap.Seq,
		X:     snap.CoP.X,
		Y:     snap.CoP.Y,
		FL:    snap.Sample.FL,
		FR:    snap.Sample.FR,
		BL:    snap.Sample.BL,
		BR:    snap.Sample.BR,
		Total: cop.Total(snap.Sample),
		TS:    snap.At,
	}
}

// Publisher is the part of the paho client the sink uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Config holds broker connection settings.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
}

// Sink publishes each new snapshot once.
type Sink struct {
	client  Publisher
	topic   string
	timeout time.Duration
	lastSeq uint64
	closer  func()
	logger  logger.Logger
}

// Dial connects to the broker and returns a sink publishing to cfg.Topic.
func Dial(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.Broker == "" {
		return nil, ErrNoBroker
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientIDPrefix + uuid.NewString()
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	client := paho.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: %s: timed out", ErrConnect, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Broker, err)
	}

	s := New(client, cfg.Topic)
	s.closer = func() { client.Disconnect(disconnectQuiesce) }
	s.logger.Info(ctx, "connected to broker",
		logger.String("broker", cfg.Broker),
		logger.String("topic", cfg.Topic),
		logger.String("client_id", cfg.ClientID),
	)
	return s, nil
}

// New creates a sink over an existing client.
func New(client Publisher, topic string) *Sink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Sink{
		client:  client,
		topic:   topic,
		timeout: publishTimeout,
		logger:  logger.Get().Named("mqtt"),
	}
}

// Name implements sink.Sink.
func (s *Sink) Name() string { return name }

// Poll implements sink.Sink. Only snapshots with a new sequence number are
// published.
func (s *Sink) Poll(_ context.Context, src sink.Source) error {
	snap, ok := src.Snapshot()
	if !ok || snap.Seq == s.lastSeq {
		return sink.ErrSkipped
	}

	b, err := json.Marshal(NewMessage(snap))
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	token := s.client.Publish(s.topic, 0, false, b)
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("%w: seq %d", ErrPublishTimeout, snap.Seq)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish seq %d: %w", snap.Seq, err)
	}

	s.lastSeq = snap.Seq
	metrics.RecordSinkPublish(name)
	return nil
}

// Close disconnects a client created by Dial.
func (s *Sink) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}
