package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	pkgmqtt "hydrolink-monitor/pkg/mqtt"

	"go.uber.org/zap"
)

// SubscriberConfig describes the broker connection and topic layout.
// Devices publish under <prefix>/devices/<id>/<kind>.
type SubscriberConfig struct {
	ClientConfig *pkgmqtt.Config
	TopicPrefix  string
	QoS          byte
}

// Subscriber wires MQTT telemetry into the processor.
type Subscriber struct {
	cfg       *SubscriberConfig
	client    *pkgmqtt.Client
	processor *Processor
	log       *zap.Logger

	mu            sync.Mutex
	started       bool
	subscriptions []string
}

func NewSubscriber(cfg *SubscriberConfig, processor *Processor, log *zap.Logger) (*Subscriber, error) {
	if cfg == nil || cfg.ClientConfig == nil {
		return nil, errors.New("mqtt subscriber config is not configured")
	}
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Subscriber{
		cfg:       cfg,
		client:    pkgmqtt.NewClient(cfg.ClientConfig),
		processor: processor,
		log:       log,
	}, nil
}

// Client exposes the underlying connection for firmware-bound
// publishes.
func (s *Subscriber) Client() *pkgmqtt.Client {
	return s.client
}

// Start establishes the MQTT connection and subscribes to the
// telemetry topics.
func (s *Subscriber) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	subs := []struct {
		kind    string
		handler pkgmqtt.MessageHandler
	}{
		{kind: "status", handler: s.handleStatus},
		{kind: "sensorData", handler: s.handleSensorData},
		{kind: "refillHistory", handler: s.handleRefillEvent},
	}

	for _, sub := range subs {
		topic := fmt.Sprintf("%s/devices/+/%s", s.cfg.TopicPrefix, sub.kind)
		if err := s.client.Subscribe(topic, s.cfg.QoS, sub.handler); err != nil {
			s.client.Disconnect()
			return fmt.Errorf("subscribe failed for topic %s: %w", topic, err)
		}
		s.subscriptions = append(s.subscriptions, topic)
		s.log.Info("listening for telemetry", zap.String("topic", topic))
	}

	s.started = true
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if len(s.subscriptions) > 0 {
		if err := s.client.Unsubscribe(s.subscriptions...); err != nil {
			s.log.Warn("failed to unsubscribe from telemetry topics", zap.Error(err))
		}
	}

	s.client.Disconnect()
	s.started = false
	s.subscriptions = nil
}

func (s *Subscriber) handleStatus(topic string, payload []byte) {
	deviceID, ok := deviceIDFromTopic(topic)
	if !ok {
		s.log.Warn("unexpected status topic", zap.String("topic", topic))
		return
	}

	// A cleared retained message arrives as an empty payload. Firmware
	// clears its status topic on factory reset.
	if len(payload) == 0 || string(payload) == "null" {
		s.processor.EnqueueStatusRemoval(deviceID)
		return
	}

	msg, err := ParseStatus(payload)
	if err != nil {
		s.log.Warn("invalid status payload", zap.String("device_id", deviceID), zap.Error(err))
		return
	}

	s.processor.EnqueueStatus(deviceID, msg)
}

func (s *Subscriber) handleSensorData(topic string, payload []byte) {
	deviceID, ok := deviceIDFromTopic(topic)
	if !ok {
		s.log.Warn("unexpected sensor topic", zap.String("topic", topic))
		return
	}

	msg, err := ParseSensorData(payload)
	if err != nil {
		s.log.Warn("invalid sensor payload", zap.String("device_id", deviceID), zap.Error(err))
		return
	}

	s.processor.EnqueueSensorData(deviceID, msg)
}

func (s *Subscriber) handleRefillEvent(topic string, payload []byte) {
	deviceID, ok := deviceIDFromTopic(topic)
	if !ok {
		s.log.Warn("unexpected refill topic", zap.String("topic", topic))
		return
	}

	msg, err := ParseRefillEvent(payload)
	if err != nil {
		s.log.Warn("invalid refill payload", zap.String("device_id", deviceID), zap.Error(err))
		return
	}
	if msg.ID == "" {
		s.log.Warn("refill event missing id", zap.String("device_id", deviceID))
		return
	}

	s.processor.EnqueueRefillEvent(deviceID, msg)
}

// deviceIDFromTopic extracts the device segment from
// <prefix>/devices/<id>/<kind>.
func deviceIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	for i, part := range parts {
		if part == "devices" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], true
		}
	}
	return "", false
}
