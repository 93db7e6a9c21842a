// Package mqtt publishes reservation lifecycle events to an MQTT broker
// for external consumers (display panels, delivery gateways).
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/service"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Publisher pushes ReservationEvent payloads onto a single topic at
// QoS 1. It implements service.EventPublisher.
type Publisher struct {
	client pahomqtt.Client
	topic  string
	logger *zap.Logger
}

// Options configures the broker connection.
type Options struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Username string
	Password string
	Topic    string
}

// NewPublisher connects to the broker. Auto-reconnect is on; events
// published while disconnected are dropped by the fire-and-forget
// publish path, which is acceptable for this feed.
func NewPublisher(opts Options, logger *zap.Logger) (*Publisher, error) {
	clientOpts := pahomqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(func(pahomqtt.Client) {
			logger.Info("Connected to MQTT broker", zap.String("broker", opts.Broker))
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.Warn("Lost MQTT broker connection", zap.Error(err))
		})
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	client := pahomqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", opts.Broker, err)
	}

	return &Publisher{client: client, topic: opts.Topic, logger: logger}, nil
}

var _ service.EventPublisher = (*Publisher)(nil)

// PublishReservationEvent serializes the event and publishes it at QoS 1.
func (p *Publisher) PublishReservationEvent(evt service.ReservationEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal reservation event: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish to %s timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published reservation event",
		zap.String("topic", p.topic),
		zap.String("type", string(evt.Type)),
	)
	return nil
}

// Close disconnects from the broker, waiting briefly for in-flight
// messages.
func (p *Publisher) Close() {
	p.client.Disconnect(uint(publishTimeout / time.Millisecond))
}
