package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Publisher is the part of an MQTT client the notifier needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// MQTTClient wraps a paho client connection.
type MQTTClient struct {
	client mqtt.Client
}

// NewMQTTClient connects to the broker.
func NewMQTTClient(cfg MQTTConfig) (*MQTTClient, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &MQTTClient{client: client}, nil
}

// Publish implements Publisher.
func (c *MQTTClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timed out publishing to topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *MQTTClient) Close() error {
	c.client.Disconnect(250)
	return nil
}

// MQTTNotifier publishes notifications as JSON to <prefix>/<user>/<kind>.
type MQTTNotifier struct {
	pub    Publisher
	prefix string
	log    *zap.Logger
}

// NewMQTTNotifier creates a notifier publishing under prefix.
func NewMQTTNotifier(pub Publisher, prefix string, log *zap.Logger) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, prefix: prefix, log: log.Named("mqtt")}
}

// Topic returns the topic a notification is published to.
func (m *MQTTNotifier) Topic(n Notification) string {
	return fmt.Sprintf("%s/%s/%s", m.prefix, n.UserID, n.Kind)
}

func (m *MQTTNotifier) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	topic := m.Topic(n)
	if err := m.pub.Publish(topic, 1, false, payload); err != nil {
		m.log.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	m.log.Debug("notification published", zap.String("topic", topic))
	return nil
}
