package sink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/mudra/internal/collect"
)

// MQTTConfig configures the take summary publisher.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
	Timeout  time.Duration
}

// publisher is the subset of mqtt.Client the publisher needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes finalized take summaries as JSON.
type MQTTPublisher struct {
	client  publisher
	conn    mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
}

// TakeMessage is the published payload.
type TakeMessage struct {
	Take        collect.Take `json:"take"`
	Log         string       `json:"log"`
	PublishedAt int64        `json:"published_at"`
}

// NewMQTTPublisher connects to cfg.Broker.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("mudra-%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.OnConnect = func(mqtt.Client) {
		slog.Info("mqtt connected", slog.String("broker", cfg.Broker))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("mqtt connection lost", slog.Any("error", err))
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	p := newMQTTPublisher(client, cfg)
	p.conn = client
	return p, nil
}

func newMQTTPublisher(client publisher, cfg MQTTConfig) *MQTTPublisher {
	if cfg.Topic == "" {
		cfg.Topic = "mudra/takes"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &MQTTPublisher{
		client:  client,
		topic:   cfg.Topic,
		qos:     cfg.QoS,
		timeout: cfg.Timeout,
	}
}

// PublishTake sends take to "<topic>/<gesture>", or to the bare topic when
// the take has no gesture.
func (p *MQTTPublisher) PublishTake(take collect.Take) error {
	data, err := json.Marshal(TakeMessage{
		Take:        take,
		Log:         take.LogLine(),
		PublishedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	topic := p.topic
	if take.Gesture != "" {
		topic += "/" + take.Gesture
	}

	token := p.client.Publish(topic, p.qos, false, data)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p.conn != nil {
		p.conn.Disconnect(250)
	}
}
