// Package status publishes encoder events to an MQTT broker so other stations
// and dashboards can follow what is on the air.
package status

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hacksstv/config"
	"hacksstv/encoder"
)

// lineEvery throttles progress messages to one per this many lines.
const lineEvery = 16

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint)
}

// Payload is the JSON document published for every event.
type Payload struct {
	Job       string `json:"job"`
	Event     string `json:"event"`
	Mode      string `json:"mode"`
	Line      int    `json:"line"`
	Lines     int    `json:"lines"`
	Pending   int    `json:"pending"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher is an encoder.Listener that forwards events to a topic. The last
// message is retained so late subscribers see the current state.
type Publisher struct {
	client Client
	topic  string
}

func New(client Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// Connect dials the broker in cfg and returns a Publisher for cfg.Topic.
func Connect(cfg config.MQTT) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID + "_" + uuid.NewString()[:8])
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		client.Disconnect(0)
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return New(client, cfg.Topic), nil
}

// Observe is an encoder.Listener. It never blocks on the network.
func (p *Publisher) Observe(ev encoder.Event) {
	if ev.Kind == encoder.EventLine && ev.Line%lineEvery != 0 && ev.Line != ev.Lines {
		return
	}

	msg := Payload{
		Job:       ev.Job.String(),
		Event:     ev.Kind.String(),
		Mode:      ev.Protocol.String(),
		Line:      ev.Line,
		Lines:     ev.Lines,
		Pending:   ev.Pending,
		Timestamp: ev.Time.Unix(),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("mqtt payload")
		return
	}

	token := p.client.Publish(p.topic, 0, true, data)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("topic", p.topic).Msg("mqtt publish failed")
		}
	default:
	}
}

// Close disconnects from the broker after letting in-flight messages go out.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
