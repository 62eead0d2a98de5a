// Package telemetry publishes lifecycle and occupancy events to an
// MQTT broker. It is optional and off by default.
package telemetry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/mcnap-project/mcnap/internal/config"
	"github.com/mcnap-project/mcnap/internal/events"
	"github.com/mcnap-project/mcnap/internal/util"
)

// MQTT topics
const (
	TopicLifecycle = "mcnap/lifecycle"
	TopicOccupancy = "mcnap/occupancy"
)

// Publisher forwards bus events to an MQTT broker. Publishing is
// best-effort: a dead broker degrades to warnings, never into the
// activation lifecycle.
type Publisher struct {
	cfg    config.TelemetryConfig
	bus    *events.Bus
	client mqtt.Client

	// Host metadata included in every message.
	sysInfo util.SystemInfo
}

// NewPublisher creates an MQTT publisher from the telemetry config.
func NewPublisher(cfg config.TelemetryConfig, bus *events.Bus) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("telemetry is disabled")
	}

	p := &Publisher{
		cfg:     cfg,
		bus:     bus,
		sysInfo: util.GetSystemInfo(),
	}

	opts := mqtt.NewClientOptions()
	scheme := "tcp"
	if cfg.UseTLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.BrokerURL, cfg.Port))

	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("mcnap-%s", p.sysInfo.Hostname))
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(false)

	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	p.client = mqtt.NewClient(opts)

	return p, nil
}

// Start connects to the broker and relays events until the context is
// cancelled.
func (p *Publisher) Start(ctx context.Context) error {
	log.Info().
		Str("broker", p.cfg.BrokerURL).
		Int("port", p.cfg.Port).
		Msg("connecting to MQTT broker")

	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect failed: %w", token.Error())
	}

	p.subscribeEvents()

	<-ctx.Done()

	p.publish(TopicLifecycle, map[string]interface{}{"event": string(events.EventShutdown)})
	p.client.Disconnect(5000)
	log.Info().Msg("MQTT disconnected")

	return nil
}

func (p *Publisher) subscribeEvents() {
	lifecycle := []events.EventType{
		events.EventActivation,
		events.EventServerStarting,
		events.EventServerActive,
		events.EventServerStopping,
		events.EventServerStopped,
	}
	for _, t := range lifecycle {
		t := t
		p.bus.Subscribe(t, "mqtt."+string(t), func(ctx context.Context, e events.Event) error {
			p.publish(TopicLifecycle, map[string]interface{}{
				"event":   string(e.Type),
				"payload": e.Payload,
			})
			return nil
		})
	}

	p.bus.Subscribe(events.EventOccupancy, "mqtt.occupancy", func(ctx context.Context, e events.Event) error {
		p.publish(TopicOccupancy, e.Payload)
		return nil
	})
}

// publish sends a JSON message to an MQTT topic.
func (p *Publisher) publish(topic string, payload interface{}) {
	if !p.client.IsConnected() {
		return
	}

	msg := map[string]interface{}{
		"host":      p.sysInfo,
		"payload":   payload,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to marshal MQTT message")
		return
	}

	token := p.client.Publish(topic, 1, false, data) // QoS 1
	go func() {
		token.Wait()
		if token.Error() != nil {
			log.Warn().Err(token.Error()).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}
