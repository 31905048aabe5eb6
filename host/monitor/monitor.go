// Package monitor publishes controller status over MQTT for remote
// dashboards.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"goels/core"
)

// StatusSource is anything that can produce a status snapshot. The
// motion controller satisfies it.
type StatusSource interface {
	Snapshot() core.Status
}

// Config describes the broker connection and publish cadence.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
	Period   time.Duration
}

// Publisher pushes JSON status snapshots to a broker.
type Publisher struct {
	cfg    Config
	client mqtt.Client
	source StatusSource
}

// New connects to the broker.
func New(cfg Config, source StatusSource) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &Publisher{cfg: cfg, client: client, source: source}, nil
}

// Run publishes snapshots at the configured period until the context is
// cancelled. Publish failures are logged and retried on the next tick;
// losing a status sample never disturbs the controller.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.client.Disconnect(250)
			return
		case <-ticker.C:
			p.publishOnce()
		}
	}
}

func (p *Publisher) publishOnce() {
	payload, err := json.Marshal(p.source.Snapshot())
	if err != nil {
		log.Printf("monitor: marshal status: %v", err)
		return
	}
	token := p.client.Publish(p.cfg.Topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		log.Printf("monitor: publish: %v", token.Error())
	}
}
