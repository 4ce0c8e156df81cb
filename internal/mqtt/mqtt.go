// Package mqtt publishes identification events to an MQTT broker.
package mqtt

import (
	"context"
	"time"
)

// Publisher is what the web layer needs from the MQTT client.
type Publisher interface {
	Connect(ctx context.Context) error
	PublishEvent(ctx context.Context, event *EventDTO) error
	IsConnected() bool
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string // topic identification events go to
	Retain            bool
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable timeouts
func DefaultConfig() Config {
	return Config{
		ClientID:          "petalnet-go",
		Topic:             "petalnet/identifications",
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}
