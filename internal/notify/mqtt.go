package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

const publishTimeout = 2 * time.Second

// MQTTPublisher sends alerts to a plain MQTT broker, reconnecting on its own.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string

	mu        sync.RWMutex
	connected bool
}

// NewMQTTPublisher connects to broker ("host:port" or a full URL) and waits up to 5s for the first connection.
func NewMQTTPublisher(broker, clientID, topic string) (*MQTTPublisher, error) {
	p := &MQTTPublisher{topic: topic}

	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		p.setConnected(true)
		log.Printf("MQTTPublisher: connected to %s as %s", broker, clientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.setConnected(false)
		log.Printf("MQTTPublisher: connection lost, will auto-reconnect: %v", err)
	}

	p.client = mqtt.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("NewMQTTPublisher: connection timeout to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("NewMQTTPublisher: %w", err)
	}
	p.setConnected(true)
	return p, nil
}

func (p *MQTTPublisher) PublishAlert(ctx context.Context, alert domain.Alert) error {
	if !p.isConnected() {
		return fmt.Errorf("MQTTPublisher.PublishAlert: not connected")
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("MQTTPublisher.PublishAlert: marshal: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("MQTTPublisher.PublishAlert: publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTTPublisher.PublishAlert: %w", err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *MQTTPublisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}
