package location

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// mqttFix is the wire format published by the device on the GPS topic.
type mqttFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SpeedMPH  float64 `json:"speed_mph"`
	Timestamp int64   `json:"timestamp"`
}

// MQTTProvider receives position fixes from a device publishing to an MQTT
// topic. Message handler errors are logged and the stream continues; a bad
// payload never disables future sampling.
type MQTTProvider struct {
	client mqtt.Client
	topic  string
	perms  Permissions

	mu   sync.Mutex
	last *Sample
	subs map[*subscription]struct{}
}

// NewMQTTProvider connects to the broker and subscribes to the GPS topic.
func NewMQTTProvider(brokerURL, topic, clientID string, perms Permissions) (*MQTTProvider, error) {
	p := &MQTTProvider{
		topic: topic,
		perms: perms,
		subs:  make(map[*subscription]struct{}),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true)

	p.client = mqtt.NewClient(opts)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	if token := p.client.Subscribe(topic, 1, p.handleMessage); token.Wait() && token.Error() != nil {
		p.client.Disconnect(250)
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}

	log.Infof("[Location] subscribed to MQTT topic %s", topic)
	return p, nil
}

func (p *MQTTProvider) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var fix mqttFix
	if err := json.Unmarshal(msg.Payload(), &fix); err != nil {
		log.Errorf("[Location] dropping malformed fix on %s: %v", msg.Topic(), err)
		return
	}

	sample := Sample{SpeedMPH: fix.SpeedMPH}
	sample.Coordinate.Latitude = fix.Latitude
	sample.Coordinate.Longitude = fix.Longitude
	sample.Coordinate.Timestamp = fix.Timestamp

	p.mu.Lock()
	p.last = &sample
	subs := make([]*subscription, 0, len(p.subs))
	for s := range p.subs {
		subs = append(subs, s)
	}
	p.mu.Unlock()

	for _, s := range subs {
		s.deliver(sample)
	}
}

// Current implements Provider.
func (p *MQTTProvider) Current(ctx context.Context) (Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Sample{}, ErrNoFix
	}
	return *p.last, nil
}

// Subscribe implements Provider.
func (p *MQTTProvider) Subscribe() (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := newSubscription(64, func(s *subscription) {
		p.mu.Lock()
		delete(p.subs, s)
		p.mu.Unlock()
	})
	p.subs[sub] = struct{}{}
	return sub, nil
}

// Permissions implements Provider.
func (p *MQTTProvider) Permissions() Permissions {
	return p.perms
}

// Close unsubscribes and disconnects from the broker.
func (p *MQTTProvider) Close() {
	p.client.Unsubscribe(p.topic)
	p.client.Disconnect(250)
}
