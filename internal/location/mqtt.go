package location

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// fixMessage is the wire format published by the tracker device (or the
// simulator) on the fix topic.
type fixMessage struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Speed    float64 `json:"speed"`
	Accuracy float64 `json:"accuracy"`
	TS       int64   `json:"ts"` // unix seconds; 0 means "use receive time"
}

// MQTTSource implements Source over an MQTT subscription. The tracker on the
// owner's phone publishes fixes continuously; the source retains the latest
// one and forwards new fixes to the tracking callback while recording.
type MQTTSource struct {
	client mqtt.Client
	topic  string

	mu      sync.Mutex
	last    *Fix
	onFix   func(Fix)
	waiters []chan Fix
}

// NewMQTTSource connects to the broker and subscribes to the fix topic.
func NewMQTTSource(broker, clientID, topic string) (*MQTTSource, error) {
	s := &MQTTSource{topic: topic}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	opts.OnConnect = func(c mqtt.Client) {
		if token := c.Subscribe(topic, 1, s.handleMessage); token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).WithField("topic", topic).Error("Failed to subscribe to fix topic")
		}
	}

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect error: %w", token.Error())
	}
	return s, nil
}

func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var m fixMessage
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		log.WithError(err).Debug("Dropping malformed fix message")
		return
	}
	ts := time.Now()
	if m.TS > 0 {
		ts = time.Unix(m.TS, 0)
	}
	s.Deliver(Fix{
		Lat:       m.Lat,
		Lon:       m.Lon,
		Speed:     m.Speed,
		Accuracy:  m.Accuracy,
		Timestamp: ts,
	})
}

// Deliver records a fix as the current position and fans it out to the
// tracking callback and any pending one-shot requests.
func (s *MQTTSource) Deliver(fix Fix) {
	s.mu.Lock()
	f := fix
	s.last = &f
	onFix := s.onFix
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	if onFix != nil {
		onFix(fix)
	}
	for _, w := range waiters {
		w <- fix
	}
}

// CurrentFix returns the most recent fix seen, or nil if none yet.
func (s *MQTTSource) CurrentFix() *Fix {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	f := *s.last
	return &f
}

// RequestFix waits for the next published fix, failing with
// ErrPositionUnavailable when ctx expires first.
func (s *MQTTSource) RequestFix(ctx context.Context) (Fix, error) {
	ch := make(chan Fix, 1)
	s.mu.Lock()
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	select {
	case fix := <-ch:
		return fix, nil
	case <-ctx.Done():
		s.mu.Lock()
		for i, w := range s.waiters {
			if w == ch {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		return Fix{}, ErrPositionUnavailable
	}
}

// StartUpdates begins forwarding every incoming fix to fn.
func (s *MQTTSource) StartUpdates(fn func(Fix)) {
	s.mu.Lock()
	s.onFix = fn
	s.mu.Unlock()
}

// StopUpdates stops forwarding fixes.
func (s *MQTTSource) StopUpdates() {
	s.mu.Lock()
	s.onFix = nil
	s.mu.Unlock()
}

// Authorization maps broker connectivity onto the position authorization
// states: a live subscription can track in the background, a connecting
// client is still undetermined, anything else is effectively denied.
func (s *MQTTSource) Authorization() Authorization {
	switch {
	case s.client.IsConnected():
		return AuthorizationAlways
	case s.client.IsConnectionOpen():
		return AuthorizationNotDetermined
	default:
		return AuthorizationDenied
	}
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() {
	s.client.Disconnect(250)
}
