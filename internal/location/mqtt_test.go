package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeMessage struct {
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return "drive/fixes" }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestHandleMessage_ParsesFix(t *testing.T) {
	s := &MQTTSource{}
	s.handleMessage(nil, &fakeMessage{payload: []byte(`{"lat":40.7,"lon":-74.0,"speed":12.5,"accuracy":5,"ts":1700000000}`)})

	fix := s.CurrentFix()
	if fix == nil {
		t.Fatal("expected a current fix after message")
	}
	assert.Equal(t, 40.7, fix.Lat)
	assert.Equal(t, -74.0, fix.Lon)
	assert.Equal(t, 12.5, fix.Speed)
	assert.Equal(t, time.Unix(1700000000, 0), fix.Timestamp)
}

func TestHandleMessage_MalformedPayloadIgnored(t *testing.T) {
	s := &MQTTSource{}
	s.handleMessage(nil, &fakeMessage{payload: []byte(`not json`)})
	assert.Nil(t, s.CurrentFix())
}

func TestDeliver_ForwardsToTrackingCallback(t *testing.T) {
	s := &MQTTSource{}
	var got []Fix
	s.StartUpdates(func(f Fix) { got = append(got, f) })

	s.Deliver(Fix{Lat: 1, Lon: 2, Timestamp: time.Now()})
	s.Deliver(Fix{Lat: 3, Lon: 4, Timestamp: time.Now()})
	s.StopUpdates()
	s.Deliver(Fix{Lat: 5, Lon: 6, Timestamp: time.Now()})

	assert.Len(t, got, 2)
	assert.Equal(t, 3.0, got[1].Lat)
}

func TestRequestFix_ReceivesNextFix(t *testing.T) {
	s := &MQTTSource{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		fix, err := s.RequestFix(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 9.0, fix.Lat)
	}()

	// Give the requester time to register its waiter.
	time.Sleep(20 * time.Millisecond)
	s.Deliver(Fix{Lat: 9, Timestamp: time.Now()})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("request did not complete")
	}
}

func TestRequestFix_Timeout(t *testing.T) {
	s := &MQTTSource{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.RequestFix(ctx)
	assert.ErrorIs(t, err, ErrPositionUnavailable)
}

func TestFix_Age(t *testing.T) {
	now := time.Now()
	fix := Fix{Timestamp: now.Add(-30 * time.Second)}
	assert.Equal(t, 30*time.Second, fix.Age(now))
}
