package realtime

import (
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/v3/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pimalab/pimadash/internal/chart"
	"github.com/pimalab/pimadash/internal/dashboard"
)

func waitForCondition(t *testing.T, timeout time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestHubRegistersAndBroadcasts(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:  hub,
		conn: &testConn{},
		send: make(chan []byte, 1),
	}

	hub.register <- client
	waitForCondition(t, time.Second, func() bool { return hub.GetClientCount() == 1 })

	msg := []byte("hello")
	hub.Broadcast(msg)

	select {
	case got := <-client.send:
		assert.Equal(t, msg, got)
	case <-time.After(time.Second):
		t.Fatal("did not receive broadcast message")
	}

	hub.unregister <- client
	waitForCondition(t, time.Second, func() bool { return hub.GetClientCount() == 0 })
}

func TestHubBroadcastDropsSlowClient(t *testing.T) {
	hub := NewHub()
	client := &Client{
		hub:  hub,
		conn: &testConn{},
		send: make(chan []byte), // unbuffered -> backpressure
	}

	hub.register <- client
	waitForCondition(t, time.Second, func() bool { return hub.GetClientCount() == 1 })

	hub.Broadcast([]byte("msg"))

	waitForCondition(t, time.Second, func() bool { return hub.GetClientCount() == 0 })

	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	default:
		t.Fatal("client channel not closed for slow consumer")
	}
}

func TestReadPumpSignalsUnregister(t *testing.T) {
	unregister := make(chan *Client, 1)
	client := &Client{
		hub: &Hub{
			unregister: unregister,
		},
		conn: &testConn{
			readMessages: []readCall{{err: io.EOF}},
		},
		send: make(chan []byte, 1),
	}

	client.readPump()

	select {
	case got := <-unregister:
		assert.Equal(t, client, got)
	default:
		t.Fatal("client was not unregistered")
	}
}

type manualTicker struct {
	ch         chan time.Time
	stopCalled bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time, 1)}
}

func (t *manualTicker) C() <-chan time.Time {
	return t.ch
}

func (t *manualTicker) Stop() {
	t.stopCalled = true
}

func TestWritePumpSendsMessagesAndPings(t *testing.T) {
	manual := newManualTicker()
	originalFactory := pingTickerFactory
	pingTickerFactory = func() pingTicker { return manual }
	t.Cleanup(func() {
		pingTickerFactory = originalFactory
	})

	conn := &testConn{}
	client := &Client{
		hub:  &Hub{},
		conn: conn,
		send: make(chan []byte, 1),
	}

	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()

	// Deliver normal message
	client.send <- []byte("payload")

	waitForCondition(t, time.Second, func() bool { return conn.GetWriteMessageCount() >= 1 })
	assert.Equal(t, websocket.TextMessage, conn.GetWriteMessage(0).messageType)
	assert.Equal(t, []byte("payload"), conn.GetWriteMessage(0).payload)

	// Trigger ping via manual ticker
	manual.ch <- time.Now()
	waitForCondition(t, time.Second, func() bool { return conn.GetWriteMessageCount() >= 2 })
	assert.Equal(t, websocket.PingMessage, conn.GetWriteMessage(1).messageType)

	// Close send channel to exit
	close(client.send)
	waitForCondition(t, time.Second, func() bool { return conn.GetCloseCalls() >= 1 })

	<-done
	assert.True(t, manual.stopCalled)
}

type fakeSession struct {
	mu      sync.Mutex
	events  []dashboard.Event
	touches int
}

func (s *fakeSession) Apply(ev dashboard.Event) (dashboard.Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if ev.Value == "" {
		return dashboard.Update{}, false
	}
	return dashboard.Update{
		Widget: "histogram",
		Figure: chart.Figure{Kind: chart.KindHistogram, Title: "Histogram - " + ev.Value},
	}, true
}

func (s *fakeSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touches++
}

func (s *fakeSession) touchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touches
}

func TestReadPumpAppliesEventsAndRepliesWithFigures(t *testing.T) {
	hub := &Hub{
		unregister: make(chan *Client, 1),
		direct:     make(chan delivery, 8),
	}
	sess := &fakeSession{}
	client := &Client{
		hub:     hub,
		session: sess,
		conn: &testConn{
			readMessages: []readCall{
				{messageType: websocket.TextMessage, payload: []byte(`{"selector":"histogram-x","value":"BMI"}`)},
				{messageType: websocket.TextMessage, payload: []byte(`{"selector":"histogram-x","value":""}`)},
				{messageType: websocket.TextMessage, payload: []byte(`not json`)},
			},
		},
		send: make(chan []byte, 1),
	}

	client.readPump()

	assert.Len(t, sess.events, 2, "malformed payload never reaches the session")
	require.Len(t, hub.direct, 2, "no-op selection sends nothing")

	var figure Message
	d := <-hub.direct
	assert.Same(t, client, d.client)
	require.NoError(t, json.Unmarshal(d.payload, &figure))
	assert.Equal(t, MessageFigure, figure.Type)
	assert.Equal(t, "histogram", figure.Widget)
	require.NotNil(t, figure.Figure)
	assert.Equal(t, "Histogram - BMI", figure.Figure.Title)

	var failure Message
	d = <-hub.direct
	require.NoError(t, json.Unmarshal(d.payload, &failure))
	assert.Equal(t, MessageError, failure.Type)

	select {
	case got := <-hub.unregister:
		assert.Equal(t, client, got)
	default:
		t.Fatal("client was not unregistered")
	}
}

func TestHubDirectDeliveryOnlyReachesRegisteredClient(t *testing.T) {
	hub := NewHub()
	a := &Client{hub: hub, conn: &testConn{}, send: make(chan []byte, 1)}
	b := &Client{hub: hub, conn: &testConn{}, send: make(chan []byte, 1)}

	hub.register <- a
	hub.register <- b
	waitForCondition(t, time.Second, func() bool { return hub.GetClientCount() == 2 })

	hub.direct <- delivery{client: a, payload: []byte("only-a")}

	select {
	case got := <-a.send:
		assert.Equal(t, []byte("only-a"), got)
	case <-time.After(time.Second):
		t.Fatal("direct message not delivered")
	}
	assert.Empty(t, b.send)
}

func TestHubShutdownNotifiesClients(t *testing.T) {
	hub := NewHub()
	client := &Client{hub: hub, conn: &testConn{}, send: make(chan []byte, 1)}

	hub.register <- client
	waitForCondition(t, time.Second, func() bool { return hub.GetClientCount() == 1 })

	hub.Shutdown()
	assert.Equal(t, 0, hub.GetClientCount())

	payload, ok := <-client.send
	require.True(t, ok)
	assert.JSONEq(t, `{"type":"shutdown"}`, string(payload))
	_, ok = <-client.send
	assert.False(t, ok, "send queue closed after the shutdown notice")

	late := &Client{hub: hub, conn: &testConn{}, send: make(chan []byte, 1)}
	hub.register <- late
	_, ok = <-late.send
	assert.False(t, ok, "clients arriving after shutdown are turned away")
}

func TestWritePumpPingKeepsSessionAlive(t *testing.T) {
	manual := newManualTicker()
	originalFactory := pingTickerFactory
	pingTickerFactory = func() pingTicker { return manual }
	t.Cleanup(func() {
		pingTickerFactory = originalFactory
	})

	sess := &fakeSession{}
	conn := &testConn{}
	client := &Client{hub: &Hub{}, conn: conn, session: sess, send: make(chan []byte, 1)}

	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()

	manual.ch <- time.Now()
	waitForCondition(t, time.Second, func() bool { return sess.touchCount() == 1 })

	close(client.send)
	<-done
}
