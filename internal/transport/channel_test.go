package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talkio/internal/events"
	"talkio/internal/transport"
	"talkio/pkg/logger"
)

// echoServer upgrades connections, records every inbound envelope and
// lets the test push envelopes back to the client.
type echoServer struct {
	t  *testing.T
	mu sync.Mutex

	srv      *httptest.Server
	conn     *websocket.Conn
	received []events.Envelope
}

func newEchoServer(t *testing.T) *echoServer {
	t.Helper()
	es := &echoServer{t: t}
	upgrader := websocket.Upgrader{}
	es.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		es.mu.Lock()
		es.conn = conn
		es.mu.Unlock()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env events.Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				continue
			}
			es.mu.Lock()
			es.received = append(es.received, env)
			es.mu.Unlock()
		}
	}))
	t.Cleanup(es.srv.Close)
	return es
}

func (es *echoServer) url() string {
	return "ws" + strings.TrimPrefix(es.srv.URL, "http")
}

func (es *echoServer) push(t *testing.T, event string, payload any) {
	t.Helper()
	env, err := events.NewEnvelope(event, payload)
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	es.mu.Lock()
	conn := es.conn
	es.mu.Unlock()
	require.NotNil(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func (es *echoServer) lastReceived() (events.Envelope, bool) {
	es.mu.Lock()
	defer es.mu.Unlock()
	if len(es.received) == 0 {
		return events.Envelope{}, false
	}
	return es.received[len(es.received)-1], true
}

func TestChannel_EmitAndDispatch(t *testing.T) {
	es := newEchoServer(t)
	ch := transport.NewChannel(es.url(), logger.New(logger.DevelopmentMode))

	got := make(chan json.RawMessage, 1)
	ch.On("ping", func(payload json.RawMessage) {
		got <- payload
	})

	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Disconnect()
	assert.True(t, ch.Connected())

	// Outbound: the server sees the envelope we emit.
	require.NoError(t, ch.Emit("hello", map[string]string{"a": "b"}))
	assert.Eventually(t, func() bool {
		env, ok := es.lastReceived()
		return ok && env.Event == "hello"
	}, time.Second, 10*time.Millisecond)

	// Inbound: a pushed envelope reaches the registered handler.
	es.push(t, "ping", map[string]string{"x": "y"})
	select {
	case payload := <-got:
		var m map[string]string
		require.NoError(t, json.Unmarshal(payload, &m))
		assert.Equal(t, "y", m["x"])
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}
}

func TestChannel_EmitWhileDisconnected(t *testing.T) {
	ch := transport.NewChannel("ws://127.0.0.1:0", logger.New(logger.DevelopmentMode))
	assert.Error(t, ch.Emit("hello", nil))
}

func TestChannel_DisconnectDropsHandlers(t *testing.T) {
	es := newEchoServer(t)
	ch := transport.NewChannel(es.url(), logger.New(logger.DevelopmentMode))

	register := func() {
		ch.On("evt", func(json.RawMessage) {})
	}

	// Repeated connect/register/disconnect cycles never stack handlers.
	for i := 0; i < 3; i++ {
		register()
		assert.Equal(t, 1, ch.HandlerCount("evt"))
		require.NoError(t, ch.Connect(context.Background()))
		ch.Disconnect()
		assert.Equal(t, 0, ch.HandlerCount("evt"))
		assert.False(t, ch.Connected())
	}
}

func TestChannel_FailedConnectRetryDoesNotStackHandlers(t *testing.T) {
	ch := transport.NewChannel("ws://127.0.0.1:1/sock", logger.New(logger.DevelopmentMode))

	// A failed dial never reaches Disconnect, so registration must go
	// through ClearHandlers to stay idempotent across retries.
	for i := 0; i < 3; i++ {
		ch.ClearHandlers()
		ch.On("evt", func(json.RawMessage) {})
		assert.Error(t, ch.Connect(context.Background())) // nothing listens
	}
	assert.Equal(t, 1, ch.HandlerCount("evt"))
}

func TestChannel_DoubleConnectRefused(t *testing.T) {
	es := newEchoServer(t)
	ch := transport.NewChannel(es.url(), logger.New(logger.DevelopmentMode))
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Disconnect()
	assert.Error(t, ch.Connect(context.Background()))
}
