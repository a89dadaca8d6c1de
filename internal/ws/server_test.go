package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"broadside/internal/match"
	"broadside/internal/protocol"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T, opts match.Options) (*Server, *match.Session, string) {
	t.Helper()
	hub := NewServer(Options{PingInterval: time.Second, PongWait: 5 * time.Second})
	sess := match.NewSession(hub, opts)
	hub.Bind(sess)
	ts := httptest.NewServer(httpHandler(hub))
	t.Cleanup(func() {
		hub.Shutdown()
		ts.Close()
		sess.Close()
	})
	return hub, sess, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func httpHandler(hub *Server) http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", hub.HandleWS)
	return r
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := protocol.Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// expect reads frames until one with the given event arrives.
func expect(t *testing.T, conn *websocket.Conn, event string) protocol.Envelope {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", event)
		env, err := protocol.Decode(msg)
		require.NoError(t, err)
		if env.Event == event {
			return env
		}
	}
}

func decode[T any](t *testing.T, env protocol.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestTwoPlayersPlayOneExchange(t *testing.T) {
	_, _, url := newTestHub(t, match.Options{})

	p0 := dial(t, url)
	assert.Equal(t, 0, decode[int](t, expect(t, p0, protocol.EventPlayerNumber)))
	p1 := dial(t, url)
	assert.Equal(t, 1, decode[int](t, expect(t, p1, protocol.EventPlayerNumber)))
	assert.Equal(t, 1, decode[int](t, expect(t, p0, protocol.EventPlayerConnection)))

	send(t, p0, protocol.EventPlayerReady, nil)
	assert.Equal(t, 0, decode[int](t, expect(t, p1, protocol.EventEnemyReady)))
	send(t, p1, protocol.EventPlayerReady, nil)
	assert.Equal(t, 0, decode[int](t, expect(t, p0, protocol.EventGameStarted)))
	assert.Equal(t, 0, decode[int](t, expect(t, p1, protocol.EventGameStarted)))

	send(t, p1, protocol.EventFire, "3")
	errPayload := decode[protocol.ErrorPayload](t, expect(t, p1, protocol.EventError))
	assert.Equal(t, protocol.CodeTurnError, errPayload.Code)

	send(t, p0, protocol.EventFire, "42")
	assert.Equal(t, protocol.CellID("42"), decode[protocol.CellID](t, expect(t, p1, protocol.EventFire)))
	send(t, p1, protocol.EventFireReply, json.RawMessage(`["taken","boom"]`))
	assert.JSONEq(t, `["taken","boom"]`, string(expect(t, p0, protocol.EventFireReply).Data))
	assert.Equal(t, 1, decode[int](t, expect(t, p0, protocol.EventUpdateTurn)))
	assert.Equal(t, 1, decode[int](t, expect(t, p1, protocol.EventUpdateTurn)))
}

func TestThirdConnectionIsToldServerIsFull(t *testing.T) {
	_, _, url := newTestHub(t, match.Options{})

	p0 := dial(t, url)
	expect(t, p0, protocol.EventPlayerNumber)
	p1 := dial(t, url)
	expect(t, p1, protocol.EventPlayerNumber)

	p2 := dial(t, url)
	assert.Equal(t, protocol.NoSlot, decode[int](t, expect(t, p2, protocol.EventPlayerNumber)))

	require.NoError(t, p2.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := p2.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestReconnectOnFreshSocketWithinGrace(t *testing.T) {
	hub, sess, url := newTestHub(t, match.Options{GracePeriod: time.Minute})

	p0 := dial(t, url)
	expect(t, p0, protocol.EventPlayerNumber)
	p1 := dial(t, url)
	expect(t, p1, protocol.EventPlayerNumber)
	send(t, p0, protocol.EventPlayerReady, nil)
	send(t, p1, protocol.EventPlayerReady, nil)
	expect(t, p0, protocol.EventGameStarted)
	expect(t, p1, protocol.EventGameStarted)

	require.NoError(t, p1.Close())
	assert.Equal(t, protocol.OpponentDisconnected{DisconnectedPlayer: 1},
		decode[protocol.OpponentDisconnected](t, expect(t, p0, protocol.EventOpponentDisconnected)))
	require.Eventually(t, func() bool { return sess.Snapshot().Slots[1].InGrace }, 3*time.Second, 10*time.Millisecond)

	back := dial(t, url)
	require.Eventually(t, func() bool { return sess.Snapshot().Pending == 1 }, 3*time.Second, 10*time.Millisecond)
	send(t, back, protocol.EventReconnectAttempt, protocol.ReconnectAttempt{PlayerNum: 1})
	success := decode[protocol.ReconnectSuccess](t, expect(t, back, protocol.EventReconnectSuccess))
	assert.Equal(t, protocol.ReconnectSuccess{PlayerIndex: 1, CurrentTurn: 0, GameActive: true, ReconnectCount: 1}, success)
	assert.Equal(t, 1, decode[int](t, expect(t, p0, protocol.EventPlayerConnection)))

	send(t, p0, protocol.EventFire, "7")
	assert.Equal(t, protocol.CellID("7"), decode[protocol.CellID](t, expect(t, back, protocol.EventFire)))

	stats := hub.Stats()
	assert.Equal(t, int64(3), stats.Connections)
	assert.Equal(t, int64(2), stats.Active)
}

func TestMalformedFrameGetsBadMessage(t *testing.T) {
	_, _, url := newTestHub(t, match.Options{})

	p0 := dial(t, url)
	expect(t, p0, protocol.EventPlayerNumber)
	require.NoError(t, p0.WriteMessage(websocket.TextMessage, []byte(`{"event":`)))
	assert.Equal(t, protocol.CodeBadMessage, decode[protocol.ErrorPayload](t, expect(t, p0, protocol.EventError)).Code)

	send(t, p0, protocol.EventHeartbeat, nil)
	hb := decode[protocol.HeartbeatResponse](t, expect(t, p0, protocol.EventHeartbeatResponse))
	assert.Equal(t, 1, hb.PlayersConnected)
}

type panicHandler struct{}

func (panicHandler) Connect(string) (match.SlotIndex, error) { return match.Slot0, nil }
func (panicHandler) Handle(string, []byte) error             { panic("boom") }
func (panicHandler) Disconnect(string)                       {}

func TestHandlerPanicIsContained(t *testing.T) {
	hub := NewServer(Options{})
	hub.Bind(panicHandler{})
	ts := httptest.NewServer(httpHandler(hub))
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn := dial(t, url)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"heartbeat"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"heartbeat"}`)))
	require.Eventually(t, func() bool { return hub.Stats().Panics == 2 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), hub.Stats().Active)
}

func TestSendToUnknownConnection(t *testing.T) {
	hub := NewServer(Options{})
	assert.False(t, hub.Send("missing", []byte(`{}`)))
	hub.Close("missing")
}

func TestSafeSendNeverBlocks(t *testing.T) {
	ch := make(chan []byte, 1)
	assert.True(t, safeSend(ch, []byte("a")))
	assert.False(t, safeSend(ch, []byte("b")))
	safeClose(ch)
	safeClose(ch)
	assert.False(t, safeSend(ch, []byte("c")))
}
