package httptransport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apppublic "broadside/internal/app/public"
	"broadside/internal/app/status"
	"broadside/internal/config"
	"broadside/internal/match"
	"broadside/internal/mcpserver"
	"broadside/internal/protocol"
	"broadside/internal/spectate"
	"broadside/internal/ws"

	"github.com/gorilla/websocket"
)

type fixture struct {
	srv  *httptest.Server
	sess *match.Session
}

func newFixture(t *testing.T, cfg config.ServerConfig) *fixture {
	t.Helper()
	hub := ws.NewServer(ws.Options{})
	buf := spectate.NewEventBuffer(16)
	sess := match.NewSession(hub, match.Options{}, spectate.NewFeed(buf))
	hub.Bind(sess)

	statusSvc := status.NewService(sess, hub, status.Options{Production: cfg.IsProduction()})
	publicSvc := apppublic.NewService(nil)
	router := NewRouter(Deps{
		Config:   cfg,
		Hub:      hub,
		Status:   statusSvc,
		Public:   publicSvc,
		Session:  sess,
		Spectate: buf,
		MCP:      mcpserver.New(statusSvc, publicSvc),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
		sess.Close()
	})
	return &fixture{srv: srv, sess: sess}
}

func (f *fixture) get(t *testing.T, path string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealthReportsIdleRelay(t *testing.T) {
	f := newFixture(t, config.ServerConfig{AppEnv: "development"})
	for _, path := range []string{"/health", "/healthz"} {
		resp := f.get(t, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
		var body status.HealthResponse
		decodeBody(t, resp, &body)
		if body.Status != "running" || body.Players != 0 || body.GameActive || body.CurrentTurn != nil {
			t.Fatalf("%s body = %+v", path, body)
		}
	}
}

func TestDebugStateHiddenInProduction(t *testing.T) {
	f := newFixture(t, config.ServerConfig{AppEnv: "production"})
	resp := f.get(t, "/debug-state", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDebugStateRequiresAdminKeyWhenSet(t *testing.T) {
	f := newFixture(t, config.ServerConfig{AppEnv: "development", AdminAPIKey: "sekret"})

	if resp := f.get(t, "/debug-state", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", resp.StatusCode)
	}
	if resp := f.get(t, "/debug-state", http.Header{"Authorization": {"Bearer nope"}}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d, want 401", resp.StatusCode)
	}

	resp := f.get(t, "/debug-state", http.Header{"X-Admin-Key": {"sekret"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin status = %d", resp.StatusCode)
	}
	var body status.DebugState
	decodeBody(t, resp, &body)
	if body.Phase != match.PhaseWaitingForPlayers.String() || len(body.Seats) != 2 {
		t.Fatalf("debug state = %+v", body)
	}
}

func TestHistoryRoutesWithoutStore(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	for _, path := range []string{"/api/public/matches", "/api/public/matches/01HZZZZZZZZZZZZZZZZZZZZZZZ"} {
		resp := f.get(t, path, nil)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("%s status = %d, want 503", path, resp.StatusCode)
		}
		var body map[string]string
		decodeBody(t, resp, &body)
		if body["error"] != "history_unavailable" {
			t.Fatalf("%s error = %q", path, body["error"])
		}
	}
}

func TestDebugVarsPublishesTransportStats(t *testing.T) {
	f := newFixture(t, config.ServerConfig{AdminAPIKey: "k"})
	if resp := f.get(t, "/api/debug/vars", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", resp.StatusCode)
	}
	resp := f.get(t, "/api/debug/vars", http.Header{"Authorization": {"Bearer k"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var vars map[string]json.RawMessage
	decodeBody(t, resp, &vars)
	for _, name := range []string{"ws_transport", "http_health_checks_total"} {
		if _, ok := vars[name]; !ok {
			t.Fatalf("missing expvar %q", name)
		}
	}
}

func TestMCPPreflight(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	req, _ := http.NewRequest(http.MethodOptions, f.srv.URL+"/mcp", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Allow"), "POST") {
		t.Fatalf("allow = %q", resp.Header.Get("Allow"))
	}
}

func TestWebSocketSeatsShowInSpectateState(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := protocol.Decode(msg)
	if err != nil || env.Event != protocol.EventPlayerNumber || string(env.Data) != "0" {
		t.Fatalf("first frame = %s (%v)", msg, err)
	}

	resp := f.get(t, "/api/public/spectate/state", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state status = %d", resp.StatusCode)
	}
	var view spectate.PublicState
	decodeBody(t, resp, &view)
	if len(view.Seats) != 2 || !view.Seats[0].Connected || view.Seats[1].Connected {
		t.Fatalf("seats = %+v", view.Seats)
	}
}
