package protocol

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func compileSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	compiler := jsonschema.NewCompiler()
	data, err := os.ReadFile("../../api/schema/relay_v1.schema.json")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if err := compiler.AddResource("relay_v1.schema.json", strings.NewReader(string(data))); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	schema, err := compiler.Compile("relay_v1.schema.json")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return schema
}

func TestRelayProtocolSchema(t *testing.T) {
	schema := compileSchema(t)

	frames := []struct {
		event   string
		payload any
	}{
		{EventPlayerNumber, NoSlot},
		{EventPlayerConnection, 1},
		{EventCheckPlayers, []PlayerStatus{{Connected: true, Ready: false}, {}}},
		{EventGameStarted, 0},
		{EventFire, CellID("42")},
		{EventFireReply, json.RawMessage(`["taken","miss"]`)},
		{EventUpdateTurn, 1},
		{EventError, ErrorPayload{Message: "Not your turn", Code: CodeTurnError}},
		{EventReconnectAttempt, ReconnectAttempt{PlayerNum: 1}},
		{EventReconnectSuccess, ReconnectSuccess{PlayerIndex: 1, CurrentTurn: 0, GameActive: true, ReconnectCount: 1}},
		{EventGameStateUpdate, GameStateUpdate{CurrentTurn: 1, GameActive: true, TurnHistory: []TurnEntry{{Player: 0, Time: 1}, {Player: 1, Time: 2}}}},
		{EventGameOver, GameOver{Winner: 0}},
		{EventOpponentDisconnected, OpponentDisconnected{DisconnectedPlayer: 1}},
		{EventHeartbeatResponse, HeartbeatResponse{ServerTime: 1, PlayersConnected: 2, GameActive: true}},
		{EventTimeout, nil},
	}

	for _, f := range frames {
		frame, err := Encode(f.event, f.payload)
		if err != nil {
			t.Fatalf("encode %s: %v", f.event, err)
		}
		var v any
		if err := json.Unmarshal(frame, &v); err != nil {
			t.Fatalf("unmarshal %s: %v", f.event, err)
		}
		if err := schema.Validate(v); err != nil {
			t.Fatalf("schema validate %s: %v", f.event, err)
		}
	}
}

func TestRelayProtocolSchemaRejectsBadFrames(t *testing.T) {
	schema := compileSchema(t)

	bad := []string{
		`{"event":"launch-missiles"}`,
		`{"event":"update-turn","data":2}`,
		`{"event":"error","data":{"message":"x"}}`,
		`{"event":"game-over","data":{}}`,
	}
	for _, s := range bad {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			t.Fatalf("unmarshal %s: %v", s, err)
		}
		if err := schema.Validate(v); err == nil {
			t.Fatalf("expected schema violation for %s", s)
		}
	}
}
