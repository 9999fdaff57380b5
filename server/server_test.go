package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New("localhost:0")
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dialTestServer(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial test server: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("Failed to send frame: %v", err)
	}
}

// waitForType reads frames until one with the wanted type arrives,
// skipping unrelated broadcasts.
func waitForType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	conn.SetReadDeadline(deadline)
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read while waiting for %q: %v", want, err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(frame, &decoded); err != nil {
			t.Fatalf("Server sent invalid JSON: %s", string(frame))
		}
		if decoded["type"] == want {
			return decoded
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %q", want)
		}
	}
}

func TestServer_GetProfile(t *testing.T) {
	_, ts := startTestServer(t)
	conn := dialTestServer(t, ts)

	sendJSON(t, conn, `{"type":"getProfile"}`)
	reply := waitForType(t, conn, "profile")

	profile, ok := reply["profile"].(map[string]any)
	if !ok {
		t.Fatalf("Expected a profile object, got %v", reply["profile"])
	}
	username, _ := profile["username"].(string)
	if !strings.HasPrefix(username, "User-") {
		t.Errorf("Expected a generated username, got %q", username)
	}
	if profile["pvpLevel"] != float64(1) {
		t.Errorf("Expected pvpLevel 1, got %v", profile["pvpLevel"])
	}
	if profile["dailyReward"] != float64(0) {
		t.Errorf("Expected dailyReward 0, got %v", profile["dailyReward"])
	}
}

func TestServer_PurchaseAddsPropertyAndAcks(t *testing.T) {
	_, ts := startTestServer(t)
	conn := dialTestServer(t, ts)

	sendJSON(t, conn, `{"type":"purchase","itemId":"isle-1","category":"Islands"}`)
	ack := waitForType(t, conn, "purchaseAck")
	if ack["itemId"] != "isle-1" {
		t.Errorf("Expected ack for isle-1, got %v", ack["itemId"])
	}

	sendJSON(t, conn, `{"type":"getProfile"}`)
	reply := waitForType(t, conn, "profile")
	profile := reply["profile"].(map[string]any)
	if profile["dailyReward"] != float64(10) {
		t.Errorf("Expected dailyReward 10 after an Islands purchase, got %v", profile["dailyReward"])
	}
	properties := profile["properties"].([]any)
	if len(properties) != 1 {
		t.Fatalf("Expected 1 property, got %d", len(properties))
	}
	prop := properties[0].(map[string]any)
	if prop["name"] != "Islands Item" {
		t.Errorf("Expected property 'Islands Item', got %v", prop["name"])
	}
}

func TestServer_BuildingPurchaseBroadcastsWorldUpdate(t *testing.T) {
	_, ts := startTestServer(t)
	buyer := dialTestServer(t, ts)
	watcher := dialTestServer(t, ts)

	sendJSON(t, buyer, `{"type":"purchase","itemId":"build-1","category":"Buildings"}`)

	update := waitForType(t, watcher, "worldUpdate")
	buildings, ok := update["buildings"].([]any)
	if !ok || len(buildings) != 1 {
		t.Fatalf("Expected one building in the broadcast, got %v", update["buildings"])
	}
	b := buildings[0].(map[string]any)
	if b["id"] == "" || b["color"] == "" {
		t.Errorf("Expected a populated building, got %v", b)
	}
	if pos, ok := b["position"].([]any); !ok || len(pos) != 3 {
		t.Errorf("Expected a 3-component position, got %v", b["position"])
	}

	// The buyer gets the ack and the same broadcast.
	waitForType(t, buyer, "purchaseAck")
	waitForType(t, buyer, "worldUpdate")
}

func TestServer_ListPlayersExcludesSelf(t *testing.T) {
	_, ts := startTestServer(t)
	first := dialTestServer(t, ts)
	second := dialTestServer(t, ts)

	// Make sure both sessions are registered before listing.
	sendJSON(t, second, `{"type":"getProfile"}`)
	waitForType(t, second, "profile")

	sendJSON(t, first, `{"type":"listPlayers"}`)
	reply := waitForType(t, first, "playerList")

	players, ok := reply["players"].([]any)
	if !ok {
		t.Fatalf("Expected a players list, got %v", reply["players"])
	}
	if len(players) != 1 {
		t.Fatalf("Expected exactly the other player, got %d entries", len(players))
	}
}

func TestServer_ChallengeRelaysToTarget(t *testing.T) {
	_, ts := startTestServer(t)
	challenger := dialTestServer(t, ts)
	target := dialTestServer(t, ts)

	// Learn the target's id through the challenger's player list.
	sendJSON(t, target, `{"type":"getProfile"}`)
	waitForType(t, target, "profile")
	sendJSON(t, challenger, `{"type":"listPlayers"}`)
	reply := waitForType(t, challenger, "playerList")
	players := reply["players"].([]any)
	if len(players) != 1 {
		t.Fatalf("Expected one opponent, got %d", len(players))
	}
	targetID := players[0].(map[string]any)["id"].(string)

	sendJSON(t, challenger, `{"type":"challenge","target":"`+targetID+`","stake":true}`)

	relayed := waitForType(t, target, "challengeRequest")
	if relayed["stake"] != true {
		t.Errorf("Expected stake to be relayed, got %v", relayed["stake"])
	}
	if name, _ := relayed["challengerName"].(string); !strings.HasPrefix(name, "User-") {
		t.Errorf("Expected the challenger's username, got %v", relayed["challengerName"])
	}

	response := waitForType(t, challenger, "challengeResponse")
	if msg, _ := response["message"].(string); !strings.HasPrefix(msg, "Challenge sent to ") {
		t.Errorf("Unexpected challenge response: %v", response["message"])
	}
}

func TestServer_ChallengeUnknownTargetIsDropped(t *testing.T) {
	_, ts := startTestServer(t)
	conn := dialTestServer(t, ts)

	sendJSON(t, conn, `{"type":"challenge","target":"nobody","stake":false}`)

	// The connection must survive and keep answering.
	sendJSON(t, conn, `{"type":"getProfile"}`)
	waitForType(t, conn, "profile")
}

func TestServer_InvalidFrameDoesNotKillConnection(t *testing.T) {
	_, ts := startTestServer(t)
	conn := dialTestServer(t, ts)

	sendJSON(t, conn, `{invalid json`)
	sendJSON(t, conn, `{"no":"type"}`)
	sendJSON(t, conn, `{"type":"getProfile"}`)

	waitForType(t, conn, "profile")
}

func TestServer_DisconnectRemovesSession(t *testing.T) {
	s, ts := startTestServer(t)
	first := dialTestServer(t, ts)
	second := dialTestServer(t, ts)

	sendJSON(t, second, `{"type":"getProfile"}`)
	waitForType(t, second, "profile")
	second.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		sendJSON(t, first, `{"type":"listPlayers"}`)
		reply := waitForType(t, first, "playerList")
		players, _ := reply["players"].([]any)
		if len(players) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected the closed session to be removed, still %d players", len(players))
		}
		time.Sleep(20 * time.Millisecond)
	}

	if got := len(s.State().others("")); got != 1 {
		t.Errorf("Expected one remaining session, got %d", got)
	}
}

func TestRewardFor(t *testing.T) {
	cases := map[string]int{
		"Islands":        10,
		"NFT Characters": 5,
		"Buildings":      2,
		"Land":           3,
		"Weapons":        1,
		"Mystery":        1,
	}
	for category, want := range cases {
		if got := rewardFor(category); got != want {
			t.Errorf("Expected reward %d for %q, got %d", want, category, got)
		}
	}
}
