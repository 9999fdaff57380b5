package mcp

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/afriverse/gameclient/proto"
	"github.com/afriverse/gameclient/router"
)

func TestRequest_ReceivesMatchingReply(t *testing.T) {
	sent := make(chan []byte, 1)
	r := router.New(func(frame []byte) { sent <- frame }, prometheus.NewRegistry())
	s := &Server{Timeout: 2 * time.Second, router: r}

	done := make(chan struct{})
	var reply proto.Message
	var err error
	go func() {
		reply, err = s.request(proto.GetProfile(), proto.TypeProfile)
		close(done)
	}()

	// Wait for the request to go out, then deliver the reply.
	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the outbound request")
	}
	r.HandleFrame([]byte(`{"type":"profile","profile":{"username":"Zuri","pvpLevel":5,"properties":[],"dailyReward":10}}`))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the reply")
	}

	if err != nil {
		t.Fatalf("Expected a reply, got error: %v", err)
	}
	if reply.Type != proto.TypeProfile {
		t.Errorf("Expected a profile reply, got %q", reply.Type)
	}
	if !strings.Contains(string(reply.Raw), "Zuri") {
		t.Errorf("Unexpected reply payload: %s", string(reply.Raw))
	}
}

func TestRequest_TimesOutWithoutReply(t *testing.T) {
	r := router.New(func(frame []byte) {}, prometheus.NewRegistry())
	s := &Server{Timeout: 50 * time.Millisecond, router: r}

	if _, err := s.request(proto.ListPlayers(), proto.TypePlayerList); err == nil {
		t.Error("Expected a timeout error when no reply arrives")
	}
}

func TestRequest_UnsubscribesAfterReply(t *testing.T) {
	r := router.New(func(frame []byte) {}, prometheus.NewRegistry())
	s := &Server{Timeout: 50 * time.Millisecond, router: r}

	s.request(proto.ListPlayers(), proto.TypePlayerList)

	// A late reply after the timeout must not panic or leak into a
	// stale subscription.
	r.HandleFrame([]byte(`{"type":"playerList","players":[]}`))
}
