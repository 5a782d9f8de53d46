package service_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/auctionhaus/dutch-engine/internal/service"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("ws dial failed: %v", err)
	}
	return conn
}

func TestWSHub_BroadcastReachesClients(t *testing.T) {
	hub := service.NewWSHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	// Give the register channel a moment to be serviced.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(service.WSMessage{
		Type:      "bid_accepted",
		AuctionID: "a1",
		Bidder:    "alice",
		Price:     200,
		Height:    3,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected broadcast message: %v", err)
	}
	if !strings.Contains(string(data), `"auction_id":"a1"`) {
		t.Errorf("unexpected payload: %s", data)
	}
}

func TestWSHub_DeadClientDoesNotStopBroadcast(t *testing.T) {
	hub := service.NewWSHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	dropped := dialWS(t, srv)
	survivor := dialWS(t, srv)
	defer survivor.Close()

	time.Sleep(50 * time.Millisecond)

	// Kill one client, then keep broadcasting. The hub must prune the
	// dead connection and continue serving the survivor without crashing.
	dropped.Close()

	const n = 5
	for i := 0; i < n; i++ {
		hub.Broadcast(service.WSMessage{
			Type:      "auction_created",
			AuctionID: "a1",
			Height:    uint64(i),
		})
		time.Sleep(20 * time.Millisecond)
	}

	survivor.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < n; i++ {
		if _, _, err := survivor.ReadMessage(); err != nil {
			t.Fatalf("survivor lost message %d: %v", i, err)
		}
	}
}
