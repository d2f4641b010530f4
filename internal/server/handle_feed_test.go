package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/campday/cornerquest/internal/tracker"
)

func TestProgressFeedWebSocket(t *testing.T) {
	srv := httptest.NewServer(testRouter(t))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/ws/groups/7"

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	resp, err := http.Post(srv.URL+"/api/groups/7/outcome", "application/json", strings.NewReader(`{"outcome":"draw","bonus":1}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got tracker.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decoding event: %v", err)
	}

	if got.Type != tracker.EventStationCompleted || got.GroupID != 7 || got.Score != 31 || got.Progress.CurrentStationIndex != 1 {
		t.Errorf("unexpected event %+v", got)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestEventsSSE(t *testing.T) {
	d := setupDeps(t)
	srv := httptest.NewServer(New(":0", d, nil).Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/groups/5/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}

	// Headers are only flushed once the subscription exists.
	d.Broker.Publish(5, tracker.Event{Type: tracker.EventTotalResynced, GroupID: 5})

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 || lines[0] != "event: progress" || !strings.Contains(lines[1], `"type":"total_resynced"`) {
		t.Errorf("unexpected frame %q", lines)
	}
}

func TestBrokerIsolatesGroups(t *testing.T) {
	b := NewBroker()
	seven := b.Subscribe(7)
	eight := b.Subscribe(8)
	defer b.Unsubscribe(8, eight)

	b.Publish(7, tracker.Event{Type: tracker.EventScoreCorrected, GroupID: 7})

	select {
	case <-seven:
	default:
		t.Error("group 7 subscriber got nothing")
	}
	select {
	case data := <-eight:
		t.Errorf("group 8 subscriber got %s", data)
	default:
	}

	b.Unsubscribe(7, seven)
	if _, ok := b.subs[7]; ok {
		t.Error("empty subscriber set not removed")
	}
}
