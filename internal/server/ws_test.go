package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func dialWS(t *testing.T, cfg Config) (*websocket.Conn, string) {
	t.Helper()
	s, _ := newTestServer(t, cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	var hello wsResponse
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != msgHello || hello.Session == "" {
		t.Fatalf("unexpected hello %+v", hello)
	}
	return conn, hello.Session
}

func read(t *testing.T, conn *websocket.Conn, within time.Duration) wsResponse {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(within))
	var resp wsResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
}

func send(t *testing.T, conn *websocket.Conn, req wsRequest) {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWSRunImmediate(t *testing.T) {
	conn, _ := dialWS(t, DefaultConfig())

	send(t, conn, wsRequest{Type: msgRun, Seq: 1, Code: `console.log("hi")`})
	resp := read(t, conn, 5*time.Second)
	if resp.Type != msgResult || resp.Seq != 1 || resp.Result == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Result.Output != "hi" {
		t.Errorf("unexpected output %q", resp.Result.Output)
	}
}

func TestWSEditsDebounced(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debounce = 150 * time.Millisecond
	conn, _ := dialWS(t, cfg)

	start := time.Now()
	for i, code := range []string{`console.log(1)`, `console.log(2)`, `console.log(3)`} {
		send(t, conn, wsRequest{Type: msgEdit, Seq: int64(i + 1), Code: code})
	}

	resp := read(t, conn, 5*time.Second)
	if resp.Type != msgResult || resp.Seq != 3 {
		t.Fatalf("expected only the last edit to run, got %+v", resp)
	}
	if resp.Result.Output != "3" {
		t.Errorf("unexpected output %q", resp.Result.Output)
	}
	if elapsed := time.Since(start); elapsed < cfg.Debounce {
		t.Errorf("edit ran after %v, before the debounce window", elapsed)
	}

	// A follow-up run must be the next message: no stale edits remain.
	send(t, conn, wsRequest{Type: msgRun, Seq: 9, Code: `console.log("next")`})
	if resp := read(t, conn, 5*time.Second); resp.Seq != 9 {
		t.Errorf("expected seq 9 next, got %+v", resp)
	}
}

func TestWSBlankEditIgnored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debounce = 50 * time.Millisecond
	conn, _ := dialWS(t, cfg)

	send(t, conn, wsRequest{Type: msgEdit, Seq: 1, Code: `console.log("pending")`})
	send(t, conn, wsRequest{Type: msgEdit, Seq: 2, Code: "   \n"})
	time.Sleep(150 * time.Millisecond)
	send(t, conn, wsRequest{Type: msgCheck, Seq: 3, Code: `let x: number = "a";`})

	resp := read(t, conn, 5*time.Second)
	if resp.Type != msgCheck || resp.Seq != 3 {
		t.Fatalf("blank edit should cancel the pending run, got %+v", resp)
	}
	if resp.Check == nil || len(resp.Check.Errors) != 1 {
		t.Errorf("unexpected check result %+v", resp.Check)
	}
}

func TestWSRunCancelsPendingEdit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debounce = 100 * time.Millisecond
	conn, _ := dialWS(t, cfg)

	send(t, conn, wsRequest{Type: msgEdit, Seq: 1, Code: `console.log("edit")`})
	send(t, conn, wsRequest{Type: msgRun, Seq: 2, Code: `console.log("run")`})
	send(t, conn, wsRequest{Type: msgCheck, Seq: 3, Code: `1`})

	time.Sleep(200 * time.Millisecond)
	for _, want := range []int64{2, 3} {
		if resp := read(t, conn, 5*time.Second); resp.Seq != want {
			t.Errorf("expected seq %d, got %+v", want, resp)
		}
	}
}

func TestWSUnknownType(t *testing.T) {
	conn, _ := dialWS(t, DefaultConfig())

	send(t, conn, wsRequest{Type: "format", Seq: 4})
	resp := read(t, conn, 5*time.Second)
	if resp.Type != msgError || resp.Seq != 4 || !strings.Contains(resp.Message, "format") {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestWSSessionsGauge(t *testing.T) {
	s, metrics := newTestServer(t, DefaultConfig())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	var hello wsResponse
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if got := gaugeValue(t, metrics); got != 1 {
		t.Errorf("open sessions = %v, want 1", got)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for gaugeValue(t, metrics) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session gauge not decremented after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func gaugeValue(t *testing.T, m *Metrics) float64 {
	t.Helper()
	return testutil.ToFloat64(m.sessions)
}
