package server

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/caffeineduck/tsplay/checker"
	"github.com/caffeineduck/tsplay/playground"
)

// Live editor protocol. The client sends
//
//	{"type":"edit","seq":3,"code":"..."}   debounced check-and-run
//	{"type":"run","seq":4,"code":"..."}    immediate check-and-run
//	{"type":"check","seq":5,"code":"..."}  immediate check only
//
// and receives a "hello" with its session id, then one "result" or
// "check" message per processed request, echoing seq. Edits that arrive
// within the debounce window replace each other; blank edits are ignored.
const (
	msgEdit   = "edit"
	msgRun    = "run"
	msgCheck  = "check"
	msgHello  = "hello"
	msgResult = "result"
	msgError  = "error"

	writeWait = 10 * time.Second
)

type wsRequest struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq"`
	Code string `json:"code"`
}

type wsResponse struct {
	Type    string                        `json:"type"`
	Seq     int64                         `json:"seq,omitempty"`
	Session string                        `json:"session,omitempty"`
	Result  *playground.CompilationResult `json:"result,omitempty"`
	Check   *checker.Result               `json:"check,omitempty"`
	Message string                        `json:"message,omitempty"`
}

type session struct {
	id   string
	srv  *Server
	conn *websocket.Conn
	log  *zap.Logger
}

func newSession(s *Server, conn *websocket.Conn) *session {
	id := uuid.NewString()
	return &session{
		id:   id,
		srv:  s,
		conn: conn,
		log:  s.log.With(zap.String("session", id)),
	}
}

// serve runs the session until the peer disconnects, ctx is done or the
// server shuts down.
func (ss *session) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ss.srv.sessions, cancel)
	defer stop()

	ss.srv.metrics.sessions.Inc()
	defer ss.srv.metrics.sessions.Dec()
	defer ss.conn.Close()

	if ss.srv.cfg.MaxSourceBytes > 0 {
		ss.conn.SetReadLimit(ss.srv.cfg.MaxSourceBytes + 4096)
	}

	ss.log.Debug("session opened")
	if err := ss.write(wsResponse{Type: msgHello, Session: ss.id}); err != nil {
		return
	}

	incoming := make(chan wsRequest, 16)
	go ss.readPump(ctx, incoming)
	ss.loop(ctx, incoming)
	ss.log.Debug("session closed")
}

// readPump decodes client messages until the connection fails.
func (ss *session) readPump(ctx context.Context, out chan<- wsRequest) {
	defer close(out)
	for {
		var req wsRequest
		if err := ss.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ss.log.Debug("read failed", zap.Error(err))
			}
			return
		}
		select {
		case out <- req:
		case <-ctx.Done():
			return
		}
	}
}

// loop owns all writes to the connection and the debounce timer.
func (ss *session) loop(ctx context.Context, incoming <-chan wsRequest) {
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	var pending *wsRequest
	for {
		select {
		case <-ctx.Done():
			ss.closeWith(websocket.CloseGoingAway, "server shutting down")
			return

		case req, ok := <-incoming:
			if !ok {
				return
			}
			switch req.Type {
			case msgEdit:
				if strings.TrimSpace(req.Code) == "" {
					debounce.Stop()
					pending = nil
					continue
				}
				pending = &req
				debounce.Reset(ss.srv.cfg.Debounce)
			case msgRun:
				debounce.Stop()
				pending = nil
				if !ss.run(ctx, req) {
					return
				}
			case msgCheck:
				res := ss.srv.svc.Check(ctx, req.Code)
				if ss.write(wsResponse{Type: msgCheck, Seq: req.Seq, Check: &res}) != nil {
					return
				}
			default:
				if ss.write(wsResponse{Type: msgError, Seq: req.Seq, Message: "unknown message type " + req.Type}) != nil {
					return
				}
			}

		case <-debounce.C:
			if pending == nil {
				continue
			}
			req := *pending
			pending = nil
			if !ss.run(ctx, req) {
				return
			}
		}
	}
}

func (ss *session) run(ctx context.Context, req wsRequest) bool {
	if ss.srv.tooLarge(req.Code) {
		return ss.write(wsResponse{Type: msgError, Seq: req.Seq, Message: "source too large"}) == nil
	}
	res := ss.srv.svc.CheckAndRun(ctx, req.Code)
	return ss.write(wsResponse{Type: msgResult, Seq: req.Seq, Result: &res}) == nil
}

func (ss *session) write(resp wsResponse) error {
	ss.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ss.conn.WriteJSON(resp); err != nil {
		ss.log.Debug("write failed", zap.Error(err))
		return err
	}
	return nil
}

func (ss *session) closeWith(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = ss.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
