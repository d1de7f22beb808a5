package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmynk/slicetally/internal/apperr"
	"github.com/mmynk/slicetally/internal/models"
	"github.com/mmynk/slicetally/internal/pubsub"
)

type subscribeParams struct {
	code          string
	participantID string
	name          string
}

// prepareSubscribe validates the query and seats the participant.
func (s *Server) prepareSubscribe(r *http.Request) (subscribeParams, error) {
	q := r.URL.Query()
	p := subscribeParams{
		code:          strings.TrimSpace(q.Get("code")),
		participantID: strings.TrimSpace(q.Get("participantId")),
		name:          q.Get("name"),
	}
	if p.code == "" || p.participantID == "" {
		return p, apperr.InvalidInput("code and participantId are required")
	}
	if _, err := s.store.EnsureParticipant(p.code, p.participantID, p.name); err != nil {
		return p, err
	}
	return p, nil
}

// serve runs sub until the client goes away or delivery fails.
func serve(ctx context.Context, sub *pubsub.Subscription, params subscribeParams, transport string) {
	slog.Info("Subscriber connected",
		"code", sub.Code(),
		"participant_id", params.participantID,
		"transport", transport,
	)
	err := sub.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("Subscriber dropped",
			"code", sub.Code(),
			"participant_id", params.participantID,
			"transport", transport,
			"error", err,
		)
		return
	}
	slog.Info("Subscriber disconnected",
		"code", sub.Code(),
		"participant_id", params.participantID,
		"transport", transport,
	)
}

// events streams projections as Server-Sent Events.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	params, err := s.prepareSubscribe(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	sink := &sseSink{w: w, rc: rc}
	sub, err := s.bc.Subscribe(params.code, sink)
	if err != nil {
		writeError(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		sub.Close()
		return
	}
	if err := rc.Flush(); err != nil {
		sub.Close()
		slog.Warn("SSE not supported by response writer", "error", err)
		return
	}

	serve(r.Context(), sub, params, "sse")
}

// sseSink writes one "data:" event per projection.
type sseSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (s *sseSink) Send(ctx context.Context, p models.Projection) error {
	payload, err := json.Marshal(newGroupView(p))
	if err != nil {
		return err
	}
	return s.write(ctx, "data: "+string(payload)+"\n\n")
}

// Ping writes an SSE comment line, which clients ignore.
func (s *sseSink) Ping(ctx context.Context) error {
	return s.write(ctx, ": ping\n\n")
}

func (s *sseSink) write(ctx context.Context, frame string) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.rc.SetWriteDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		defer s.rc.SetWriteDeadline(time.Time{})
	}
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return err
	}
	return s.rc.Flush()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Identity is self-asserted and CORS is open, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// maxClientMessage bounds frames read from WebSocket clients, which are
// expected to send nothing but control frames.
const maxClientMessage = 512

// ws streams projections as JSON text frames.
func (s *Server) ws(w http.ResponseWriter, r *http.Request) {
	params, err := s.prepareSubscribe(r)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub, err := s.bc.Subscribe(params.code, &wsSink{conn: conn})
	if err != nil {
		closeWS(conn, websocket.CloseInternalServerErr, apperr.Message(err))
		return
	}

	// The request context is not cancelled for hijacked connections, so a
	// reader goroutine reports when the client goes away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		conn.SetReadLimit(maxClientMessage)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	serve(ctx, sub, params, "websocket")
	closeWS(conn, websocket.CloseNormalClosure, "")
}

func closeWS(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// wsSink writes one text frame per projection.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Send(ctx context.Context, p models.Projection) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	return s.conn.WriteJSON(newGroupView(p))
}

func (s *wsSink) Ping(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(pubsub.DefaultSendTimeout)
	}
	return s.conn.WriteControl(websocket.PingMessage, nil, deadline)
}
