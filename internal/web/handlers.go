package web

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jaminalder/ocean-tic-tac-toe/internal/app"
	"github.com/jaminalder/ocean-tic-tac-toe/internal/domain"
)

const sessionCookie = "session_id"

type handlers struct {
	svc       *app.Service
	tpl       *templates
	log       *slog.Logger
	heartbeat time.Duration
}

func (h *handlers) renderBoard(ss app.SessionState) ([]byte, error) {
	return renderTemplate(h.tpl.board, "", newBoardView(ss))
}

// index only reads the registry; a session is registered on the first move.
func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	id := ensureSessionCookie(w, r)
	ss, ok := h.svc.Get(id)
	if !ok {
		ss = &app.SessionState{ID: id, Session: domain.New()}
	}
	page, err := renderTemplate(h.tpl.page, "", newBoardView(*ss))
	if err != nil {
		h.log.Error("page render failed", "session", ss.ID, "error", err)
		http.Error(w, "failed to render", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := h.svc.Ensure(ensureSessionCookie(w, r)).ID
	_ = r.ParseForm()
	// anything that is not a cell index is ignored like any other invalid move
	idx, err := strconv.Atoi(r.Form.Get("cell"))
	if err != nil {
		idx = -1
	}
	ss, err := h.svc.Play(id, idx)
	if err != nil {
		h.log.Error("play failed", "session", id, "error", err)
		http.Error(w, "failed to play", http.StatusInternalServerError)
		return
	}
	h.respond(w, r, *ss)
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	id := h.svc.Ensure(ensureSessionCookie(w, r)).ID
	ss, err := h.svc.Reset(id)
	if err != nil {
		h.log.Error("reset failed", "session", id, "error", err)
		http.Error(w, "failed to reset", http.StatusInternalServerError)
		return
	}
	h.respond(w, r, *ss)
}

// respond swaps in the board fragment for htmx requests and falls back to a
// full page reload for plain form posts.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, ss app.SessionState) {
	if r.Header.Get("HX-Request") == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	b, err := h.renderBoard(ss)
	if err != nil {
		h.log.Error("board render failed", "session", ss.ID, "error", err)
		http.Error(w, "failed to render", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := ensureSessionCookie(w, r)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	// Initial flush of headers
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, "board", b)
			flusher.Flush()
		}
	}
}

// writeEvent emits one SSE event; every payload line gets its own data field.
func writeEvent(w io.Writer, name string, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", name)
	for _, line := range bytes.Split(payload, []byte("\n")) {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}

// ensureSessionCookie returns the browser's session id, issuing a fresh one
// when the cookie is missing or is not a UUID.
func ensureSessionCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	v := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    v,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return v
}
