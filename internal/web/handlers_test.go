package web

import (
	"bufio"
	"context"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jaminalder/ocean-tic-tac-toe/internal/app"
	"github.com/jaminalder/ocean-tic-tac-toe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := app.NewService(logger)
	h := NewServer(s, Options{Logger: logger, Heartbeat: time.Second})
	return s, h
}

func sessionFrom(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			return c.Value
		}
	}
	t.Fatalf("expected %s cookie to be set", sessionCookie)
	return ""
}

func postCell(h http.Handler, sid, cell string, htmx bool) *httptest.ResponseRecorder {
	form := url.Values{"cell": {cell}}
	req := httptest.NewRequest(http.MethodPost, "/play", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sid})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPageSetsCookieAndRendersFreshBoard(t *testing.T) {
	svc, h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	sid := sessionFrom(t, rr)
	_, ok := svc.Get(sid)
	assert.False(t, ok, "viewing the page should not register a session")

	body := rr.Body.String()
	assert.Contains(t, body, "<h1 class=\"gameTitle\">Tic Tac Toe</h1>")
	assert.Contains(t, body, "Current player: X")
	assert.Contains(t, body, "New game")
	assert.Contains(t, body, "sse-connect=\"/events\"")
	for i := 1; i <= 9; i++ {
		assert.Contains(t, body, "aria-label=\"Cell "+string(rune('0'+i))+"\"")
	}
	assert.NotContains(t, body, " disabled>")
}

func TestIndexReusesExistingSession(t *testing.T) {
	svc, h := newTestServer(t)
	ss := svc.CreateSession()
	_, err := svc.Play(ss.ID, 4)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: ss.ID})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
	assert.Contains(t, rr.Body.String(), "Current player: O")
	assert.Contains(t, rr.Body.String(), "aria-label=\"Cell 5, X\"")
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	ss := svc.CreateSession()

	rr := postCell(h, ss.ID, "0", true)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, "<div id=\"board\">"), "expected board fragment, got %q", body)
	assert.Contains(t, body, "Current player: O")
	assert.Contains(t, body, "aria-label=\"Cell 1, X\"")
	assert.Equal(t, 1, strings.Count(body, " disabled>"))

	latest, _ := svc.Get(ss.ID)
	assert.Equal(t, domain.X, latest.Session.Board()[0])
}

func TestPlayWithoutHtmxRedirects(t *testing.T) {
	svc, h := newTestServer(t)
	ss := svc.CreateSession()

	rr := postCell(h, ss.ID, "4", false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Result().Header.Get("Location"))

	latest, _ := svc.Get(ss.ID)
	assert.Equal(t, 1, latest.Session.Moves())
}

func TestPlayInvalidCellsAreIgnored(t *testing.T) {
	svc, h := newTestServer(t)
	ss := svc.CreateSession()
	_, err := svc.Play(ss.ID, 0)
	require.NoError(t, err)
	before, _ := svc.Get(ss.ID)

	for _, cell := range []string{"0", "9", "-1", "abc", ""} {
		rr := postCell(h, ss.ID, cell, true)
		require.Equalf(t, http.StatusOK, rr.Code, "cell %q", cell)
		assert.Contains(t, rr.Body.String(), "Current player: O")
	}
	after, _ := svc.Get(ss.ID)
	assert.Equal(t, before.Session, after.Session)
}

func TestWinHighlightsLineAndDisablesBoard(t *testing.T) {
	svc, h := newTestServer(t)
	ss := svc.CreateSession()

	var rr *httptest.ResponseRecorder
	for _, cell := range []string{"0", "3", "1", "4", "2"} {
		rr = postCell(h, ss.ID, cell, true)
	}
	body := rr.Body.String()
	assert.Contains(t, body, "Player X wins")
	assert.Contains(t, body, "statusPill--win")
	assert.Equal(t, 3, strings.Count(body, "cell--winning"))
	assert.Equal(t, 9, strings.Count(body, " disabled>"))

	// a click on a disabled cell changes nothing
	rr = postCell(h, ss.ID, "6", true)
	assert.Contains(t, rr.Body.String(), "aria-label=\"Cell 7\"")
	assert.Contains(t, rr.Body.String(), "Player X wins")
}

func TestDrawShowsDrawStatus(t *testing.T) {
	svc, h := newTestServer(t)
	ss := svc.CreateSession()

	var rr *httptest.ResponseRecorder
	for _, cell := range []string{"0", "1", "2", "4", "3", "5", "7", "6", "8"} {
		rr = postCell(h, ss.ID, cell, true)
	}
	body := rr.Body.String()
	assert.Contains(t, body, "Draw game")
	assert.Contains(t, body, "statusPill--draw")
	assert.NotContains(t, body, "cell--winning")
}

func TestResetClearsBoard(t *testing.T) {
	svc, h := newTestServer(t)
	ss := svc.CreateSession()
	postCell(h, ss.ID, "0", true)

	req := httptest.NewRequest(http.MethodPost, "/reset", nil)
	req.Header.Set("HX-Request", "true")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: ss.ID})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Current player: X")
	assert.Contains(t, rr.Body.String(), "aria-label=\"Cell 1\"")
	latest, _ := svc.Get(ss.ID)
	assert.Equal(t, domain.New(), latest.Session)
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok\n", rr.Body.String())
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Result().Header.Get("Content-Type"), "text/event-stream"))
}

func TestEventsStreamBoardUpdates(t *testing.T) {
	svc, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	ss := svc.CreateSession()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: ss.ID})
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// another tab plays
	postCell(h, ss.ID, "4", true)

	sc := bufio.NewScanner(resp.Body)
	var sawEvent, sawMark bool
	for sc.Scan() {
		line := sc.Text()
		if line == "event: board" {
			sawEvent = true
		}
		if sawEvent && strings.Contains(line, "aria-label=\"Cell 5, X\"") {
			sawMark = true
			break
		}
	}
	assert.True(t, sawEvent, "expected a board event")
	assert.True(t, sawMark, "expected the played mark in the event payload")
}

func TestWriteEventPrefixesEveryLine(t *testing.T) {
	var b strings.Builder
	writeEvent(&b, "board", []byte("<div>\n</div>"))
	assert.Equal(t, "event: board\ndata: <div>\ndata: </div>\n\n", b.String())
}

func TestAnonymousPageViewsDoNotGrowRegistry(t *testing.T) {
	svc, h := newTestServer(t)
	for i := 0; i < 1000; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Equal(t, 0, svc.Len())
}

func TestMalformedCookieIsReplaced(t *testing.T) {
	svc, h := newTestServer(t)
	bogus := strings.Repeat("a", 3000)

	rr := postCell(h, bogus, "4", true)
	require.Equal(t, http.StatusOK, rr.Code)

	sid := sessionFrom(t, rr)
	assert.NotEqual(t, bogus, sid)
	_, ok := svc.Get(bogus)
	assert.False(t, ok, "malformed cookie must not become a session key")
	ss, ok := svc.Get(sid)
	require.True(t, ok)
	assert.Equal(t, domain.X, ss.Session.Board()[4])
	assert.Equal(t, 1, svc.Len())
}

func TestFirstMoveRegistersSession(t *testing.T) {
	svc, h := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	sid := sessionFrom(t, rr)

	postCell(h, sid, "0", true)
	ss, ok := svc.Get(sid)
	require.True(t, ok)
	assert.Equal(t, 1, ss.Session.Moves())
}

func TestRenderFailureReturnsServerError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &handlers{
		svc: app.NewService(logger),
		tpl: &templates{board: template.Must(template.New("broken").Parse("{{.Missing}}"))},
		log: logger,
	}
	req := httptest.NewRequest(http.MethodPost, "/play", nil)
	req.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()
	h.respond(rr, req, app.SessionState{ID: "x", Session: domain.New()})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "id=\"board\"")
}
