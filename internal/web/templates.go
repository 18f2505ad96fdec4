package web

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/jaminalder/ocean-tic-tac-toe/internal/app"
	"github.com/jaminalder/ocean-tic-tac-toe/internal/domain"
)

type templates struct {
	page  *template.Template
	board *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"cellSymbol": func(c domain.Cell) string { return c.String() },
	}
}

func loadTemplates() *templates {
	page := template.Must(template.New("page").Funcs(funcs()).Parse(pageTemplate))
	template.Must(page.New("board").Parse(boardTemplate))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{page: page, board: board}
}

func renderTemplate(t *template.Template, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if name == "" {
		err = t.Execute(&buf, data)
	} else {
		err = t.ExecuteTemplate(&buf, name, data)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.Bytes(), nil
}

// cellView is what the board template needs to draw one cell.
type cellView struct {
	Index    int
	Mark     domain.Cell
	Label    string
	Class    string
	Disabled bool
}

type boardView struct {
	Status      domain.Status
	StatusClass string
	Rows        [3][3]cellView
}

func newBoardView(ss app.SessionState) boardView {
	g := ss.Session
	st := g.Status()
	board := g.Board()

	v := boardView{Status: st}
	switch st.State {
	case domain.Won:
		v.StatusClass = "statusPill--win"
	case domain.Drawn:
		v.StatusClass = "statusPill--draw"
	}
	for i, c := range board {
		cv := cellView{
			Index:    i,
			Mark:     c,
			Label:    fmt.Sprintf("Cell %d", i+1),
			Disabled: !g.CanPlay(i),
		}
		classes := []string{"cell"}
		if c == domain.Empty {
			classes = append(classes, "cell--empty")
		} else {
			cv.Label += ", " + c.String()
			classes = append(classes, "cell--filled", "cell--"+strings.ToLower(c.String()))
		}
		if st.State == domain.Won && st.Line.Contains(i) {
			classes = append(classes, "cell--winning")
		}
		cv.Class = strings.Join(classes, " ")
		v.Rows[i/3][i%3] = cv
	}
	return v
}

const pageTemplate = `<!doctype html><html lang="en"><head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>Tic Tac Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org@1.9.12/dist/ext/sse.js"></script>
<style>
body{margin:0;font-family:system-ui,sans-serif;background:#f9fafb;color:#111827}
.gameShell{max-width:420px;margin:3rem auto;padding:1.5rem;background:#fff;border-radius:16px;box-shadow:0 10px 30px rgba(37,99,235,.12)}
.gameHeader{display:flex;justify-content:space-between;align-items:center;gap:1rem}
.gameTitle{margin:0;font-size:1.5rem}.gameSubtitle{margin:0;color:#6b7280;font-size:.85rem}
.statusPill{padding:.4rem .8rem;border-radius:999px;background:#eff6ff;color:#2563eb;font-weight:600}
.statusPill--win{background:#ecfdf5;color:#047857}.statusPill--draw{background:#fffbeb;color:#b45309}
.row{display:flex;gap:.5rem;margin-top:.5rem}.row form{flex:1}
.cell{width:100%;aspect-ratio:1;font-size:2rem;font-weight:700;border:1px solid #e5e7eb;border-radius:12px;background:#fff;cursor:pointer}
.cell:disabled{cursor:default}.cell--x{color:#2563eb}.cell--o{color:#f59e0b}
.cell--winning{background:#dbeafe;border-color:#2563eb}
.btnPrimary{margin-top:1rem;padding:.6rem 1.2rem;border:0;border-radius:10px;background:#2563eb;color:#fff;font-weight:600;cursor:pointer}
.hintText{color:#6b7280;font-size:.85rem}
</style>
</head><body>
<div class="appRoot">
  <main class="gameShell" aria-label="Tic Tac Toe">
    <header class="gameHeader">
      <div class="titleBlock">
        <h1 class="gameTitle">Tic Tac Toe</h1>
        <p class="gameSubtitle">Ocean Professional</p>
      </div>
    </header>
    <div hx-ext="sse" sse-connect="/events">
      <div id="board-stream" sse-swap="board" hx-swap="innerHTML">{{template "board" .}}</div>
    </div>
    <footer class="controls">
      <form action="/reset" method="post" hx-post="/reset" hx-target="#board" hx-swap="outerHTML">
        <button type="submit" class="btnPrimary">New game</button>
      </form>
      <p class="hintText">X starts. Click an empty square to place your mark.</p>
    </footer>
  </main>
</div>
</body></html>`

const boardTemplate = `<div id="board">
  <div class="statusPill {{.StatusClass}}" role="status" aria-live="polite">{{.Status.Label}}</div>
  <section class="boardCard" aria-label="Game board">
    <div class="board" role="grid" aria-label="3 by 3 board">
    {{- range .Rows}}
      <div class="row">
      {{- range .}}
        <form action="/play" method="post" hx-post="/play" hx-target="#board" hx-swap="outerHTML">
          <input type="hidden" name="cell" value="{{.Index}}">
          <button type="submit" role="gridcell" class="{{.Class}}" aria-label="{{.Label}}"{{if .Disabled}} disabled{{end}}><span class="cellValue" aria-hidden="true">{{cellSymbol .Mark}}</span></button>
        </form>
      {{- end}}
      </div>
    {{- end}}
    </div>
  </section>
</div>`
