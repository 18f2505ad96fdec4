// Package term draws a session for a terminal.
package term

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jaminalder/ocean-tic-tac-toe/internal/domain"
)

type styles struct {
	title   lipgloss.Style
	x       lipgloss.Style
	o       lipgloss.Style
	empty   lipgloss.Style
	winning lipgloss.Style
	grid    lipgloss.Style
	status  lipgloss.Style
	win     lipgloss.Style
	draw    lipgloss.Style
	hint    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		x:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),
		o:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		empty:   lipgloss.NewStyle().Faint(true),
		winning: lipgloss.NewStyle().Reverse(true),
		grid:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		win:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		draw:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("178")),
		hint:    lipgloss.NewStyle().Faint(true),
	}
}

// Render draws the board with empty cells numbered 1..9 and the status line.
func Render(s domain.Session) string {
	return render(s, newStyles())
}

func render(s domain.Session, st styles) string {
	status := s.Status()
	board := s.Board()

	rows := make([]string, 0, 5)
	for r := 0; r < 3; r++ {
		cells := make([]string, 3)
		for c := 0; c < 3; c++ {
			i := r*3 + c
			cells[c] = renderCell(board[i], i, status, st)
		}
		rows = append(rows, strings.Join(cells, st.grid.Render("|")))
		if r < 2 {
			rows = append(rows, st.grid.Render("---+---+---"))
		}
	}

	var line string
	switch status.State {
	case domain.Won:
		line = st.win.Render(status.Label)
	case domain.Drawn:
		line = st.draw.Render(status.Label)
	default:
		line = st.status.Render(status.Label)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		st.title.Render("Tic Tac Toe"),
		"",
		lipgloss.JoinVertical(lipgloss.Left, rows...),
		"",
		line,
	)
}

func renderCell(c domain.Cell, i int, status domain.Status, st styles) string {
	var text string
	switch c {
	case domain.X:
		text = st.x.Render("X")
	case domain.O:
		text = st.o.Render("O")
	default:
		text = st.empty.Render(strconv.Itoa(i + 1))
	}
	text = " " + text + " "
	if status.State == domain.Won && status.Line.Contains(i) {
		return st.winning.Render(text)
	}
	return text
}

// Hint is the input help shown under the board.
func Hint() string {
	return newStyles().hint.Render("1-9 place a mark, n new game, q quit")
}
