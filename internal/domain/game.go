package domain

import "fmt"

// Cell represents a board cell state. The non-empty values double as players.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

// String returns "X", "O", or "" for Empty.
func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Opponent returns the other player. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// Board is a fixed 3x3 board stored row-major:
//
//	0 1 2
//	3 4 5
//	6 7 8
type Board [9]Cell

// Full reports whether every cell is marked.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Line is a triple of board indices.
type Line [3]int

// Contains reports whether index i is one of the line's cells.
func (l Line) Contains(i int) bool {
	return l[0] == i || l[1] == i || l[2] == i
}

// Lines lists the winning lines in scan order.
var Lines = [8]Line{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// Result is the evaluator's verdict kind.
type Result uint8

const (
	NoWinnerYet Result = iota
	Win
	Draw
)

// Outcome is the verdict on a board snapshot. Winner and Line are set only for Win.
type Outcome struct {
	Result Result
	Winner Cell
	Line   Line
}

// Evaluate scans Lines in order and reports the first completed one.
func Evaluate(b Board) Outcome {
	for _, ln := range Lines {
		c := b[ln[0]]
		if c != Empty && b[ln[1]] == c && b[ln[2]] == c {
			return Outcome{Result: Win, Winner: c, Line: ln}
		}
	}
	if b.Full() {
		return Outcome{Result: Draw}
	}
	return Outcome{Result: NoWinnerYet}
}

// State is the session state machine position.
type State uint8

const (
	InProgress State = iota
	Won
	Drawn
)

// String returns a lower-case name for logs.
func (s State) String() string {
	switch s {
	case Won:
		return "won"
	case Drawn:
		return "drawn"
	default:
		return "in_progress"
	}
}

// Status is a read-only view of a session.
// Player is the side to move while InProgress and the winner when Won.
type Status struct {
	State  State
	Player Cell
	Line   Line
	Label  string
}

// Session holds the board and the side to move. The zero value is a fresh
// session with X to move.
type Session struct {
	board Board
	turn  Cell
}

// New returns a fresh session with X to move.
func New() Session {
	return Session{turn: X}
}

// Board returns a copy of the current board.
func (s *Session) Board() Board { return s.board }

// Turn returns the side to move. It keeps the last mover once the game is over.
func (s *Session) Turn() Cell {
	if s.turn == Empty {
		return X
	}
	return s.turn
}

// Moves counts the marks on the board.
func (s *Session) Moves() int {
	n := 0
	for _, c := range s.board {
		if c != Empty {
			n++
		}
	}
	return n
}

// Over reports whether the session reached a terminal state.
func (s *Session) Over() bool {
	return Evaluate(s.board).Result != NoWinnerYet
}

// CanPlay reports whether ApplyMove(i) would change the session.
func (s *Session) CanPlay(i int) bool {
	if i < 0 || i >= len(s.board) {
		return false
	}
	return s.board[i] == Empty && !s.Over()
}

// ApplyMove marks cell i for the side to move. Moves after the game ended,
// out of range, or onto an occupied cell are ignored.
func (s *Session) ApplyMove(i int) {
	if !s.CanPlay(i) {
		return
	}
	mover := s.Turn()
	s.board[i] = mover
	s.turn = mover
	if Evaluate(s.board).Result == NoWinnerYet {
		s.turn = mover.Opponent()
	}
}

// Reset starts over with an empty board and X to move.
func (s *Session) Reset() {
	*s = New()
}

// Status derives the state machine position and its label from the board.
func (s *Session) Status() Status {
	out := Evaluate(s.board)
	switch out.Result {
	case Win:
		return Status{
			State:  Won,
			Player: out.Winner,
			Line:   out.Line,
			Label:  fmt.Sprintf("Player %s wins", out.Winner),
		}
	case Draw:
		return Status{State: Drawn, Label: "Draw game"}
	default:
		return Status{
			State:  InProgress,
			Player: s.Turn(),
			Label:  fmt.Sprintf("Current player: %s", s.Turn()),
		}
	}
}
