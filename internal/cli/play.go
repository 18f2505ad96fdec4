package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jaminalder/ocean-tic-tac-toe/internal/domain"
	"github.com/jaminalder/ocean-tic-tac-toe/internal/term"
	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play a hot-seat game in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return play(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// play reads one command per line: 1-9 places a mark, n starts over, q quits.
// Anything else, including moves the board does not accept, just redraws.
func play(in io.Reader, out io.Writer) error {
	s := domain.New()
	draw := func() error {
		_, err := fmt.Fprintf(out, "%s\n%s\n> ", term.Render(s), term.Hint())
		return err
	}

	if err := draw(); err != nil {
		return err
	}
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		switch input := strings.ToLower(strings.TrimSpace(sc.Text())); input {
		case "q", "quit":
			return nil
		case "n", "new":
			s.Reset()
		default:
			if n, err := strconv.Atoi(input); err == nil {
				s.ApplyMove(n - 1)
			}
		}
		if err := draw(); err != nil {
			return err
		}
	}
	return sc.Err()
}
