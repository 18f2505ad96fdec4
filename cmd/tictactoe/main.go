package main

import (
	"os"

	"github.com/jaminalder/ocean-tic-tac-toe/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
