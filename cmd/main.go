package main

import (
	"os"

	"github.com/quizwire/quizwire/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
