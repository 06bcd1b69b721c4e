package main

import (
	"os"

	"github.com/andrewpaige1/stratdesk-api/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
