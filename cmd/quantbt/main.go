package main

import (
	"os"

	"github.com/wonny/quantbt/cmd/quantbt/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
