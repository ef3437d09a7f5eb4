package main

import (
	"os"

	"linkmgr/cmd/linkmgr/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
