package main

import (
	"os"

	"asksource-be/cmd/asksource/cmds"
)

func main() {
	if err := cmds.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
