package main

import (
	"os"

	"github.com/godilite/exam-blueprint/cmd/blueprint/commands"
)

func main() {
	if err := commands.NewRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
