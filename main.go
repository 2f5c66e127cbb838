package main

import (
	"os"

	"github.com/conneroisu/sandcastle/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
