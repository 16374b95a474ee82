// Package main is the entry point for the nv CLI tool.
package main

import (
	"errors"
	"os"

	// Command packages register themselves from init.
	_ "github.com/aidanlsb/nounverb/internal/builtin"
	"github.com/aidanlsb/nounverb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
