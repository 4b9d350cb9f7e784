package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-pongoview/cmd/pongoview/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
