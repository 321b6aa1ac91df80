// Package main provides nutriplan-optimize, a command-line front end to the
// meal-plan optimizer and its recipe catalog
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
