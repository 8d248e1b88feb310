// Package main provides the entry point for the dealsync CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/openlot/dealsync-go/internal/cli"
)

func main() {
	// Best effort; a missing .env is the normal case in production.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
