// Package main provides the leapconnect CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapconnect/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
