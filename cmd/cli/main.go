// Package main is the entry point for the cloud-pricing CLI.
package main

import (
	"os"

	"cloud-pricing/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
