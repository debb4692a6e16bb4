// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for the BounCA console client.
//
// Usage:
//
//	go run . [command]
//	./bounca-console [command]
//
// See --help for the available commands.
package main

import (
	"log"
	"os"

	"github.com/repleo/bounca/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("bounca-console error: %v", err)
		os.Exit(1)
	}
}
