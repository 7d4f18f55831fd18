package main

import (
	"fmt"
	"io"

	"github.com/tliron/commonlog"

	"github.com/chazu/brain/server"
)

// handleLSPCommand serves the language server on stdio until the client
// disconnects.
func handleLSPCommand(args []string, stderr io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(stderr, "Usage: brc lsp\n")
		return 2
	}
	// stdout carries the protocol; logs go to stderr
	commonlog.Configure(1, nil)
	if err := server.NewLSP().Run(); err != nil {
		fmt.Fprintf(stderr, "lsp: %v\n", err)
		return 1
	}
	return 0
}
