// Package main provides the entry point for cacaio, a command line toolkit
// that scores cell lines, tumors and external bulk samples against each other
// by distance correlation in a shared principal-component space.
//
// Usage:
//
//	cacaio [flags] <command> [args]
//
// Commands:
//
//	compare     - cell line vs tumor centroids of one embedding
//	crossmodal  - bulk samples vs pseudo-bulk centroids after Harmony
//	enrich      - Enrichr terms for a DEG contrast
//	fit         - fit the scaler and PCA of an embedding space
//	demo        - write a synthetic catalogue
//	browse      - terminal browser over a saved snapshot
//	version     - print the version
package main

import (
	"fmt"
	"os"

	"github.com/CaioMussatto/Cacaio-docker/commands"
)

// version is set at build time via ldflags, defaults to "dev" for local builds
var version = "dev"

func main() {
	if err := commands.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
