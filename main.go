// Package main is the entry point for the content pipeline service.
package main

import (
	"fmt"
	"os"

	"github.com/techpath/content-pipeline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
