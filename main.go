// Package main provides the entry point for ripecheck.
package main

import (
	"log"
	"os"

	"ripecheck/cmd"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
