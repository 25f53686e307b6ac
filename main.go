// Package main provides the entry point for the raiku simulator.
package main

import (
	"os"

	"github.com/iamprecieee/raiku-simulator/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
