// Package main implements the pomochat bot and its inspection commands.
package main

import (
	"os"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}
