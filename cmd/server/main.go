package main

import (
	"os"
)

// main hands off to the cobra command tree. Business logic lives in the
// internal service packages; wiring lives in internal/app.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
