package main

import (
	"fmt"
	"os"
)

// Exit codes. A partial transfer exits with its own code so scripts can
// retry it.
const (
	exitError   = 1
	exitPartial = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if isPartial(err) {
			os.Exit(exitPartial)
		}
		os.Exit(exitError)
	}
}
