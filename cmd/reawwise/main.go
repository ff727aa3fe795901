package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"reawwise/internal/session"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode reports err on stderr and maps it to a process status. Declining
// the transfer prompt is not a failure; an interrupt exits like a shell would.
func exitCode(err error) int {
	switch {
	case errors.Is(err, session.ErrDeclined):
		fmt.Fprintln(os.Stderr, "Transfer cancelled")
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}
