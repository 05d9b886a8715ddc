package main

import (
	"errors"
	"fmt"
	"os"

	"ghostbuild/internal/pipeline"
)

// Exit codes for different failure modes
const (
	ExitSuccess      = 0 // Build written
	ExitPrecondition = 1 // Winning or sets table was empty
	ExitError        = 2 // Configuration or runtime error
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, pipeline.ErrEmptyWinning), errors.Is(err, pipeline.ErrEmptySets):
		return ExitPrecondition
	default:
		return ExitError
	}
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
