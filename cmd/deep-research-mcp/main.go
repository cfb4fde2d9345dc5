package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess        = 0 // Command completed
	ExitResearchFailed = 1 // Research ran but ended failed or timed out
	ExitError          = 2 // Configuration or runtime error
)

// ResearchFailedError indicates that a one-shot research task ran,
// but ended in a failed state or never reached a terminal one.
type ResearchFailedError struct {
	Message string
}

func (e *ResearchFailedError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var researchErr *ResearchFailedError
		if errors.As(err, &researchErr) {
			os.Exit(ExitResearchFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
