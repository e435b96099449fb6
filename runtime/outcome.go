package runtime

import (
	"fmt"

	"github.com/pithecene-io/placeback/types"
)

// Process exit codes, one per outcome status.
const (
	ExitCodeSuccess       = 0
	ExitCodeFormatError   = 1
	ExitCodeResourceError = 2
	ExitCodeSinkError     = 3
	ExitCodeCanceled      = 4
)

// DetermineOutcome maps a replay error to a run outcome. A nil error is
// success. Internal errors are reported as format errors since they come
// from invalid run input.
func DetermineOutcome(err error) *types.RunOutcome {
	c := Classify(err)
	if c == nil {
		return &types.RunOutcome{
			Status:  types.OutcomeSuccess,
			Message: "run completed successfully",
		}
	}

	switch c.Kind {
	case RunErrorFormat:
		return &types.RunOutcome{
			Status:  types.OutcomeFormatError,
			Message: fmt.Sprintf("format error: %v", err),
		}
	case RunErrorResource:
		return &types.RunOutcome{
			Status:  types.OutcomeResourceError,
			Message: fmt.Sprintf("resource error: %v", err),
		}
	case RunErrorSink:
		return &types.RunOutcome{
			Status:  types.OutcomeSinkError,
			Message: fmt.Sprintf("sink error: %v", err),
		}
	case RunErrorCanceled:
		return &types.RunOutcome{
			Status:  types.OutcomeCanceled,
			Message: fmt.Sprintf("run canceled: %v", err),
		}
	default:
		return &types.RunOutcome{
			Status:  types.OutcomeFormatError,
			Message: fmt.Sprintf("run failed: %v", err),
		}
	}
}

// ExitCode returns the process exit code for an outcome status.
func ExitCode(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeSuccess:
		return ExitCodeSuccess
	case types.OutcomeFormatError:
		return ExitCodeFormatError
	case types.OutcomeResourceError:
		return ExitCodeResourceError
	case types.OutcomeSinkError:
		return ExitCodeSinkError
	case types.OutcomeCanceled:
		return ExitCodeCanceled
	default:
		return ExitCodeFormatError
	}
}
