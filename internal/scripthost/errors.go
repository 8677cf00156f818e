// SPDX-License-Identifier: MPL-2.0

package scripthost

import (
	"errors"
	"fmt"
)

const (
	// PhaseLoad covers reading and compiling the script.
	PhaseLoad Phase = "load"
	// PhaseRun covers executing the compiled chunk.
	PhaseRun Phase = "run"
)

// ErrHostCodeDisabled is the message returned to scripts calling
// run_arbitrary_host_code without trust.
var ErrHostCodeDisabled = errors.New("host code execution disabled")

type (
	// Phase names the step of an execution that failed.
	Phase string

	// ScriptError is a failed script execution. It is isolated to one mod:
	// callers record it and move on.
	ScriptError struct {
		// Mod is the package filename the script came from.
		Mod   string
		Phase Phase
		Err   error
	}
)

func (e *ScriptError) Error() string {
	return fmt.Sprintf("mod %s: script %s failed: %v", e.Mod, e.Phase, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}
