// SPDX-License-Identifier: MPL-2.0

package scripthost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// runHostCode parses code as POSIX shell and runs it in-process with the
// environment and privileges of barkmods itself. Only trusted hosts call it.
func (h *Host) runHostCode(ctx context.Context, mod, code string) (string, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(code), mod)
	if err != nil {
		return "", fmt.Errorf("parse host code: %w", err)
	}

	dir := h.hostCodeDir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
	}

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, &stdout, &stderr),
	)
	if err != nil {
		return "", fmt.Errorf("create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return "", fmt.Errorf("exit status %d: %s", exitStatus, strings.TrimSpace(stderr.String()))
		}
		return "", err
	}
	return stdout.String(), nil
}
