// SPDX-License-Identifier: MPL-2.0

package scripthost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/charmbracelet/log"

	"barkmods-cli/pkg/manifest"
)

// UnknownMod is what get_mod_name returns when no manifest is bound.
const UnknownMod = "Unknown Mod"

type (
	// Shell is the host UI a script may talk to. Every method is a request:
	// a shell may ignore it. ok is false when the user cancels a prompt.
	Shell interface {
		OpenWindow(title string)
		Alert(title, message string)
		AskFile() (path string, ok bool)
		AskSavePath() (path string, ok bool)
	}

	// Options configures a Host.
	Options struct {
		// Logger receives print_debug output and capability warnings.
		Logger *log.Logger
		// Shell is the attached host UI. Nil makes UI capabilities degrade to
		// log lines and empty results.
		Shell Shell
		// TrustHostCode enables run_arbitrary_host_code.
		TrustHostCode bool
		// HostCodeDir is the working directory for host code. Empty means the
		// process working directory.
		HostCodeDir string
	}

	// ModContext identifies the mod whose script is executing.
	ModContext struct {
		// FileName is the package filename, used in logs and errors.
		FileName string
		// Manifest is the decoded manifest, nil when none is bound.
		Manifest *manifest.Manifest
	}

	// Host executes mod scripts. A Host holds no per-script state and runs one
	// script at a time per call; callers serialize executions.
	Host struct {
		logger        *log.Logger
		shell         Shell
		trustHostCode bool
		hostCodeDir   string
	}

	// execution is the context object every capability of one run is bound to.
	execution struct {
		ctx    context.Context
		host   *Host
		mod    ModContext
		logger *log.Logger
	}
)

// New creates a Host.
func New(opts Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Host{
		logger:        logger,
		shell:         opts.Shell,
		trustHostCode: opts.TrustHostCode,
		hostCodeDir:   opts.HostCodeDir,
	}
}

// TrustsHostCode reports whether run_arbitrary_host_code is enabled.
func (h *Host) TrustsHostCode() bool {
	return h.trustHostCode
}

// Name returns the mod name capabilities report for mod.
func (m ModContext) Name() string {
	if m.Manifest == nil || strings.TrimSpace(m.Manifest.Name) == "" {
		return UnknownMod
	}
	return m.Manifest.Name
}

// Execute runs source once, top to bottom, in a fresh interpreter.
//
// Every failure comes back as a *ScriptError, including panics raised by a
// Shell implementation. Execute never panics.
func (h *Host) Execute(ctx context.Context, mod ModContext, source string) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &ScriptError{Mod: mod.FileName, Phase: PhaseLoad, Err: ctxErr}
	}

	ex := &execution{
		ctx:    ctx,
		host:   h,
		mod:    mod,
		logger: h.logger.With("mod", mod.FileName),
	}

	phase := PhaseLoad
	defer func() {
		if r := recover(); r != nil {
			err = &ScriptError{Mod: mod.FileName, Phase: phase, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	state := lua.NewState()
	openSandbox(state)
	ex.register(state)

	if loadErr := lua.LoadBuffer(state, source, "@"+mod.FileName, "t"); loadErr != nil {
		return &ScriptError{Mod: mod.FileName, Phase: PhaseLoad, Err: stackError(state, loadErr)}
	}

	phase = PhaseRun
	if runErr := state.ProtectedCall(0, 0, 0); runErr != nil {
		return &ScriptError{Mod: mod.FileName, Phase: PhaseRun, Err: stackError(state, runErr)}
	}
	return nil
}

// sandboxLibraries are the only standard libraries scripts can reach.
var sandboxLibraries = []lua.RegistryFunction{
	{Name: "_G", Function: lua.BaseOpen},
	{Name: "string", Function: lua.StringOpen},
	{Name: "table", Function: lua.TableOpen},
	{Name: "math", Function: lua.MathOpen},
	{Name: "bit32", Function: lua.Bit32Open},
}

// removedGlobals are base library functions that reach the filesystem.
var removedGlobals = []string{"dofile", "loadfile"}

func openSandbox(state *lua.State) {
	for _, lib := range sandboxLibraries {
		lua.Require(state, lib.Name, lib.Function, true)
		state.Pop(1)
	}
	for _, name := range removedGlobals {
		state.PushNil()
		state.SetGlobal(name)
	}
}

// stackError prefers the message the interpreter left on the stack, which
// carries the chunk name and line.
func stackError(state *lua.State, err error) error {
	if state.Top() > 0 {
		if msg, ok := state.ToString(-1); ok && msg != "" && msg != err.Error() {
			return fmt.Errorf("%w: %s", err, msg)
		}
	}
	if err == nil {
		return errors.New("unknown script error")
	}
	return err
}
