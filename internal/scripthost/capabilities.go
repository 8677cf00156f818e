// SPDX-License-Identifier: MPL-2.0

package scripthost

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Shopify/go-lua"
)

// Capabilities lists the host functions every script can call.
func Capabilities() []string {
	names := make([]string, 0, len(capabilityNames))
	names = append(names, capabilityNames...)
	return names
}

var capabilityNames = []string{
	"open_window",
	"print_debug",
	"alert",
	"get_mod_name",
	"ask_file",
	"save_file",
	"run_arbitrary_host_code",
}

func (ex *execution) register(state *lua.State) {
	for _, fn := range []lua.RegistryFunction{
		{Name: "open_window", Function: ex.openWindow},
		{Name: "print_debug", Function: ex.printDebug},
		{Name: "alert", Function: ex.alert},
		{Name: "get_mod_name", Function: ex.getModName},
		{Name: "ask_file", Function: ex.askFile},
		{Name: "save_file", Function: ex.saveFile},
		{Name: "run_arbitrary_host_code", Function: ex.runArbitraryHostCode},
		// print goes to the log stream like print_debug.
		{Name: "print", Function: ex.print},
	} {
		state.Register(fn.Name, fn.Function)
	}
}

// checkCanceled aborts the script once the execution context is done.
func (ex *execution) checkCanceled(state *lua.State) {
	if err := ex.ctx.Err(); err != nil {
		lua.Errorf(state, "execution canceled: %s", err.Error())
	}
}

// callShell runs f against the attached shell, turning a shell panic into a
// script error. It reports false when no shell is attached.
func (ex *execution) callShell(state *lua.State, capability string, f func(Shell)) (attached bool) {
	shell := ex.host.shell
	if shell == nil {
		return false
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				// pushfstring only understands %s, %d, %f, %p and %c.
				lua.Errorf(state, "%s", fmt.Sprintf("%s: host shell failed: %v", capability, r))
			}
		}()
		f(shell)
	}()
	return true
}

func (ex *execution) openWindow(state *lua.State) int {
	ex.checkCanceled(state)
	title := lua.OptString(state, 1, "")
	if !ex.callShell(state, "open_window", func(s Shell) { s.OpenWindow(title) }) {
		ex.logger.Warn("open_window ignored: no host shell attached", "title", title)
	}
	return 0
}

func (ex *execution) printDebug(state *lua.State) int {
	ex.logger.Info(valueString(state, 1))
	return 0
}

func (ex *execution) print(state *lua.State) int {
	n := state.Top()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, valueString(state, i))
	}
	ex.logger.Info(strings.Join(parts, " "))
	return 0
}

// valueString renders the value at index for the log stream. A missing
// argument renders as the empty string.
func valueString(state *lua.State, index int) string {
	if s, ok := state.ToString(index); ok {
		return s
	}
	switch state.TypeOf(index) {
	case lua.TypeNone:
		return ""
	case lua.TypeNil:
		return "nil"
	case lua.TypeBoolean:
		return strconv.FormatBool(state.ToBoolean(index))
	default:
		return lua.TypeNameOf(state, index)
	}
}

func (ex *execution) alert(state *lua.State) int {
	ex.checkCanceled(state)
	title := lua.OptString(state, 1, "")
	message := lua.OptString(state, 2, "")
	if !ex.callShell(state, "alert", func(s Shell) { s.Alert(title, message) }) {
		ex.logger.Warn("alert", "title", title, "message", message)
	}
	return 0
}

func (ex *execution) getModName(state *lua.State) int {
	state.PushString(ex.mod.Name())
	return 1
}

func (ex *execution) askFile(state *lua.State) int {
	ex.checkCanceled(state)
	var (
		path string
		ok   bool
	)
	if !ex.callShell(state, "ask_file", func(s Shell) { path, ok = s.AskFile() }) {
		ex.logger.Warn("ask_file ignored: no host shell attached")
	}
	if !ok {
		path = ""
	}
	state.PushString(path)
	return 1
}

func (ex *execution) saveFile(state *lua.State) int {
	ex.checkCanceled(state)
	contents := lua.CheckString(state, 1)
	var (
		path string
		ok   bool
	)
	if !ex.callShell(state, "save_file", func(s Shell) { path, ok = s.AskSavePath() }) {
		ex.logger.Warn("save_file ignored: no host shell attached")
	}
	if !ok || path == "" {
		state.PushString("")
		return 1
	}

	//nolint:gosec // G306: the user picked the destination in the save prompt
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		lua.Errorf(state, "save_file: %s", err.Error())
	}
	ex.logger.Debug("save_file wrote", "path", path, "bytes", len(contents))
	state.PushString(path)
	return 1
}

func (ex *execution) runArbitraryHostCode(state *lua.State) int {
	ex.checkCanceled(state)
	code := lua.CheckString(state, 1)

	if !ex.host.trustHostCode {
		ex.logger.Warn("run_arbitrary_host_code blocked", "reason", ErrHostCodeDisabled)
		state.PushNil()
		state.PushString(ErrHostCodeDisabled.Error())
		return 2
	}

	ex.logger.Warn("running host code with full privileges", "bytes", len(code))
	out, err := ex.host.runHostCode(ex.ctx, ex.mod.FileName, code)
	if err != nil {
		state.PushNil()
		state.PushString(fmt.Sprintf("%v", err))
		return 2
	}
	state.PushString(out)
	return 1
}
