// SPDX-License-Identifier: MPL-2.0

// Package scripthost runs mod.lua scripts in an embedded Lua interpreter.
//
// Each execution gets a fresh interpreter state with a reduced standard
// library (no io, os, package or debug; no dofile or loadfile) and a fixed set
// of host capabilities registered as globals:
//
//	open_window(title)
//	print_debug(message)
//	alert(title, message)
//	get_mod_name()
//	ask_file()
//	save_file(contents)
//	run_arbitrary_host_code(code)
//
// Capabilities read the executing mod and the attached Shell from a
// per-execution context, never from package state, so no two scripts can
// observe each other.
//
// run_arbitrary_host_code runs shell code with the privileges of the barkmods
// process. It is disabled unless Options.TrustHostCode is set; enabling it is
// equivalent to turning the sandbox off for every script the host runs.
package scripthost
