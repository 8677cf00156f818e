// SPDX-License-Identifier: MPL-2.0

package main

import cmd "barkmods-cli/cmd/barkmods"

func main() {
	cmd.Execute()
}
