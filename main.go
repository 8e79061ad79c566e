// SPDX-License-Identifier: MPL-2.0

package main

import cmd "venvman/cmd/venvman"

func main() {
	cmd.Execute()
}
