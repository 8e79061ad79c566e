// SPDX-License-Identifier: MPL-2.0

// Package pytool drives the external environment tooling (the venv's Python
// interpreter and pip) as child processes. Invocation is fully structured:
// explicit executable, argument vector, working directory, and an
// environment overlay that expresses "activate the venv" — no shell strings
// are ever assembled.
//
// The parsers for pip's human-readable output live here too, so the rest of
// the system never depends on the tool's textual formats directly.
package pytool
