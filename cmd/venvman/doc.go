// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for venvman.
//
// Each subcommand is a thin layer over the core packages: the reconcile
// engine owns install/uninstall/list/update end to end, the scaffold package
// owns init, and the pytool adapter owns run. The command layer only parses
// arguments, wires dependencies, and renders results.
package cmd
