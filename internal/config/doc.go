// SPDX-License-Identifier: MPL-2.0

// Package config loads venvman settings from defaults, an optional
// venvman.toml file, and VENVMAN_* environment variables. Loading produces
// a single immutable Settings value that is passed explicitly to every
// component; there is no mutable global configuration state.
package config
