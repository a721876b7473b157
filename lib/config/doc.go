// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the permit
// CLI.
//
// Configuration is loaded from a single file specified by either the
// PERMIT_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${PERMIT_ROOT}, and ${VAR:-default} patterns are expanded.
// No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- chain, signing domain, paths, storage and logging
//   - [Default] -- returns a Config with local development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other packages of this module.
package config
