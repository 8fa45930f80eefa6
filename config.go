package vdsohook

import "github.com/xyproto/env/v2"

// Verbose gates the package's diagnostic trace lines (vDSO location, patch
// installs and restores). It mirrors the VerboseMode pattern seen across the
// xyproto ecosystem: a package-level switch, not a logging framework.
// Defaults from VDSOHOOK_VERBOSE.
var Verbose = env.Bool("VDSOHOOK_VERBOSE")

// ForcedArch overrides DetectArch's use of runtime.GOARCH when set, from
// VDSOHOOK_FORCE_ARCH. It exists so tests can exercise the
// UnsupportedArchitecture path without a foreign-architecture machine.
var ForcedArch = env.Str("VDSOHOOK_FORCE_ARCH", "")
