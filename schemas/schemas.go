// Package schemas embeds the CUE schemas for configuration files.
package schemas

import _ "embed"

// Simulation is the CUE source defining #Simulation.
//
//go:embed simulation.cue
var Simulation []byte
