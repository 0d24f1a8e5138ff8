// CUE schema validation code
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	"lorawan-sim/schemas"
)

// SchemaDefinition is the CUE definition a simulation file must satisfy.
const SchemaDefinition = "#Simulation"

// ValidateWithCue checks YAML source against the #Simulation definition read
// from cueFile, or the embedded schema when cueFile is empty. filename is only
// used in error positions.
func ValidateWithCue(filename string, src []byte, cueFile string) error {
	schemaBytes := schemas.Simulation
	if cueFile != "" {
		b, err := os.ReadFile(cueFile)
		if err != nil {
			return fmt.Errorf("cannot read CUE schema: %w", err)
		}
		schemaBytes = b
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaBytes, cue.Filename("simulation.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath(SchemaDefinition))
	if !def.Exists() {
		return fmt.Errorf("CUE schema has no %s definition", SchemaDefinition)
	}

	file, err := yaml.Extract(filename, src)
	if err != nil {
		return fmt.Errorf("cannot parse YAML config: %w", err)
	}
	configVal := ctx.BuildFile(file)
	if err := configVal.Err(); err != nil {
		return fmt.Errorf("cannot build YAML config: %w", err)
	}

	final := def.Unify(configVal)
	if err := final.Validate(); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
