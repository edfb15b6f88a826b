package wrangle

import (
	"errors"
	"fmt"
	"go/token"
	"path/filepath"
	"runtime"
)

// OutputFormat selects the emitter.
type OutputFormat string

const (
	FormatGo   OutputFormat = "go"
	FormatJSON OutputFormat = "json"
)

// Config is everything a generation run needs.
type Config struct {
	// SourceRoot is the cloned manual or opcodes repository.
	SourceRoot string

	OutDir  string
	Package string
	Format  OutputFormat

	// ConstFile and TableFile override the default output file names.
	ConstFile string
	TableFile string

	// Jobs bounds how many documents are parsed at once; zero means one
	// per CPU.
	Jobs int

	// Optional lists documents, relative to SourceRoot, that may be
	// skipped when malformed.
	Optional []string
}

func (c *Config) Check() error {
	if c.SourceRoot == "" {
		return errors.New("missing source repository path")
	}
	switch c.Format {
	case FormatGo:
		if !token.IsIdentifier(c.Package) {
			return fmt.Errorf("invalid package name %q", c.Package)
		}
	case FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("invalid job count %d", c.Jobs)
	}
	constFile, tableFile := c.OutputNames()
	for _, name := range []string{constFile, tableFile} {
		if name != filepath.Base(name) || name == "." || name == ".." {
			return fmt.Errorf("output file %q must be a plain file name", name)
		}
	}
	if constFile == tableFile {
		return fmt.Errorf("constants and table files are both named %q", constFile)
	}
	return nil
}

// OutputNames returns the two output file names, applying the defaults of
// the selected format.
func (c *Config) OutputNames() (constFile, tableFile string) {
	constFile, tableFile = c.ConstFile, c.TableFile
	if constFile == "" {
		constFile = "const_gen.go"
		if c.Format == FormatJSON {
			constFile = "constants.json"
		}
	}
	if tableFile == "" {
		tableFile = "instr_table.go"
		if c.Format == FormatJSON {
			tableFile = "instructions.json"
		}
	}
	return constFile, tableFile
}

func (c *Config) jobs() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	return runtime.NumCPU()
}
