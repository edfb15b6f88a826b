package wrangle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigCheck(t *testing.T) {
	valid := func() *Config {
		return &Config{SourceRoot: "manual", OutDir: "out", Package: "riscv", Format: FormatGo}
	}
	require.NoError(t, valid().Check())

	tests := map[string]func(*Config){
		"no source":        func(c *Config) { c.SourceRoot = "" },
		"bad package":      func(c *Config) { c.Package = "risc-v" },
		"empty package":    func(c *Config) { c.Package = "" },
		"unknown format":   func(c *Config) { c.Format = "rust" },
		"negative jobs":    func(c *Config) { c.Jobs = -1 },
		"nested file":      func(c *Config) { c.ConstFile = "sub/const.go" },
		"same file names":  func(c *Config) { c.ConstFile, c.TableFile = "tables.go", "tables.go" },
		"parent directory": func(c *Config) { c.TableFile = ".." },
	}
	for name, mutate := range tests {
		cfg := valid()
		mutate(cfg)
		require.Error(t, cfg.Check(), name)
	}

	cfg := valid()
	cfg.Format = FormatJSON
	cfg.Package = ""
	require.NoError(t, cfg.Check(), "json output needs no package")
}

func TestConfigOutputNames(t *testing.T) {
	cfg := &Config{Format: FormatGo}
	c, tbl := cfg.OutputNames()
	require.Equal(t, "const_gen.go", c)
	require.Equal(t, "instr_table.go", tbl)

	cfg.Format = FormatJSON
	c, tbl = cfg.OutputNames()
	require.Equal(t, "constants.json", c)
	require.Equal(t, "instructions.json", tbl)

	cfg.ConstFile = "consts.json"
	c, _ = cfg.OutputNames()
	require.Equal(t, "consts.json", c)

	require.Greater(t, cfg.jobs(), 0)
	cfg.Jobs = 3
	require.Equal(t, 3, cfg.jobs())
}
