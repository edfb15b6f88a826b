package wrangle

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderGo(t *testing.T) {
	tables := mustCompile(t, manualTree())
	cfg := &Config{SourceRoot: "manual", Package: "isa", Format: FormatGo}
	outs, err := Render(tables, cfg)
	require.NoError(t, err)
	require.Len(t, outs, 2)
	require.Equal(t, "const_gen.go", outs[0].Name)
	require.Equal(t, "instr_table.go", outs[1].Name)

	consts := string(outs[0].Data)
	require.Contains(t, consts, "// Code generated by rvtablegen. DO NOT EDIT.")
	require.Contains(t, consts, "package isa\n")
	require.Contains(t, consts, "MASK_ADD")
	require.Contains(t, consts, "0xfe00707f")
	require.Contains(t, consts, "OPCODE_ADD")
	require.Contains(t, consts, "FORM_R_TYPE")
	require.Contains(t, consts, "MAJOR_OP_IMM")
	require.Contains(t, consts, "C_FIELD_RD_P")
	require.Regexp(t, `CAT_RV32C\s+Category = 2`, consts)

	table := string(outs[1].Data)
	require.Contains(t, table, "var Instructions = []Instruction{")
	require.Contains(t, table, "OperandCreg")
	require.Regexp(t, `Name:\s+"C.NOP"`, table)
	require.Regexp(t, `Shadows:\s+\[\]string\{"RV32C::C.ADDI"\}`, table)
	require.Regexp(t, `XLEN:\s+XLEN32 \| XLEN64,`, table)
	require.Contains(t, table, "// src/instr-table.tex:")
}

func TestRenderJSON(t *testing.T) {
	tables := mustCompile(t, opcodesTree())
	outs, err := Render(tables, &Config{Format: FormatJSON})
	require.NoError(t, err)
	require.Equal(t, "constants.json", outs[0].Name)
	require.Equal(t, "instructions.json", outs[1].Name)

	var consts struct {
		GeneratedFrom []string `json:"generatedFrom"`
		Constants     []struct {
			Name  string `json:"name"`
			Kind  string `json:"kind"`
			Value string `json:"value"`
		} `json:"constants"`
	}
	require.NoError(t, json.Unmarshal(outs[0].Data, &consts))
	require.NotEmpty(t, consts.GeneratedFrom)
	found := false
	for _, c := range consts.Constants {
		if c.Name == "MATCH_ADD" {
			require.Equal(t, "match", c.Kind)
			require.Equal(t, "0x33", c.Value)
			found = true
		}
	}
	require.True(t, found)

	var instrs struct {
		Formats      []json.RawMessage `json:"formats"`
		Instructions []struct {
			Name     string   `json:"name"`
			AliasOf  string   `json:"aliasOf"`
			Shadows  []string `json:"shadows"`
			Operands []struct {
				Name  string `json:"name"`
				Steps []struct {
					Field string `json:"field"`
					Mask  string `json:"mask"`
					Shift int    `json:"shift"`
				} `json:"steps"`
			} `json:"operands"`
		} `json:"instructions"`
	}
	require.NoError(t, json.Unmarshal(outs[1].Data, &instrs))
	require.Len(t, instrs.Instructions, len(tables.Instructions.Entries))
	require.NotEmpty(t, instrs.Formats)
	for _, in := range instrs.Instructions {
		if in.Name == "MOV" {
			require.Equal(t, "RV32I::ADD", in.AliasOf)
		}
		if in.Name == "BEQ" {
			require.Equal(t, "imm", in.Operands[2].Name)
			require.Equal(t, "0x80000000", in.Operands[2].Steps[0].Mask)
			require.Equal(t, 19, in.Operands[2].Steps[0].Shift)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	root := writeTree(t, manualTree())
	cfg := testConfig(root)
	gen, err := NewGenerator(cfg, testLogger())
	require.NoError(t, err)

	_, err = gen.Run(context.Background())
	require.NoError(t, err)
	first := readOutputs(t, cfg)

	_, err = gen.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, readOutputs(t, cfg))

	entries, err := os.ReadDir(cfg.OutDir)
	require.NoError(t, err)
	require.Len(t, entries, 2, "no temporary files are left behind")
}

func readOutputs(t *testing.T, cfg *Config) map[string][]byte {
	t.Helper()
	constFile, tableFile := cfg.OutputNames()
	ret := make(map[string][]byte)
	for _, name := range []string{constFile, tableFile} {
		data, err := os.ReadFile(filepath.Join(cfg.OutDir, name))
		require.NoError(t, err)
		ret[name] = data
	}
	return ret
}

func TestWriteOutputsCleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("old"), 0o644))
	// A directory where the second output should go makes the rename fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "b.go"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go", "x"), nil, 0o644))

	err := WriteOutputs(dir, []Output{
		{Name: "a.go", Data: []byte("new")},
		{Name: "b.go", Data: []byte("new")},
	})
	var we *WriteError
	require.ErrorAs(t, err, &we)
	require.Equal(t, filepath.Join(dir, "b.go"), we.Path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2, "temporary files are removed")
}

func TestCompileCancelled(t *testing.T) {
	gen, err := NewGenerator(testConfig(writeTree(t, manualTree())), testLogger())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gen.Compile(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
