package wrangle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func testLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

// writeTree creates the given files, keyed by slash-separated relative
// path, under a new temporary directory.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

const gridHeader32 = `
\begin{tabular}{p{1.2in}p{0.5in}p{0.5in}p{0.5in}p{0.3in}p{0.3in}p{0.6in}p{0.6in}p{0.6in}p{0.6in}p{0.6in}}
& & & & & & & & & & \\
&
\multicolumn{1}{l}{\instbit{31}} &
\multicolumn{1}{r}{\instbit{27}} &
\instbit{26} &
\instbit{25} &
\multicolumn{1}{l}{\instbit{24}} &
\multicolumn{1}{r}{\instbit{20}} &
\instbitrange{19}{15} &
\instbitrange{14}{12} &
\instbitrange{11}{7} &
\instbitrange{6}{0} \\
\cline{2-11}
`

// rTypeRow renders a row in the R-type layout.
func rTypeRow(funct7, rs2, rs1, funct3, rd, opcode, name string) string {
	return `
&
\multicolumn{4}{|c|}{` + funct7 + `} &
\multicolumn{2}{c|}{` + rs2 + `} &
\multicolumn{1}{c|}{` + rs1 + `} &
\multicolumn{1}{c|}{` + funct3 + `} &
\multicolumn{1}{c|}{` + rd + `} &
\multicolumn{1}{c|}{` + opcode + `} & ` + name + ` \\
\cline{2-11}
`
}

func iTypeRow(imm, rs1, funct3, rd, opcode, name string) string {
	return `
&
\multicolumn{6}{|c|}{` + imm + `} &
\multicolumn{1}{c|}{` + rs1 + `} &
\multicolumn{1}{c|}{` + funct3 + `} &
\multicolumn{1}{c|}{` + rd + `} &
\multicolumn{1}{c|}{` + opcode + `} & ` + name + ` \\
\cline{2-11}
`
}

func headingRow(text string) string {
	return `
&
\multicolumn{10}{c}{} & \\
&
\multicolumn{10}{c}{\bf ` + text + `} & \\
\cline{2-11}
`
}

func texTableDoc(rows ...string) string {
	return `% Instruction listing
\begin{table}[p]
\begin{small}
\begin{center}` + gridHeader32 + strings.Join(rows, "") + `
\end{tabular}
\end{center}
\end{small}
\end{table}
`
}

var instrTableTex = texTableDoc(
	rTypeRow("funct7", "rs2", "rs1", "funct3", "rd", "opcode", "R-type"),
	iTypeRow("imm[11:0]", "rs1", "funct3", "rd", "opcode", "I-type"),
	headingRow("RV32I Base Instruction Set"),
	iTypeRow("imm[11:0]", "rs1", "000", "rd", "0010011", "ADDI"),
	rTypeRow("0000000", "rs2", "rs1", "000", "rd", "0110011", "ADD"),
	rTypeRow("0100000", "rs2", "rs1", "000", "rd", "0110011", "SUB"),
)

var privInstrTableTex = texTableDoc(
	headingRow("Trap-Return Instructions"),
	rTypeRow("0011000", "00010", "00000", "000", "00000", "1110011", "MRET"),
)

const compressedFormsTex = `
\begin{table}[h]
\begin{center}
\setlength{\tabcolsep}{4pt}
\begin{tabular}{c l c c c c c c c c c c c c c c c c}
\hline
Format & Meaning &
\instbit{15} & \instbit{14} & \instbit{13} & \instbit{12} &
\instbit{11} & \instbit{10} & \instbit{9} & \instbit{8} & \instbit{7} &
\instbit{6} & \instbit{5} & \instbit{4} & \instbit{3} & \instbit{2} &
\instbit{1} & \instbit{0} \\
\hline
CR & Register & \multicolumn{4}{c|}{funct4} & \multicolumn{5}{c|}{rd/rs1} & \multicolumn{5}{c|}{rs2} & \multicolumn{2}{c|}{op} \\
CI & Immediate & \multicolumn{3}{c|}{funct3} & imm & \multicolumn{5}{c|}{rd/rs1} & \multicolumn{5}{c|}{imm} & \multicolumn{2}{c|}{op} \\
CIW & Wide Immediate & \multicolumn{3}{c|}{funct3} & \multicolumn{8}{c|}{imm} & \multicolumn{3}{c|}{rd$'$} & \multicolumn{2}{c|}{op} \\
CL & Load & \multicolumn{3}{c|}{funct3} & \multicolumn{3}{c|}{imm} & \multicolumn{3}{c|}{rs1$'$} & \multicolumn{2}{c|}{imm} & \multicolumn{3}{c|}{rd$'$} & \multicolumn{2}{c|}{op} \\
\hline
\end{tabular}
\end{center}
\end{table}
`

const rvcInstrTableTex = `
\begin{tabular}{p{0in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{0.05in}p{1.5in}}
&
\instbit{15} & \instbit{14} & \instbit{13} & \instbit{12} &
\instbit{11} & \instbit{10} & \instbit{9} & \instbit{8} & \instbit{7} &
\instbit{6} & \instbit{5} & \instbit{4} & \instbit{3} & \instbit{2} &
\instbit{1} & \instbit{0} \\
\cline{2-17}

&
\multicolumn{3}{|c|}{000} &
\multicolumn{8}{c|}{0} &
\multicolumn{3}{c|}{0} &
\multicolumn{2}{c|}{00} & {\em Illegal instruction} \\
\cline{2-17}

&
\multicolumn{3}{|c|}{000} &
\multicolumn{8}{c|}{nzuimm[5:4$\vert$9:6$\vert$2$\vert$3]} &
\multicolumn{3}{c|}{rd$'$} &
\multicolumn{2}{c|}{00} & C.ADDI4SPN {\em\tiny (RES, nzuimm=0)} \\
\cline{2-17}

&
\multicolumn{3}{|c|}{001} &
\multicolumn{3}{c|}{uimm[5:3]} &
\multicolumn{3}{c|}{rs1$'$} &
\multicolumn{2}{c|}{uimm[7:6]} &
\multicolumn{3}{c|}{rd$'$} &
\multicolumn{2}{c|}{00} & C.FLD {\em\tiny (RV32/64)} \\
\cline{2-17}

&
\multicolumn{3}{|c|}{001} &
\multicolumn{3}{c|}{uimm[5:4$\vert$8]} &
\multicolumn{3}{c|}{rs1$'$} &
\multicolumn{2}{c|}{uimm[7:6]} &
\multicolumn{3}{c|}{rd$'$} &
\multicolumn{2}{c|}{00} & C.LQ {\em\tiny (RV128)} \\
\cline{2-17}

&
\multicolumn{3}{|c|}{010} &
\multicolumn{3}{c|}{uimm[5:3]} &
\multicolumn{3}{c|}{rs1$'$} &
\multicolumn{2}{c|}{uimm[2$\vert$6]} &
\multicolumn{3}{c|}{rd$'$} &
\multicolumn{2}{c|}{00} & C.LW \\
\cline{2-17}

&
\multicolumn{3}{|c|}{000} &
\multicolumn{1}{c|}{0} &
\multicolumn{5}{c|}{0} &
\multicolumn{5}{c|}{0} &
\multicolumn{2}{c|}{01} & C.NOP \\
\cline{2-17}

&
\multicolumn{3}{|c|}{000} &
\multicolumn{1}{c|}{nzimm[5]} &
\multicolumn{5}{c|}{rs1/rd$\neq$0} &
\multicolumn{5}{c|}{nzimm[4:0]} &
\multicolumn{2}{c|}{01} & C.ADDI {\em\tiny (HINT, nzimm=0)} \\
\cline{2-17}
\end{tabular}
`

// manualTree returns the files of a small manual repository with all four
// documents.
func manualTree() map[string]string {
	return map[string]string{
		"src/instr-table.tex":      instrTableTex,
		"src/priv-instr-table.tex": privInstrTableTex,
		"src/c.tex":                compressedFormsTex,
		"src/rvc-instr-table.tex":  rvcInstrTableTex,
	}
}

func testConfig(root string) *Config {
	return &Config{
		SourceRoot: root,
		OutDir:     filepath.Join(root, "out"),
		Package:    "riscv",
		Format:     FormatGo,
	}
}

func compileTree(t *testing.T, files map[string]string) (*Tables, error) {
	t.Helper()
	gen, err := NewGenerator(testConfig(writeTree(t, files)), testLogger())
	require.NoError(t, err)
	return gen.Compile(context.Background())
}

func mustCompile(t *testing.T, files map[string]string) *Tables {
	t.Helper()
	tables, err := compileTree(t, files)
	require.NoError(t, err)
	return tables
}

func findEntry(t *testing.T, tables *Tables, key string) *DecodeEntry {
	t.Helper()
	for i := range tables.Instructions.Entries {
		if e := &tables.Instructions.Entries[i]; e.Key() == key {
			return e
		}
	}
	require.Failf(t, "missing entry", "no decode entry for %s", key)
	return nil
}
