package wrangle

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
)

// TableShape says how the rows of a document are laid out. Each document
// has exactly one shape and ParseDocument dispatches on it.
type TableShape uint8

const (
	// ShapeGridTable is a LaTeX tabular whose header row labels grid
	// columns with \instbit / \instbitrange and whose instruction rows are
	// \multicolumn field cells followed by a mnemonic cell.
	ShapeGridTable TableShape = iota + 1

	// ShapeFormList is the compressed format table: a format name, its
	// meaning, then sixteen one-bit grid columns.
	ShapeFormList

	// ShapeOpcodeList is the line-oriented riscv-opcodes layout:
	// "name args... hi..lo=value".
	ShapeOpcodeList
)

func (s TableShape) String() string {
	switch s {
	case ShapeGridTable:
		return "grid-table"
	case ShapeFormList:
		return "form-list"
	case ShapeOpcodeList:
		return "opcode-list"
	}
	return fmt.Sprintf("TableShape(%d)", uint8(s))
}

// Document is one source file the generator reads.
type Document struct {
	// Path is the file's location on disk; Rel is the same path relative
	// to the source root, which is what diagnostics and output report.
	Path string
	Rel  string

	Shape TableShape

	// Default is the category of rows that appear before any category
	// heading. The zero Standard means such rows are an error.
	Default Standard

	// XLENs restricts every row of the document, for opcode listings whose
	// file name carries a base width.
	XLENs XLENs

	// Optional documents may be skipped when they turn out to be
	// malformed.
	Optional bool
}

func (d Document) loc(line int) Location {
	return Location{Path: d.Rel, Line: line}
}

// ParsedDocument is everything one document contributes.
type ParsedDocument struct {
	Doc        Document
	Specs      []InstructionSpec
	Forms      []FormDecl
	Categories []Standard
}

// ParseEnv carries what the parsers need beyond the document itself.
type ParseEnv struct {
	// Args maps riscv-opcodes argument names to their bit positions and
	// operand fragments. Only ShapeOpcodeList documents use it.
	Args map[string]*Argument

	Log log.Logger
}

// ParseDocument reads one document and turns its rows into instruction
// specs and format declarations. All malformed rows found in the document
// are reported together as an ErrorList.
func ParseDocument(doc Document, env *ParseEnv) (*ParsedDocument, error) {
	src, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", doc.Rel, err)
	}
	logger := env.Log.New("doc", doc.Rel, "shape", doc.Shape)

	var ret *ParsedDocument
	switch doc.Shape {
	case ShapeGridTable:
		ret, err = parseGridTables(doc, string(src), logger)
	case ShapeFormList:
		ret, err = parseFormList(doc, string(src), logger)
	case ShapeOpcodeList:
		ret, err = parseOpcodeList(doc, string(src), env.Args, logger)
	default:
		return nil, fmt.Errorf("%s: unsupported table shape %s", doc.Rel, doc.Shape)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("Parsed document", "instructions", len(ret.Specs), "forms", len(ret.Forms))
	return ret, nil
}
