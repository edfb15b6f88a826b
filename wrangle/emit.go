package wrangle

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
)

// Output is one rendered file, named relative to the output directory.
type Output struct {
	Name string
	Data []byte
}

// Render serializes the tables in the configured format. The result is the
// constants file followed by the instruction table file.
func Render(t *Tables, cfg *Config) ([]Output, error) {
	constFile, tableFile := cfg.OutputNames()
	var consts, table []byte
	var err error
	switch cfg.Format {
	case FormatJSON:
		if consts, err = renderJSONConstants(t); err != nil {
			return nil, err
		}
		if table, err = renderJSONInstructions(t); err != nil {
			return nil, err
		}
	default:
		if consts, err = renderGoConstants(t, cfg.Package); err != nil {
			return nil, err
		}
		if table, err = renderGoInstructions(t, cfg.Package); err != nil {
			return nil, err
		}
	}
	return []Output{
		{Name: constFile, Data: consts},
		{Name: tableFile, Data: table},
	}, nil
}

func writeGoHeader(w *bytes.Buffer, p Provenance, pkg string) {
	w.WriteString("// Code generated by rvtablegen. DO NOT EDIT.\n")
	w.WriteString("//\n")
	w.WriteString("// Generated from:\n")
	for _, line := range p.Lines() {
		fmt.Fprintf(w, "//   %s\n", line)
	}
	w.WriteString("\n")
	fmt.Fprintf(w, "package %s\n\n", pkg)
}

func formatGo(name string, src []byte) ([]byte, error) {
	ret, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("generated %s is not valid Go: %w", name, err)
	}
	return ret, nil
}

type constGroup struct {
	doc   string
	typ   string
	kinds []ConstKind
}

var goConstGroups = []constGroup{
	{doc: "Instruction formats.", typ: "Form", kinds: []ConstKind{ConstForm}},
	{doc: "Instruction categories.", typ: "Category", kinds: []ConstKind{ConstCategory}},
	{doc: "Operations, one per distinct mnemonic.", typ: "Op", kinds: []ConstKind{ConstOp}},
	{doc: "Major opcodes of the 32-bit encodings, inst[6:0].", kinds: []ConstKind{ConstMajor}},
	{doc: "Encodings, in decode table order: the mask and match value of each\n// instruction followed by the values of its fixed fields.", kinds: []ConstKind{ConstMask, ConstMatch, ConstFieldValue}},
	{doc: "Operand field masks. The C_ prefixed fields belong to compressed\n// instructions.", kinds: []ConstKind{ConstOperandField}},
}

func constValue(c Constant) string {
	switch c.Kind {
	case ConstForm, ConstCategory, ConstOp:
		return fmt.Sprintf("%d", c.Value)
	case ConstMajor:
		return fmt.Sprintf("0x%02x", c.Value)
	case ConstFieldValue:
		return fmt.Sprintf("0x%x", c.Value)
	}
	return bits32(c.Value).Hex(c.Width)
}

func renderGoConstants(t *Tables, pkg string) ([]byte, error) {
	var w bytes.Buffer
	writeGoHeader(&w, t.Provenance, pkg)

	w.WriteString("// Form identifies an instruction format.\n")
	w.WriteString("type Form uint16\n\n")
	w.WriteString("// Category identifies the standard an instruction is defined in.\n")
	w.WriteString("type Category uint16\n\n")
	w.WriteString("// Op identifies an operation by mnemonic.\n")
	w.WriteString("type Op uint16\n\n")

	for _, g := range goConstGroups {
		fmt.Fprintf(&w, "// %s\n", g.doc)
		w.WriteString("const (\n")
		for _, c := range t.Constants.Entries {
			if !containsKind(g.kinds, c.Kind) {
				continue
			}
			if g.typ != "" {
				fmt.Fprintf(&w, "\t%s %s = %s\n", c.Name, g.typ, constValue(c))
			} else {
				fmt.Fprintf(&w, "\t%s = %s\n", c.Name, constValue(c))
			}
		}
		w.WriteString(")\n\n")
	}
	return formatGo("constants", w.Bytes())
}

func containsKind(kinds []ConstKind, k ConstKind) bool {
	for _, kk := range kinds {
		if kk == k {
			return true
		}
	}
	return false
}

func operandTypeIdent(t ArgType) string {
	return "Operand" + makeIdentTitle(string(t))
}

const goTableTypes = `// DecodeStep extracts one fragment of an operand. The instruction word is
// masked with Mask and shifted right by Shift, or left when Shift is
// negative. Field is the mask of the whole field the fragment comes from.
type DecodeStep struct {
	Field uint32
	Mask  uint32
	Shift int8
}

// Operand describes how to extract one assembly operand. The results of
// its steps are ORed together and, when SignExtend is set, sign-extended
// from bit Width-1.
type Operand struct {
	Name       string
	Type       OperandType
	Steps      []DecodeStep
	Width      uint8
	SignExtend bool
}

// Instruction is one decode table entry. Within a width, the first entry
// whose Mask and Match fit an instruction word, and whose XLEN includes the
// current base width, is the right decoding.
type Instruction struct {
	Name     string
	Op       Op
	Category Category
	Form     Form
	Major    uint8
	Width    uint8
	XLEN     uint8
	Mask     uint32
	Match    uint32
	AliasOf  string
	Shadows  []string
	Operands []Operand
}

// Bits of Instruction.XLEN.
const (
	XLEN32  = 1 << 0
	XLEN64  = 1 << 1
	XLEN128 = 1 << 2
)

`

func renderGoInstructions(t *Tables, pkg string) ([]byte, error) {
	var w bytes.Buffer
	writeGoHeader(&w, t.Provenance, pkg)

	w.WriteString("// OperandType says how an operand value is interpreted.\n")
	w.WriteString("type OperandType uint8\n\n")
	w.WriteString("const (\n")
	for i, at := range argTypes {
		if i == 0 {
			fmt.Fprintf(&w, "\t%s OperandType = iota\n", operandTypeIdent(at))
			continue
		}
		fmt.Fprintf(&w, "\t%s\n", operandTypeIdent(at))
	}
	w.WriteString(")\n\n")
	w.WriteString(goTableTypes)

	w.WriteString("// Instructions is the decode table.\n")
	w.WriteString("var Instructions = []Instruction{\n")
	for _, e := range t.Instructions.Entries {
		fmt.Fprintf(&w, "\t// %s\n", e.Source)
		w.WriteString("\t{\n")
		fmt.Fprintf(&w, "\t\tName: %q,\n", e.Mnemonic)
		fmt.Fprintf(&w, "\t\tOp: %s,\n", e.Op)
		fmt.Fprintf(&w, "\t\tCategory: %s,\n", categoryConst(e.Standard))
		fmt.Fprintf(&w, "\t\tForm: %s,\n", formConst(e.Format))
		if e.Major != "" {
			fmt.Fprintf(&w, "\t\tMajor: %s,\n", majorConst(e.Major))
		}
		fmt.Fprintf(&w, "\t\tWidth: %d,\n", e.Width)
		fmt.Fprintf(&w, "\t\tXLEN: %s,\n", goXLEN(e.XLENs))
		fmt.Fprintf(&w, "\t\tMask: %s,\n", e.MaskConst)
		fmt.Fprintf(&w, "\t\tMatch: %s,\n", e.MatchConst)
		if e.Alias {
			fmt.Fprintf(&w, "\t\tAliasOf: %q,\n", e.AliasOf)
		}
		if len(e.Shadows) > 0 {
			quoted := make([]string, len(e.Shadows))
			for i, s := range e.Shadows {
				quoted[i] = fmt.Sprintf("%q", s)
			}
			fmt.Fprintf(&w, "\t\tShadows: []string{%s},\n", strings.Join(quoted, ", "))
		}
		if len(e.Operands) > 0 {
			w.WriteString("\t\tOperands: []Operand{\n")
			for _, op := range e.Operands {
				writeGoOperand(&w, op, e.Width)
			}
			w.WriteString("\t\t},\n")
		}
		w.WriteString("\t},\n")
	}
	w.WriteString("}\n")
	return formatGo("instruction table", w.Bytes())
}

func writeGoOperand(w *bytes.Buffer, op ExtractRule, width Width) {
	fmt.Fprintf(w, "\t\t\t{Name: %q, Type: %s, Width: %d", op.Name, operandTypeIdent(op.Type), op.Width)
	if op.SignExtend {
		w.WriteString(", SignExtend: true")
	}
	w.WriteString(", Steps: []DecodeStep{")
	for i, step := range op.Steps {
		if i > 0 {
			w.WriteString(", ")
		}
		field := step.Field
		if field == "" {
			field = "0"
		}
		fmt.Fprintf(w, "{Field: %s, Mask: %s, Shift: %d}", field, step.Mask.Hex(width), step.RightShift)
	}
	w.WriteString("}},\n")
}

func goXLEN(x XLENs) string {
	var parts []string
	for _, s := range []Size{RV32, RV64, RV128} {
		if x&s.XLEN() != 0 {
			parts = append(parts, fmt.Sprintf("XLEN%d", s))
		}
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " | ")
}
