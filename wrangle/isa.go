package wrangle

import (
	"fmt"
	"strings"
)

// Width is the number of bits in an instruction word of a particular
// encoding class.
type Width uint8

const (
	Width16 Width = 16
	Width32 Width = 32
)

// Family distinguishes the fixed-length standard encodings from the
// compressed ones.
type Family uint8

const (
	FamilyStandard Family = iota
	FamilyCompressed
)

func (f Family) String() string {
	switch f {
	case FamilyStandard:
		return "standard"
	case FamilyCompressed:
		return "compressed"
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

func familyForWidth(w Width) Family {
	if w < Width32 {
		return FamilyCompressed
	}
	return FamilyStandard
}

// FieldRole says how a bit range within an instruction word participates
// in decoding.
type FieldRole uint8

const (
	RoleReserved FieldRole = iota
	RoleFixed
	RoleRegister
	RoleImmediate
)

func (r FieldRole) String() string {
	switch r {
	case RoleReserved:
		return "reserved"
	case RoleFixed:
		return "fixed"
	case RoleRegister:
		return "reg"
	case RoleImmediate:
		return "imm"
	}
	return fmt.Sprintf("FieldRole(%d)", uint8(r))
}

// Location identifies where in the source tree a record came from.
type Location struct {
	Path string
	Line int
}

func (l Location) String() string {
	if l.Line <= 0 {
		return l.Path
	}
	return fmt.Sprintf("%s:%d", l.Path, l.Line)
}

// Fragment maps a run of source bits within a field onto the bits of the
// operand value it contributes to.
type Fragment struct {
	SrcHi, SrcLo uint8
	DstLo        uint8
}

func (f Fragment) Width() uint8 {
	return f.SrcHi - f.SrcLo + 1
}

func (f Fragment) DstHi() uint8 {
	return f.DstLo + f.Width() - 1
}

// FieldSpec is one bit range within an instruction word.
type FieldSpec struct {
	// Name is the text the source uses for the field, or empty for fixed
	// and reserved ranges that the source leaves unnamed.
	Name   string
	Hi, Lo uint8
	Role   FieldRole

	// Value is the required constant for RoleFixed fields.
	Value uint32

	// Operand is the name of the assembly operand that an operand field
	// contributes to, such as "rd" or "imm". Several fields may contribute
	// to the same operand.
	Operand    string
	Type       ArgType
	Fragments  []Fragment
	Constraint string
}

func (f FieldSpec) Bits() int {
	return int(f.Hi) - int(f.Lo) + 1
}

func (f FieldSpec) Mask() bits32 {
	return rangeMask(uint(f.Hi), uint(f.Lo))
}

func (f FieldSpec) String() string {
	switch f.Role {
	case RoleFixed:
		return fmt.Sprintf("%d..%d=%#x", f.Hi, f.Lo, f.Value)
	case RoleReserved:
		return fmt.Sprintf("%d..%d", f.Hi, f.Lo)
	}
	return fmt.Sprintf("%s(%d..%d)", f.Name, f.Hi, f.Lo)
}

// InstructionSpec is one instruction definition as parsed from the source.
type InstructionSpec struct {
	Mnemonic string
	Width    Width
	Family   Family
	Standard Standard
	XLENs    XLENs

	// Fields are ordered from the most significant bit down.
	Fields []FieldSpec

	// Alias marks an explicitly declared pseudo-instruction whose encoding
	// is carved out of the instruction named by AliasOf.
	Alias   bool
	AliasOf string

	Notes  string
	Source Location
}

// Encoding returns the match mask and value formed by the fixed fields.
func (s *InstructionSpec) Encoding() (mask, value bits32) {
	for _, f := range s.Fields {
		if f.Role != RoleFixed {
			continue
		}
		mask |= f.Mask()
		value |= bits32(f.Value << f.Lo)
	}
	return mask, value
}

// Key identifies a spec within the whole instruction set.
func (s *InstructionSpec) Key() string {
	return s.Standard.String() + "::" + s.Mnemonic
}

func (s *InstructionSpec) String() string {
	var parts []string
	for _, f := range s.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("%s [%s] (%s)", s.Mnemonic, s.Standard, strings.Join(parts, " "))
}

// Slot is one position within a format layout.
type Slot struct {
	Name   string
	Hi, Lo uint8
	Role   FieldRole
}

// FormatDescriptor is the canonical layout shared by a family of
// instructions.
type FormatDescriptor struct {
	Name     string
	Width    Width
	Declared bool
	Slots    []Slot
	Members  []string
}

// FormDecl is a format declared by the source itself, such as the manual's
// "R-type" rows.
type FormDecl struct {
	Name   string
	Width  Width
	Fields []FieldSpec
	Source Location
}

// ArgDecodeStep extracts one fragment of an operand: the instruction word
// is masked, then shifted right (or left, when RightShift is negative) and
// ORed into the result.
type ArgDecodeStep struct {
	Field      string
	Mask       bits32
	RightShift int
}

func (s ArgDecodeStep) String() string {
	switch {
	case s.RightShift == 0:
		return fmt.Sprintf("(inst & %s)", s.Mask.String())
	case s.RightShift < 0:
		return fmt.Sprintf("(inst & %s) << %d", s.Mask.String(), -s.RightShift)
	default:
		return fmt.Sprintf("(inst & %s) >> %d", s.Mask.String(), s.RightShift)
	}
}

func (s ArgDecodeStep) Apply(inst uint32) uint32 {
	v := inst & uint32(s.Mask)
	if s.RightShift < 0 {
		return v << uint(-s.RightShift)
	}
	return v >> uint(s.RightShift)
}

// ExtractRule describes how to decode one operand of an instruction.
type ExtractRule struct {
	Name       string
	Type       ArgType
	Position   int
	Steps      []ArgDecodeStep
	Width      uint8
	SignExtend bool
}

// Extract applies the rule to an instruction word.
func (r ExtractRule) Extract(inst uint32) int64 {
	var raw uint32
	for _, step := range r.Steps {
		raw |= step.Apply(inst)
	}
	if r.SignExtend && r.Width > 0 && r.Width < 64 {
		shift := 64 - uint(r.Width)
		return int64(uint64(raw)<<shift) >> shift
	}
	return int64(raw)
}

// DecodeEntry is the compiled decode record for one instruction.
type DecodeEntry struct {
	Mnemonic string
	Op       string
	Standard Standard
	XLENs    XLENs
	Width    Width
	Format   string
	Major    string

	Mask, Match         bits32
	MaskConst, MatchConst string

	Operands []ExtractRule

	Alias   bool
	AliasOf string
	Shadows []string

	Notes  string
	Source Location
}

// Matches reports whether an instruction word decodes as this entry.
func (e *DecodeEntry) Matches(inst uint32) bool {
	return bits32(inst)&e.Mask == e.Match
}

// Key identifies the entry within the table.
func (e *DecodeEntry) Key() string {
	return e.Standard.String() + "::" + e.Mnemonic
}

// ConstKind groups constants in the emitted constants file.
type ConstKind uint8

const (
	ConstForm ConstKind = iota
	ConstCategory
	ConstOp
	ConstMajor
	ConstMask
	ConstMatch
	ConstFieldValue
	ConstOperandField
)

func (k ConstKind) String() string {
	switch k {
	case ConstForm:
		return "form"
	case ConstCategory:
		return "category"
	case ConstOp:
		return "op"
	case ConstMajor:
		return "major"
	case ConstMask:
		return "mask"
	case ConstMatch:
		return "match"
	case ConstFieldValue:
		return "field-value"
	case ConstOperandField:
		return "operand-field"
	}
	return fmt.Sprintf("ConstKind(%d)", uint8(k))
}

type Constant struct {
	Name  string
	Kind  ConstKind
	Value uint32
	Width Width
}

// ConstantsTable maps symbolic names to values. Its Entries are kept in
// emission order.
type ConstantsTable struct {
	Entries []Constant
	index   map[string]int
}

func (t *ConstantsTable) Lookup(name string) (Constant, bool) {
	i, ok := t.index[name]
	if !ok {
		return Constant{}, false
	}
	return t.Entries[i], true
}

func (t *ConstantsTable) Len() int {
	return len(t.Entries)
}

// InstructionTable is the priority-ordered sequence of decode entries.
type InstructionTable struct {
	Entries []DecodeEntry
}

// Lookup returns the first entry of the given width class that matches the
// instruction word, honoring the table's priority order.
func (t *InstructionTable) Lookup(width Width, xlen XLENs, inst uint32) *DecodeEntry {
	for i := range t.Entries {
		e := &t.Entries[i]
		if e.Width != width || !e.XLENs.Intersects(xlen) {
			continue
		}
		if e.Matches(inst) {
			return e
		}
	}
	return nil
}

// Tables is everything the emitter writes out.
type Tables struct {
	Provenance   Provenance
	Formats      []*FormatDescriptor
	Categories   []Standard
	Constants    ConstantsTable
	Instructions InstructionTable
}
