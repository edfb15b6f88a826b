package wrangle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	binValuePattern = regexp.MustCompile(`^[01]+$`)
	decValuePattern = regexp.MustCompile(`^[0-9]+$`)

	// Slots that always hold a constant in an instruction listing.
	fixedSlotPattern = regexp.MustCompile(`^(?:funct[0-9]+|opcode|op)$`)

	// Register fields, including the compressed "prime" registers and the
	// combined source/destination fields. A trailing constraint such as
	// "!=0" or "!={0,2}" is split off before matching.
	regFieldPattern = regexp.MustCompile(`^(?:rd|rs[0-9]?)'?(?:/(?:rd|rs[0-9]?)'?)?$`)

	// Immediate-like fields, optionally followed by a bracketed list of
	// the operand bits they hold.
	immFieldPattern = regexp.MustCompile(`^(imm|nzimm|uimm|nzuimm|offset|shamt|csr|zimm|fm|pred|succ|aq|rl|rm|jump target)(?:\[([0-9:|]+)\])?$`)

	constraintPattern = regexp.MustCompile(`^(.*?)\s*(!=\s*(?:[0-9]+|<[0-9, ]+>))$`)
)

// texReplacer turns the LaTeX markup found inside encoding cells into
// plain text.
var texReplacer = strings.NewReplacer(
	`$\vert$`, "|",
	`$|$`, "|",
	`\vert`, "|",
	`$\neq$`, "!=",
	`\neq`, "!=",
	`\{`, "{",
	`\}`, "}",
	`\rdprime`, "rd'",
	`\rsoneprime`, "rs1'",
	`\rstwoprime`, "rs2'",
	`$'$`, "'",
	`$`, "",
	`\tiny`, "",
	`\scriptsize`, "",
	`\footnotesize`, "",
	`\small`, "",
	`\emph`, "",
	`\textit`, "",
	`\textbf`, "",
	`\em`, "",
	`\bf`, "",
	`~`, " ",
)

// normalizeCell strips LaTeX markup from a cell so that it can be
// classified.
func normalizeCell(raw string) string {
	s := texReplacer.Replace(raw)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '{', '}':
			return -1
		}
		return r
	}, stripGroupBraces(s))
	return strings.Join(strings.Fields(s), " ")
}

// stripGroupBraces keeps the braces of constraint sets ("!={0,2}") intact
// by replacing them with markers that survive the brace removal.
func stripGroupBraces(s string) string {
	if !strings.Contains(s, "!={") {
		return s
	}
	s = strings.ReplaceAll(s, "!={", "!=<")
	if i := strings.Index(s, "!=<"); i >= 0 {
		if j := strings.IndexByte(s[i:], '}'); j >= 0 {
			s = s[:i+j] + ">" + s[i+j+1:]
		}
	}
	return s
}

// classifyField interprets the text of one cell of an instruction listing
// as a field occupying hi..lo.
func classifyField(text string, hi, lo uint8) (FieldSpec, error) {
	f := FieldSpec{Name: text, Hi: hi, Lo: lo}
	bits := int(hi) - int(lo) + 1
	if bits <= 0 || bits > 32 {
		return f, fmt.Errorf("invalid bit range %d..%d", hi, lo)
	}

	switch {
	case text == "" || strings.Trim(text, "-/") == "" || strings.EqualFold(text, "reserved"):
		f.Name = ""
		f.Role = RoleReserved
		return f, nil

	case binValuePattern.MatchString(text) && len(text) == bits:
		v, _ := strconv.ParseUint(text, 2, 32)
		f.Name = ""
		f.Role = RoleFixed
		f.Value = uint32(v)
		return f, nil

	case decValuePattern.MatchString(text):
		// Some compressed listings put decimal register numbers in a
		// register slot.
		v, err := strconv.ParseUint(text, 10, 32)
		if err != nil || v >= uint64(1)<<uint(bits) {
			return f, fmt.Errorf("constant %s does not fit in %d bits", text, bits)
		}
		f.Name = ""
		f.Role = RoleFixed
		f.Value = uint32(v)
		return f, nil

	case fixedSlotPattern.MatchString(text):
		return f, fmt.Errorf("%s slot has no constant value", text)
	}

	name, constraint := splitConstraint(text)
	f.Name = name
	f.Constraint = constraint

	if regFieldPattern.MatchString(name) {
		f.Role = RoleRegister
		f.Operand = name
		f.Type = ArgIntReg
		if strings.Contains(name, "'") {
			f.Type = ArgCompressedReg
		}
		f.Fragments = []Fragment{{SrcHi: hi, SrcLo: lo}}
		return f, nil
	}

	m := immFieldPattern.FindStringSubmatch(name)
	if m == nil {
		return f, fmt.Errorf("unrecognized field %q", text)
	}
	f.Role = RoleImmediate
	f.Operand = m[1]
	f.Type = immArgType(m[1])
	frags, err := ParseFragments(hi, lo, m[2])
	if err != nil {
		return f, err
	}
	f.Fragments = frags
	return f, nil
}

// classifySlot interprets the text of one cell of a format declaration,
// where fixed slots are named rather than given values.
func classifySlot(text string, hi, lo uint8) (FieldSpec, error) {
	if fixedSlotPattern.MatchString(text) {
		return FieldSpec{Name: text, Hi: hi, Lo: lo, Role: RoleFixed}, nil
	}
	return classifyField(text, hi, lo)
}

func splitConstraint(text string) (name, constraint string) {
	m := constraintPattern.FindStringSubmatch(text)
	if m == nil {
		return text, ""
	}
	constraint = strings.NewReplacer("<", "{", ">", "}", " ", "").Replace(m[2])
	return strings.TrimSpace(m[1]), constraint
}

func immArgType(base string) ArgType {
	switch base {
	case "imm", "nzimm":
		return ArgSignedImmediate
	case "offset", "jump target":
		return ArgOffset
	case "uimm", "nzuimm", "shamt", "csr", "zimm":
		return ArgUnsignedImmediate
	}
	return ArgGeneral
}

// checkWidth verifies that a row's fields are non-overlapping and cover
// exactly width bits.
func checkWidth(fields []FieldSpec, width Width) error {
	var covered bits32
	total := 0
	for _, f := range fields {
		if int(f.Hi) >= int(width) {
			return fmt.Errorf("field %s extends past bit %d", f, width-1)
		}
		m := f.Mask()
		if covered&m != 0 {
			return fmt.Errorf("field %s overlaps another field", f)
		}
		covered |= m
		total += f.Bits()
	}
	if total != int(width) {
		return fmt.Errorf("fields cover %d bits, want %d", total, width)
	}
	return nil
}
