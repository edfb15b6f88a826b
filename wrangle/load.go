package wrangle

import (
	"bufio"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/log"
)

//go:embed data/operands
var operandsTable string

//go:embed data/opcode-majors
var majorsTable string

// Argument is one named operand field of the riscv-opcodes listings.
type Argument struct {
	Name string
	Type ArgType

	// Operand is the assembly operand the argument contributes to.
	// Arguments that share an operand are assembled together.
	Operand string

	Hi, Lo    uint8
	Fragments []Fragment
}

// MajorOpcode names one of the 32-bit major opcodes.
type MajorOpcode struct {
	Name  string
	Ident string
	Num   uint8
}

// loadArgs combines the positions from a source tree's arg_lut.csv with the
// built-in operand fragment table.
func loadArgs(filename string) (map[string]*Argument, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	known, err := parseOperandsTable(operandsTable)
	if err != nil {
		return nil, fmt.Errorf("built-in operands table: %w", err)
	}

	ret := make(map[string]*Argument)
	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	r.TrimLeadingSpace = true
	r.Comment = '#'
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		name := strings.TrimSpace(rec[0])
		hi, err1 := strconv.ParseUint(strings.TrimSpace(rec[1]), 10, 8)
		lo, err2 := strconv.ParseUint(strings.TrimSpace(rec[2]), 10, 8)
		if err1 != nil || err2 != nil || hi < lo || hi > 31 {
			return nil, &MalformedTableError{
				Loc:    Location{Path: filename, Line: line},
				Row:    strings.Join(rec, ","),
				Field:  name,
				Reason: "invalid bit range",
			}
		}

		arg := &Argument{
			Name:    name,
			Type:    ArgGeneral,
			Operand: name,
			Hi:      uint8(hi),
			Lo:      uint8(lo),
		}
		if k, ok := known[name]; ok {
			top, bottom := fragmentsRange(k.Fragments)
			if top != arg.Hi || bottom != arg.Lo {
				return nil, &MalformedTableError{
					Loc:    Location{Path: filename, Line: line},
					Row:    strings.Join(rec, ","),
					Field:  name,
					Reason: fmt.Sprintf("position %d..%d disagrees with operand fragments at %d..%d", hi, lo, top, bottom),
				}
			}
			arg.Type = k.Type
			arg.Operand = k.Operand
			arg.Fragments = k.Fragments
		} else {
			arg.Fragments = []Fragment{{SrcHi: arg.Hi, SrcLo: arg.Lo}}
		}
		ret[name] = arg
	}
	return ret, nil
}

func parseOperandsTable(src string) (map[string]*Argument, error) {
	ret := make(map[string]*Argument)
	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		fields := strings.Fields(trimComments(sc.Text()))
		if len(fields) < 4 {
			continue
		}
		frags, err := ParseArgDecodeSpec(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fields[0], err)
		}
		hi, lo := fragmentsRange(frags)
		ret[fields[0]] = &Argument{
			Name:      fields[0],
			Type:      ArgType(fields[2]),
			Operand:   fields[3],
			Hi:        hi,
			Lo:        lo,
			Fragments: frags,
		}
	}
	return ret, sc.Err()
}

func fragmentsRange(frags []Fragment) (hi, lo uint8) {
	lo = 255
	for _, f := range frags {
		if f.SrcHi > hi {
			hi = f.SrcHi
		}
		if f.SrcLo < lo {
			lo = f.SrcLo
		}
	}
	return hi, lo
}

// loadMajorOpcodes parses the built-in major opcode table.
func loadMajorOpcodes() map[uint8]*MajorOpcode {
	ret := make(map[uint8]*MajorOpcode)

	sc := bufio.NewScanner(strings.NewReader(majorsTable))
	for sc.Scan() {
		fields := strings.Fields(trimComments(sc.Text()))
		if len(fields) < 2 {
			continue
		}
		name := fields[len(fields)-1]
		fields = fields[:len(fields)-1]

		// Only the "real" (currently assigned) opcodes are all uppercase,
		// so we'll use that as a heuristic to filter out all the others
		// that mark coding space reservations.
		if strings.ToUpper(name) != name {
			continue
		}

		oc := &MajorOpcode{
			Name:  name,
			Ident: makeIdentConst(name),
		}
		for _, rawSpec := range fields {
			ms, err := parseMatchSpec(rawSpec)
			if err != nil {
				continue
			}
			oc.Num |= uint8(ms.Value << ms.Lo)
		}
		ret[oc.Num] = oc
	}
	return ret
}

// matchSpec is one "hi..lo=value" constraint of an opcode line.
type matchSpec struct {
	Hi, Lo uint8
	Value  uint32
	Ignore bool
}

func parseMatchSpec(rawSpec string) (matchSpec, error) {
	rawRng, rawWant := partition(rawSpec, "=")
	if rawWant == "" {
		return matchSpec{}, fmt.Errorf("%q has no value", rawSpec)
	}
	rawEnd, rawStart := partition(rawRng, "..")
	if rawStart == "" {
		// single bit, as in "12=1"
		rawStart = rawEnd
	}
	end, err := strconv.ParseUint(rawEnd, 10, 8)
	if err != nil || end > 31 {
		return matchSpec{}, fmt.Errorf("invalid bit %q in %q", rawEnd, rawSpec)
	}
	start, err := strconv.ParseUint(rawStart, 10, 8)
	if err != nil || start > end {
		return matchSpec{}, fmt.Errorf("invalid bit %q in %q", rawStart, rawSpec)
	}
	ms := matchSpec{Hi: uint8(end), Lo: uint8(start)}
	if rawWant == "ignore" {
		ms.Ignore = true
		return ms, nil
	}
	want, err := strconv.ParseUint(rawWant, 0, 32)
	if err != nil {
		return matchSpec{}, fmt.Errorf("invalid value %q in %q", rawWant, rawSpec)
	}
	if bits := end - start + 1; bits < 32 && want >= uint64(1)<<bits {
		return matchSpec{}, fmt.Errorf("value %#x does not fit in bits %d..%d", want, end, start)
	}
	ms.Value = uint32(want)
	return ms, nil
}

func (ms matchSpec) field() FieldSpec {
	f := FieldSpec{Hi: ms.Hi, Lo: ms.Lo, Role: RoleFixed, Value: ms.Value}
	if ms.Ignore {
		f.Role = RoleReserved
		f.Value = 0
	}
	return f
}

// parseOpcodeList reads one riscv-opcodes extension file.
func parseOpcodeList(doc Document, src string, args map[string]*Argument, logger log.Logger) (*ParsedDocument, error) {
	ret := &ParsedDocument{Doc: doc, Categories: []Standard{doc.Default}}
	seen := make(map[string]Location)
	var errs ErrorList

	sc := bufio.NewScanner(strings.NewReader(src))
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(trimComments(sc.Text()))
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}
		loc := doc.loc(line)

		var aliasOf string
		switch fields[0] {
		case "$import":
			logger.Debug("Skipping imported instruction", "line", line, "name", strings.Join(fields[1:], " "))
			continue
		case "$pseudo_op":
			if len(fields) < 3 {
				errs = append(errs, malformed(loc, raw, "", "pseudo-op without a base instruction"))
				continue
			}
			baseStd, baseName := partition(fields[1], "::")
			std, _ := ParseStandard(baseStd)
			if std == Invalid || baseName == "" {
				errs = append(errs, malformed(loc, raw, fields[1], "invalid pseudo-op base"))
				continue
			}
			aliasOf = std.String() + "::" + strings.ToUpper(baseName)
			fields = fields[2:]
		}
		if strings.HasPrefix(fields[0], "$") {
			logger.Debug("Skipping directive", "line", line, "directive", fields[0])
			continue
		}

		spec, err := parseOpcodeLine(doc, loc, raw, fields, args)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if aliasOf != "" {
			spec.Alias = true
			spec.AliasOf = aliasOf
		}
		key := spec.Key()
		if prev, exists := seen[key]; exists {
			errs = append(errs, malformed(loc, raw, "", "%s is already defined at %s", spec.Mnemonic, prev))
			continue
		}
		seen[key] = loc
		ret.Specs = append(ret.Specs, spec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", doc.Rel, err)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func parseOpcodeLine(doc Document, loc Location, raw string, fields []string, args map[string]*Argument) (InstructionSpec, error) {
	spec := InstructionSpec{
		Mnemonic: strings.ToUpper(fields[0]),
		Standard: doc.Default,
		XLENs:    doc.XLENs,
		Source:   loc,
	}

	var specs []FieldSpec
	var opHi, opLo *matchSpec
	for _, tok := range fields[1:] {
		if unicode.IsDigit(rune(tok[0])) {
			ms, err := parseMatchSpec(tok)
			if err != nil {
				return spec, malformed(loc, raw, tok, "%s", err)
			}
			switch {
			case ms.Hi == 6 && ms.Lo == 2 && !ms.Ignore:
				opHi = &ms
				continue
			case ms.Hi == 1 && ms.Lo == 0 && !ms.Ignore:
				opLo = &ms
				continue
			}
			specs = append(specs, ms.field())
			continue
		}

		arg, ok := args[tok]
		if !ok {
			return spec, malformed(loc, raw, tok, "argument has no defined bit range")
		}
		role := RoleImmediate
		if arg.Type.IsRegister() {
			role = RoleRegister
		}
		specs = append(specs, FieldSpec{
			Name:      arg.Name,
			Hi:        arg.Hi,
			Lo:        arg.Lo,
			Role:      role,
			Operand:   arg.Operand,
			Type:      arg.Type,
			Fragments: arg.Fragments,
		})
	}

	// The opcode is split into inst[6:2] and inst[1:0] in the listings,
	// but it is a single seven-bit slot of the standard encoding.
	switch {
	case opHi != nil && opLo != nil:
		specs = append(specs, FieldSpec{Hi: 6, Lo: 0, Role: RoleFixed, Value: opHi.Value<<2 | opLo.Value})
	case opHi != nil:
		specs = append(specs, opHi.field())
	case opLo != nil:
		specs = append(specs, opLo.field())
	}

	spec.Width = Width16
	if opLo != nil && opLo.Value == 3 {
		spec.Width = Width32
	}
	for _, f := range specs {
		if f.Hi >= 16 {
			spec.Width = Width32
		}
	}
	spec.Family = familyForWidth(spec.Width)

	sort.SliceStable(specs, func(i, j int) bool {
		return specs[i].Hi > specs[j].Hi
	})
	if err := checkWidth(specs, spec.Width); err != nil {
		return spec, malformed(loc, raw, "", "%s", err)
	}
	spec.Fields = specs
	return spec, nil
}

func trimComments(line string) string {
	hash := strings.IndexByte(line, '#')
	if hash == -1 {
		return line
	}
	return line[:hash]
}
