package wrangle

import (
	"math/bits"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

func (t *ConstantsTable) add(name string, kind ConstKind, value uint32, width Width) error {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, exists := t.index[name]; exists {
		if t.Entries[i].Value != value {
			return &DuplicateConstantError{Name: name, Old: t.Entries[i].Value, New: value}
		}
		return nil
	}
	t.index[name] = len(t.Entries)
	t.Entries = append(t.Entries, Constant{Name: name, Kind: kind, Value: value, Width: width})
	return nil
}

func formConst(name string) string { return "FORM_" + makeIdentConst(name) }

func categoryConst(s Standard) string { return "CAT_" + makeIdentConst(s.String()) }

func opConst(mnemonic string) string { return "OP_" + makeIdentConst(mnemonic) }

func majorConst(ident string) string { return "MAJOR_" + ident }

func operandFieldPrefix(w Width) string {
	if w == Width16 {
		return "C_FIELD_"
	}
	return "FIELD_"
}

// Build compiles the normalized registry into the constants and decode
// tables.
func Build(reg *Registry) (*Tables, error) {
	b := &builder{
		reg:    reg,
		majors: loadMajorOpcodes(),
		tables: &Tables{
			Formats:    reg.Formats,
			Categories: reg.Categories,
		},
	}
	b.findVariants()
	b.nameOperandFields()

	order := tableOrder(reg)
	pos := make(map[int]int, len(order))
	for p, i := range order {
		pos[i] = p
	}

	var errs ErrorList
	add := func(name string, kind ConstKind, value uint32, width Width) {
		if err := b.tables.Constants.add(name, kind, value, width); err != nil {
			errs = append(errs, err)
		}
	}

	for i, f := range reg.Formats {
		add(formConst(f.Name), ConstForm, uint32(i+1), 0)
	}
	for i, c := range reg.Categories {
		add(categoryConst(c), ConstCategory, uint32(i+1), 0)
	}
	ops := 0
	for _, i := range order {
		name := opConst(reg.Specs[i].Mnemonic)
		if _, exists := b.tables.Constants.Lookup(name); !exists {
			ops++
			add(name, ConstOp, uint32(ops), 0)
		}
	}
	majorNums := make([]int, 0, len(b.majors))
	for num := range b.majors {
		majorNums = append(majorNums, int(num))
	}
	sort.Ints(majorNums)
	for _, num := range majorNums {
		add(majorConst(b.majors[uint8(num)].Ident), ConstMajor, uint32(num), Width32)
	}

	entries := make([]DecodeEntry, 0, len(order))
	for _, i := range order {
		e := b.entry(i)
		add(e.MaskConst, ConstMask, uint32(e.Mask), e.Width)
		add(e.MatchConst, ConstMatch, uint32(e.Match), e.Width)
		spec := &reg.Specs[i]
		for _, f := range spec.Fields {
			if f.Role != RoleFixed {
				continue
			}
			slot := slotName(reg.Format(i), f)
			if slot == "op" {
				// The compressed "op" slot would collide with the OP_ enum.
				slot = "opcode"
			}
			name := makeIdentConst(slot, spec.Mnemonic, b.suffix(i))
			add(name, ConstFieldValue, f.Value, spec.Width)
		}

		// Keep the table's precedence visible on each entry.
		for _, j := range reg.Before[i] {
			if pos[j] > pos[i] {
				e.Shadows = append(e.Shadows, reg.Specs[j].Key())
			}
		}
		sort.Strings(e.Shadows)
		entries = append(entries, e)
	}

	fieldNames := make([]string, 0, len(b.fieldConsts))
	for name := range b.fieldConsts {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)
	for _, name := range fieldNames {
		fc := b.fieldConsts[name]
		add(name, ConstOperandField, uint32(fc.mask), fc.width)
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	b.tables.Instructions.Entries = entries
	return b.tables, nil
}

type fieldConst struct {
	mask  bits32
	width Width
}

type builder struct {
	reg    *Registry
	majors map[uint8]*MajorOpcode
	tables *Tables

	// variant marks mnemonics that are encoded differently in different
	// standards; their per-instruction constants carry the standard.
	variant map[string]bool

	// fieldConsts maps operand field constant names to their masks, and
	// fieldNames maps a (width, field name, mask) to the constant name.
	fieldConsts map[string]fieldConst
	fieldNames  map[fieldKey]string
}

type fieldKey struct {
	width Width
	name  string
	mask  bits32
}

func (b *builder) findVariants() {
	type enc struct {
		width       Width
		mask, value bits32
	}
	seen := make(map[string]map[enc]bool)
	for i := range b.reg.Specs {
		s := &b.reg.Specs[i]
		m, v := s.Encoding()
		if seen[s.Mnemonic] == nil {
			seen[s.Mnemonic] = make(map[enc]bool)
		}
		seen[s.Mnemonic][enc{s.Width, m, v}] = true
	}
	b.variant = make(map[string]bool)
	for name, encs := range seen {
		if len(encs) > 1 {
			b.variant[name] = true
		}
	}
}

func (b *builder) suffix(i int) string {
	s := &b.reg.Specs[i]
	if !b.variant[s.Mnemonic] {
		return ""
	}
	return s.Standard.String()
}

// nameOperandFields assigns a constant name to each operand field. A
// field name used at more than one position gets its bit range appended.
func (b *builder) nameOperandFields() {
	positions := make(map[fieldKey]map[bits32]bool)
	for i := range b.reg.Specs {
		s := &b.reg.Specs[i]
		for _, f := range s.Fields {
			if f.Role != RoleRegister && f.Role != RoleImmediate {
				continue
			}
			k := fieldKey{width: s.Width, name: f.Name}
			if positions[k] == nil {
				positions[k] = make(map[bits32]bool)
			}
			positions[k][f.Mask()] = true
		}
	}

	b.fieldConsts = make(map[string]fieldConst)
	b.fieldNames = make(map[fieldKey]string)
	for k, masks := range positions {
		for mask := range masks {
			name := operandFieldPrefix(k.width) + makeIdentConst(k.name)
			if len(masks) > 1 {
				hi := 31 - bits.LeadingZeros32(uint32(mask))
				lo := bits.TrailingZeros32(uint32(mask))
				name = operandFieldPrefix(k.width) + makeIdentConst(k.name, strconv.Itoa(hi), strconv.Itoa(lo))
			}
			b.fieldNames[fieldKey{k.width, k.name, mask}] = name
			b.fieldConsts[name] = fieldConst{mask: mask, width: k.width}
		}
	}
}

func (b *builder) fieldConst(width Width, f FieldSpec) string {
	return b.fieldNames[fieldKey{width, f.Name, f.Mask()}]
}

func (b *builder) entry(i int) DecodeEntry {
	s := &b.reg.Specs[i]
	mask, match := s.Encoding()
	suffix := b.suffix(i)
	e := DecodeEntry{
		Mnemonic:   s.Mnemonic,
		Op:         opConst(s.Mnemonic),
		Standard:   s.Standard,
		XLENs:      s.XLENs,
		Width:      s.Width,
		Format:     b.reg.Format(i).Name,
		Mask:       mask,
		Match:      match,
		MaskConst:  makeIdentConst("MASK", s.Mnemonic, suffix),
		MatchConst: makeIdentConst("MATCH", s.Mnemonic, suffix),
		Operands:   b.operands(s),
		Alias:      s.Alias,
		AliasOf:    s.AliasOf,
		Notes:      s.Notes,
		Source:     s.Source,
	}
	if s.Width == Width32 && mask&0x7f == 0x7f {
		if major, ok := b.majors[uint8(match&0x7f)]; ok {
			e.Major = major.Ident
		}
	}
	return e
}

var (
	loadPattern  = regexp.MustCompile(`^(?:C\.)?F?L[BHWDQ]U?(?:SP)?$`)
	storePattern = regexp.MustCompile(`^(?:C\.)?F?S[BHWDQ](?:SP)?$`)
	amoPattern   = regexp.MustCompile(`^(?:AMO|SC\.)`)
	lrPattern    = regexp.MustCompile(`^LR\.`)
	csrPattern   = regexp.MustCompile(`^CSRR`)
)

var defaultOperandOrder = []string{"rd", "rs1", "rs2", "rs3", "imm", "fm", "pred", "succ", "aq", "rl", "rm", "csr", "uimm"}

// operandOrder returns the assembly order of operand keys for an
// instruction; keys it does not list follow in defaultOperandOrder.
func operandOrder(mnemonic string) []string {
	switch {
	case loadPattern.MatchString(mnemonic):
		return []string{"rd", "imm", "rs1"}
	case storePattern.MatchString(mnemonic):
		return []string{"rs2", "imm", "rs1"}
	case lrPattern.MatchString(mnemonic):
		return []string{"rd", "rs1"}
	case amoPattern.MatchString(mnemonic):
		return []string{"rd", "rs2", "rs1"}
	case csrPattern.MatchString(mnemonic):
		return []string{"rd", "csr", "rs1", "uimm"}
	}
	return defaultOperandOrder
}

// operandKey reduces an operand name to the role it plays in assembly
// order: "rs1'" and "rs1" are both rs1, a combined "rd/rs1" is written as
// rd, and every immediate flavor orders as imm.
func operandKey(name string) string {
	name = strings.ReplaceAll(name, "'", "")
	if a, _ := partition(name, "/"); a != name {
		if strings.Contains(name, "rd") {
			return "rd"
		}
		return a
	}
	switch name {
	case "imm", "nzimm", "nzuimm", "offset", "shamt", "jump target":
		return "imm"
	case "zimm":
		return "uimm"
	}
	return name
}

func (b *builder) operands(s *InstructionSpec) []ExtractRule {
	var names []string
	byName := make(map[string][]FieldSpec)
	for _, f := range s.Fields {
		if f.Role != RoleRegister && f.Role != RoleImmediate {
			continue
		}
		if _, exists := byName[f.Operand]; !exists {
			names = append(names, f.Operand)
		}
		byName[f.Operand] = append(byName[f.Operand], f)
	}

	rank := make(map[string]int)
	for _, k := range operandOrder(s.Mnemonic) {
		if _, exists := rank[k]; !exists {
			rank[k] = len(rank)
		}
	}
	for _, k := range defaultOperandOrder {
		if _, exists := rank[k]; !exists {
			rank[k] = len(rank)
		}
	}
	keyRank := func(name string) int {
		if r, ok := rank[operandKey(name)]; ok {
			return r
		}
		return len(rank)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return keyRank(names[i]) < keyRank(names[j])
	})

	ret := make([]ExtractRule, 0, len(names))
	for pos, name := range names {
		fields := byName[name]
		rule := ExtractRule{
			Name:     name,
			Type:     registerType(s.Mnemonic, s.Standard, name, fields[0].Type),
			Position: pos,
		}
		for _, f := range fields {
			rule.Steps = append(rule.Steps, decodeSteps(b.fieldConst(s.Width, f), f.Fragments)...)
			for _, frag := range f.Fragments {
				if w := frag.DstHi() + 1; w > rule.Width {
					rule.Width = w
				}
			}
		}
		rule.SignExtend = rule.Type.Signed()
		ret = append(ret, rule)
	}
	return ret
}
