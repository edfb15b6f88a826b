package wrangle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/log"
)

// Registry is the result of normalization: every spec, the format each one
// resolves to, and the precedence relations between overlapping encodings.
type Registry struct {
	Specs      []InstructionSpec
	Formats    []*FormatDescriptor
	Categories []Standard

	// FormatOf holds the index into Formats for each spec.
	FormatOf []int

	// Before maps a spec index to the specs that must be tried after it:
	// the broader encodings it shadows and the aliases declared on it.
	Before map[int][]int
}

// Format returns the descriptor spec i resolves to.
func (r *Registry) Format(i int) *FormatDescriptor {
	return r.Formats[r.FormatOf[i]]
}

// Normalize clusters the parsed specs into format descriptors and checks
// every pair of encodings for conflicts. It must only be called once all
// documents have been parsed.
func Normalize(docs []*ParsedDocument, logger log.Logger) (*Registry, error) {
	reg := &Registry{Before: make(map[int][]int)}

	forms := collectForms(docs, logger)
	cats := make(Standards)
	for _, doc := range docs {
		reg.Specs = append(reg.Specs, doc.Specs...)
		for _, c := range doc.Categories {
			cats.Add(c)
		}
	}
	reg.Categories = cats.Sorted()

	byName := make(map[string]int)
	for _, form := range forms {
		byName[form.Name] = len(reg.Formats)
		reg.Formats = append(reg.Formats, describeForm(form))
	}

	reg.FormatOf = make([]int, len(reg.Specs))
	for i := range reg.Specs {
		spec := &reg.Specs[i]
		if name, ok := bestForm(spec, forms); ok {
			reg.FormatOf[i] = byName[name]
		} else {
			name := undeclaredFormName(spec)
			idx, exists := byName[name]
			if !exists {
				idx = len(reg.Formats)
				byName[name] = idx
				reg.Formats = append(reg.Formats, describeSpec(name, spec))
			}
			reg.FormatOf[i] = idx
		}
		f := reg.Formats[reg.FormatOf[i]]
		f.Members = append(f.Members, spec.Mnemonic)
	}

	sort.Sort(formatOrder{reg})
	for _, f := range reg.Formats {
		f.Members = dedupSorted(f.Members)
	}

	if err := reg.checkConflicts(logger); err != nil {
		return nil, err
	}
	return reg, nil
}

// collectForms gathers the declared formats. A format declared more than
// once keeps its first layout.
func collectForms(docs []*ParsedDocument, logger log.Logger) []FormDecl {
	var ret []FormDecl
	seen := make(map[string]int)
	for _, doc := range docs {
		for _, form := range doc.Forms {
			if i, exists := seen[form.Name]; exists {
				if layoutSignature(form.Width, form.Fields, true) != layoutSignature(ret[i].Width, ret[i].Fields, true) {
					logger.Warn("Format redeclared with a different layout", "format", form.Name, "first", ret[i].Source, "again", form.Source)
				}
				continue
			}
			seen[form.Name] = len(ret)
			ret = append(ret, form)
		}
	}
	return ret
}

// layoutSignature identifies a layout by its ranges and roles. For format
// declarations the slot names of fixed fields are part of the layout.
func layoutSignature(width Width, fields []FieldSpec, withNames bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "w%d", width)
	for _, f := range fields {
		fmt.Fprintf(&b, "|%d:%d:%s", f.Hi, f.Lo, f.Role)
		if withNames {
			b.WriteString(":" + f.Name)
		}
	}
	return b.String()
}

func undeclaredFormName(spec *InstructionSpec) string {
	sig := layoutSignature(spec.Width, spec.Fields, false)
	return fmt.Sprintf("X%d_%08X", spec.Width, uint32(xxhash.Sum64String(sig)))
}

// bestForm picks the declared format that spec fits best. A spec fits a
// format when each of its fields lies within one slot and fixed slots hold
// only constants. The score counts fields that differ from their slot in
// range or role, so an exact match always wins; ties go to the smallest
// name.
func bestForm(spec *InstructionSpec, forms []FormDecl) (string, bool) {
	best := ""
	bestScore := -1
	for i := range forms {
		score, ok := formScore(spec, &forms[i])
		if !ok {
			continue
		}
		if bestScore < 0 || score < bestScore || (score == bestScore && forms[i].Name < best) {
			best = forms[i].Name
			bestScore = score
		}
	}
	return best, bestScore >= 0
}

func formScore(spec *InstructionSpec, form *FormDecl) (int, bool) {
	if spec.Width != form.Width {
		return 0, false
	}
	score := 0
	for _, f := range spec.Fields {
		slot, ok := slotContaining(form.Fields, f.Hi, f.Lo)
		if !ok {
			return 0, false
		}
		if slot.Hi != f.Hi || slot.Lo != f.Lo {
			score++
		}
		switch {
		case slot.Role == f.Role:
		case slot.Role == RoleFixed || slot.Role == RoleReserved:
			if f.Role != RoleFixed && f.Role != RoleReserved {
				return 0, false
			}
			score++
		default:
			score++
		}
	}
	return score, true
}

func slotContaining(fields []FieldSpec, hi, lo uint8) (FieldSpec, bool) {
	for _, f := range fields {
		if f.Hi >= hi && f.Lo <= lo {
			return f, true
		}
	}
	return FieldSpec{}, false
}

func describeForm(form FormDecl) *FormatDescriptor {
	fd := &FormatDescriptor{
		Name:     form.Name,
		Width:    form.Width,
		Declared: true,
	}
	for _, f := range form.Fields {
		name := f.Name
		if name == "" && f.Role == RoleFixed {
			name = wellKnownSlot(form.Width, f.Hi, f.Lo)
		}
		fd.Slots = append(fd.Slots, Slot{Name: name, Hi: f.Hi, Lo: f.Lo, Role: f.Role})
	}
	return fd
}

func describeSpec(name string, spec *InstructionSpec) *FormatDescriptor {
	fd := &FormatDescriptor{Name: name, Width: spec.Width}
	for _, f := range spec.Fields {
		slot := Slot{Hi: f.Hi, Lo: f.Lo, Role: f.Role}
		switch f.Role {
		case RoleFixed:
			slot.Name = wellKnownSlot(spec.Width, f.Hi, f.Lo)
		case RoleRegister, RoleImmediate:
			slot.Name = f.Name
		}
		fd.Slots = append(fd.Slots, slot)
	}
	return fd
}

// wellKnownSlot names fixed bit ranges that have a conventional name in
// the standard and compressed encodings.
func wellKnownSlot(width Width, hi, lo uint8) string {
	type span struct{ hi, lo uint8 }
	var names map[span]string
	if width == Width16 {
		names = map[span]string{
			{1, 0}:   "op",
			{15, 13}: "funct3",
			{15, 12}: "funct4",
			{15, 10}: "funct6",
			{6, 5}:   "funct2",
		}
	} else {
		names = map[span]string{
			{6, 0}:   "opcode",
			{14, 12}: "funct3",
			{31, 25}: "funct7",
			{26, 25}: "funct2",
			{31, 27}: "funct5",
			{31, 26}: "funct6",
			{31, 20}: "funct12",
		}
	}
	if name, ok := names[span{hi, lo}]; ok {
		return name
	}
	return fmt.Sprintf("bits%d_%d", hi, lo)
}

// slotName returns the name of the fixed or register slot of format fd
// that field f fills exactly, falling back to the conventional name of its
// range.
func slotName(fd *FormatDescriptor, f FieldSpec) string {
	for _, s := range fd.Slots {
		if s.Hi != f.Hi || s.Lo != f.Lo || s.Name == "" {
			continue
		}
		if s.Role == RoleFixed || s.Role == RoleRegister {
			return s.Name
		}
	}
	return wellKnownSlot(fd.Width, f.Hi, f.Lo)
}

// formatOrder sorts formats by width and then name, keeping FormatOf in
// step.
type formatOrder struct{ reg *Registry }

func (o formatOrder) Len() int { return len(o.reg.Formats) }

func (o formatOrder) Less(i, j int) bool {
	a, b := o.reg.Formats[i], o.reg.Formats[j]
	if a.Width != b.Width {
		return a.Width < b.Width
	}
	if a.Declared != b.Declared {
		return a.Declared
	}
	return a.Name < b.Name
}

func (o formatOrder) Swap(i, j int) {
	o.reg.Formats[i], o.reg.Formats[j] = o.reg.Formats[j], o.reg.Formats[i]
	for k, f := range o.reg.FormatOf {
		switch f {
		case i:
			o.reg.FormatOf[k] = j
		case j:
			o.reg.FormatOf[k] = i
		}
	}
}

func dedupSorted(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	for i, s := range in {
		if i > 0 && s == in[i-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (r *Registry) ref(i int) EncodingRef {
	s := &r.Specs[i]
	return EncodingRef{Mnemonic: s.Mnemonic, Standard: s.Standard, Source: s.Source}
}

// checkConflicts compares every pair of encodings of the same width whose
// base widths intersect. Identical encodings are allowed only between an
// explicit alias and its base; partial overlaps are allowed only when one
// encoding is strictly more specific than the other.
func (r *Registry) checkConflicts(logger log.Logger) error {
	var errs ErrorList
	type enc struct{ mask, value bits32 }
	encs := make([]enc, len(r.Specs))
	for i := range r.Specs {
		encs[i].mask, encs[i].value = r.Specs[i].Encoding()
	}

	shadows := 0
	for i := range r.Specs {
		a := &r.Specs[i]
		for j := i + 1; j < len(r.Specs); j++ {
			b := &r.Specs[j]
			if a.Width != b.Width || !a.XLENs.Intersects(b.XLENs) {
				continue
			}
			ma, va := encs[i].mask, encs[i].value
			mb, vb := encs[j].mask, encs[j].value

			if a.Key() == b.Key() {
				errs = append(errs, &ConflictError{Width: a.Width, Mask: ma, Value: va, First: r.ref(i), Other: r.ref(j), Reason: "define the same instruction twice"})
				continue
			}
			if (va^vb)&ma&mb != 0 {
				continue
			}

			switch {
			case ma == mb:
				switch {
				case a.Alias && a.AliasOf == b.Key() && !(b.Alias && b.AliasOf == a.Key()):
					r.Before[j] = append(r.Before[j], i)
				case b.Alias && b.AliasOf == a.Key() && !(a.Alias && a.AliasOf == b.Key()):
					r.Before[i] = append(r.Before[i], j)
				default:
					errs = append(errs, &ConflictError{Width: a.Width, Mask: ma, Value: va, First: r.ref(i), Other: r.ref(j), Reason: "have identical encodings"})
				}
			case ma&mb == mb:
				r.Before[i] = append(r.Before[i], j)
				shadows++
				logger.Info("Encoding shadows a broader one", "specific", a.Key(), "broader", b.Key())
			case ma&mb == ma:
				r.Before[j] = append(r.Before[j], i)
				shadows++
				logger.Info("Encoding shadows a broader one", "specific", b.Key(), "broader", a.Key())
			default:
				errs = append(errs, &ConflictError{Width: a.Width, Mask: ma | mb, Value: va | vb, First: r.ref(i), Other: r.ref(j), Reason: "overlap without either being more specific"})
			}
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}
	logger.Info("Checked encodings", "instructions", len(r.Specs), "formats", len(r.Formats), "shadowed", shadows)
	return nil
}
