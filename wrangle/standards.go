package wrangle

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

type Extension string
type Size uint8

const (
	RVInvalid Size = 0
	RV32      Size = 32
	RV64      Size = 64
	RV128     Size = 128
)

const (
	ExtInvalid Extension = ""
	ExtI       Extension = "I" // base integer
	ExtM       Extension = "M" // multiply and divide
	ExtA       Extension = "A" // atomic
	ExtS       Extension = "S" // supervisor
	ExtF       Extension = "F" // single-precision floating point
	ExtD       Extension = "D" // double-precision floating point
	ExtQ       Extension = "Q" // quad-precision floating point
	ExtC       Extension = "C" // compressed
)

// extOrder is the canonical ordering of the single-letter extensions, as
// they appear in an ISA string.
var extOrder = map[Extension]int{
	ExtI: 0,
	ExtM: 1,
	ExtA: 2,
	ExtF: 3,
	ExtD: 4,
	ExtQ: 5,
	ExtC: 6,
	ExtS: 7,
}

// Standard names the subset an instruction is defined in: a base size plus
// an extension. Z-extensions (Zicsr, Zifencei, ...) that are not tied to a
// base are reported with Size RV32, the smallest base they apply to; those
// restricted to a wider base, such as the RV64 part of Zbb, keep that size.
type Standard struct {
	Size Size
	Ext  Extension
}

var Invalid = Standard{}

func MakeStandard(size Size, ext Extension) Standard {
	return Standard{Size: size, Ext: ext}
}

func (s Standard) IsZ() bool {
	return strings.HasPrefix(string(s.Ext), "Z")
}

func (s Standard) String() string {
	switch {
	case s == Invalid:
		return "invalid"
	case s.IsZ() && s.Size == RV32:
		return string(s.Ext)
	case s.IsZ():
		return fmt.Sprintf("RV%d_%s", s.Size, s.Ext)
	case s.Ext == ExtInvalid:
		return fmt.Sprintf("RV%d", s.Size)
	}
	return fmt.Sprintf("RV%d%s", s.Size, s.Ext)
}

// XLENs is the set of base widths for which an instruction is defined.
func (s Standard) XLENs() XLENs {
	if s.IsZ() && s.Size == RV32 {
		return XLENAll
	}
	return s.Size.AndWider()
}

// Less orders standards by size, then by the canonical extension order,
// with Z-extensions and anything unknown last, alphabetically.
func (s Standard) Less(o Standard) bool {
	if s.Size != o.Size {
		return s.Size < o.Size
	}
	si, sok := extOrder[s.Ext]
	oi, ook := extOrder[o.Ext]
	switch {
	case sok && ook:
		return si < oi
	case sok != ook:
		return sok
	}
	return s.Ext < o.Ext
}

// XLENs is a bitset of base integer widths.
type XLENs uint8

const (
	XLEN32 XLENs = 1 << iota
	XLEN64
	XLEN128

	XLENAll = XLEN32 | XLEN64 | XLEN128
)

func (s Size) XLEN() XLENs {
	switch s {
	case RV32:
		return XLEN32
	case RV64:
		return XLEN64
	case RV128:
		return XLEN128
	}
	return 0
}

// AndWider returns the widths an instruction introduced at size s remains
// available in.
func (s Size) AndWider() XLENs {
	switch s {
	case RV32:
		return XLENAll
	case RV64:
		return XLEN64 | XLEN128
	case RV128:
		return XLEN128
	}
	return 0
}

func (x XLENs) Intersects(o XLENs) bool {
	return x&o != 0
}

func (x XLENs) String() string {
	var parts []string
	for _, s := range []Size{RV32, RV64, RV128} {
		if x&s.XLEN() != 0 {
			parts = append(parts, fmt.Sprintf("%d", s))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return "RV" + strings.Join(parts, "/")
}

var (
	zExtPattern   = regexp.MustCompile(`\b(Z[a-z][a-z0-9]*)\b`)
	rvStdPattern  = regexp.MustCompile(`\bRV(32|64|128)([A-Z]*)`)
	xlenNotePatrn = regexp.MustCompile(`^\(?\s*RV((?:32|64|128)(?:/(?:32|64|128))*)\s*(?:[;,)]|$)`)
)

// ParseCategory extracts a Standard from a category heading in the manual's
// instruction listings, such as "RV64M Standard Extension (in addition to
// RV32M)" or "RV32/RV64 Zicsr Standard Extension". Headings that name no
// standard report false.
func ParseCategory(heading string) (Standard, bool) {
	if m := zExtPattern.FindStringSubmatch(heading); m != nil {
		return MakeStandard(RV32, Extension(m[1])), true
	}
	m := rvStdPattern.FindStringSubmatch(heading)
	if m == nil {
		return Invalid, false
	}
	size := parseSize(m[1])
	ext := Extension(m[2])
	if ext == ExtInvalid {
		ext = ExtI
	}
	return MakeStandard(size, ext), true
}

// ParseXLENNote recognizes the "(RV32/64)" style annotations that restrict
// a compressed listing to particular base widths. Notes that only mention a
// width in passing, such as "(RV32 NSE, ...)", are not restrictions.
func ParseXLENNote(note string) (XLENs, bool) {
	m := xlenNotePatrn.FindStringSubmatch(note)
	if m == nil {
		return 0, false
	}
	var ret XLENs
	for _, raw := range strings.Split(m[1], "/") {
		ret |= parseSize(raw).XLEN()
	}
	return ret, ret != 0
}

func parseSize(raw string) Size {
	switch raw {
	case "32":
		return RV32
	case "64":
		return RV64
	case "128":
		return RV128
	}
	return RVInvalid
}

// ParseStandard parses the standard identifiers used in machine-readable
// opcode listings, such as "rv32i", "rv64c", "rv_zicsr" or "rv64_m". The
// second result is the set of widths the listing is restricted to.
func ParseStandard(s string) (Standard, XLENs) {
	s = strings.ToLower(s)
	if !strings.HasPrefix(s, "rv") {
		return Invalid, 0
	}
	rest := s[2:]
	var sizeStr string
	for len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
		sizeStr += rest[:1]
		rest = rest[1:]
	}
	rest = strings.TrimPrefix(rest, "_")
	if rest == "" {
		return Invalid, 0
	}

	var exts []string
	for _, part := range strings.Split(rest, "_") {
		if part == "" {
			continue
		}
		if part[0] == 'z' {
			exts = append(exts, "Z"+part[1:])
			continue
		}
		exts = append(exts, strings.ToUpper(part))
	}
	ext := Extension(strings.Join(exts, "_"))

	if sizeStr == "" {
		// "rv_x" listings apply to every base width.
		return MakeStandard(RV32, ext), XLENAll
	}
	size := parseSize(sizeStr)
	if size == RVInvalid {
		return Invalid, 0
	}
	if strings.HasPrefix(string(ext), "Z") {
		return MakeStandard(size, ext), size.XLEN()
	}
	if sizeStr == "32" && len(s) > 4 && s[4] == '_' {
		// "rv32_x" is the RV32-only variant of "rv_x".
		return MakeStandard(size, ext), XLEN32
	}
	return MakeStandard(size, ext), size.AndWider()
}

type Standards map[Standard]struct{}

func (ss Standards) Has(s Standard) bool {
	_, ok := ss[s]
	return ok
}

func (ss Standards) Add(s Standard) {
	ss[s] = struct{}{}
}

func (ss Standards) Sorted() []Standard {
	var ssList []Standard
	for s := range ss {
		ssList = append(ssList, s)
	}
	sort.Slice(ssList, func(i, j int) bool {
		return ssList[i].Less(ssList[j])
	})
	return ssList
}

func (ss Standards) String() string {
	var buf strings.Builder
	for i, s := range ss.Sorted() {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(s.String())
	}
	return buf.String()
}
