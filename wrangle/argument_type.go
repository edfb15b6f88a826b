package wrangle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type ArgType string

const (
	ArgGeneral           ArgType = "arg"
	ArgIntReg            ArgType = "ireg"
	ArgFloatReg          ArgType = "freg"
	ArgCompressedReg     ArgType = "creg"
	ArgCompressedFReg    ArgType = "cfreg"
	ArgOffset            ArgType = "offset"
	ArgSignedImmediate   ArgType = "simm"
	ArgUnsignedImmediate ArgType = "uimm"
)

// argTypes lists every ArgType in a fixed order for emitted enumerations.
var argTypes = []ArgType{
	ArgGeneral,
	ArgIntReg,
	ArgFloatReg,
	ArgCompressedReg,
	ArgCompressedFReg,
	ArgOffset,
	ArgSignedImmediate,
	ArgUnsignedImmediate,
}

func (t ArgType) Signed() bool {
	return t == ArgOffset || t == ArgSignedImmediate
}

func (t ArgType) IsRegister() bool {
	switch t {
	case ArgIntReg, ArgFloatReg, ArgCompressedReg, ArgCompressedFReg:
		return true
	}
	return false
}

var (
	floatMnemonicPattern = regexp.MustCompile(`^(?:C\.)?F`)
	intSourcePattern     = regexp.MustCompile(`^(?:FMV\.[A-Z]+\.X|FCVT\.[A-Z]+\.(?:W|WU|L|LU))$`)
	intDestPattern       = regexp.MustCompile(`^(?:FMV\.X\.[A-Z]+|FCVT(?:MOD)?\.(?:W|WU|L|LU)\.[A-Z]+|FCLASS\.[A-Z]+|F(?:EQ|LT|LE|LTQ|LEQ)\.[A-Z]+)$`)
)

// isFloatStandard reports whether std is one of the floating-point
// extensions, alone or combined with another as in "C_D" or "D_Zfh".
// Zfinx and its relatives keep their operands in integer registers.
func isFloatStandard(std Standard) bool {
	for _, part := range strings.Split(string(std.Ext), "_") {
		switch {
		case part == string(ExtF), part == string(ExtD), part == string(ExtQ):
			return true
		case strings.HasPrefix(part, "Zf") && !strings.HasSuffix(part, "inx"):
			return true
		}
	}
	return false
}

// registerType refines the type of a register operand. Floating-point
// instructions name their operands rd and rs1..rs3 like the integer ones;
// which of them are float registers depends on the instruction.
func registerType(mnemonic string, std Standard, operand string, t ArgType) ArgType {
	if t != ArgIntReg && t != ArgCompressedReg {
		return t
	}
	if !floatMnemonicPattern.MatchString(mnemonic) {
		return t
	}
	if !strings.HasPrefix(mnemonic, "C.") && !isFloatStandard(std) {
		return t
	}

	float := false
	switch operandKey(operand) {
	case "rd":
		float = !intDestPattern.MatchString(mnemonic)
	case "rs1":
		// Loads and stores address memory through an integer base.
		float = !loadPattern.MatchString(mnemonic) &&
			!storePattern.MatchString(mnemonic) &&
			!intSourcePattern.MatchString(mnemonic)
	case "rs2", "rs3":
		float = true
	}
	switch {
	case !float:
		return t
	case t == ArgCompressedReg:
		return ArgCompressedFReg
	}
	return ArgFloatReg
}

// ParseFragments maps the source range srcHi..srcLo onto the destination
// bits named by a bracketed immediate spec such as "12|10:5" (as in
// "imm[12|10:5]"). The most significant source bits feed the first
// destination group. An empty spec maps the range onto the low bits of the
// operand.
func ParseFragments(srcHi, srcLo uint8, dests string) ([]Fragment, error) {
	if srcHi < srcLo {
		return nil, fmt.Errorf("inverted bit range %d:%d", srcHi, srcLo)
	}
	if strings.TrimSpace(dests) == "" {
		return []Fragment{{SrcHi: srcHi, SrcLo: srcLo, DstLo: 0}}, nil
	}

	var ret []Fragment
	srcTop := int(srcHi)
	for _, rawConcat := range strings.Split(dests, "|") {
		rawDestTop, rawDestBottom := partition(strings.TrimSpace(rawConcat), ":")
		if rawDestBottom == "" {
			rawDestBottom = rawDestTop
		}
		destTop, err := strconv.ParseUint(strings.TrimSpace(rawDestTop), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid destination bit %q", rawDestTop)
		}
		destBottom, err := strconv.ParseUint(strings.TrimSpace(rawDestBottom), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid destination bit %q", rawDestBottom)
		}
		if destTop < destBottom {
			return nil, fmt.Errorf("inverted destination range %d:%d", destTop, destBottom)
		}
		width := int(destTop - destBottom)
		srcBottom := srcTop - width
		if srcBottom < int(srcLo) {
			return nil, fmt.Errorf("destination bits [%s] need more than the %d source bits available", dests, int(srcHi)-int(srcLo)+1)
		}

		ret = append(ret, Fragment{
			SrcHi: uint8(srcTop),
			SrcLo: uint8(srcBottom),
			DstLo: uint8(destBottom),
		})

		// The next concat will pick up where this one left off, so
		// we'll push srcTop along by the width of what we just decoded.
		srcTop -= width + 1
	}
	if srcTop+1 != int(srcLo) {
		return nil, fmt.Errorf("destination bits [%s] cover %d of the %d source bits", dests, int(srcHi)-srcTop, int(srcHi)-int(srcLo)+1)
	}
	return ret, nil
}

// ParseArgDecodeSpec deals with strings like "31:25[12|10:5],11:7[4:1|11]"
// and normalizes them into a list of fragments. A part with no brackets is
// a simple right-justified field.
func ParseArgDecodeSpec(raw string) ([]Fragment, error) {
	var ret []Fragment
	for _, rawPart := range strings.Split(raw, ",") {
		rawSrc, rawDests := partition(rawPart, "[")
		if rawDests != "" {
			if !strings.HasSuffix(rawDests, "]") {
				return nil, fmt.Errorf("unterminated destination spec in %q", rawPart)
			}
			rawDests = rawDests[:len(rawDests)-1] // trim closing bracket
		}
		rawTop, rawBottom := partition(rawSrc, ":")
		if rawBottom == "" {
			rawBottom = rawTop
		}
		top, err := strconv.ParseUint(rawTop, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid source bit %q", rawTop)
		}
		bottom, err := strconv.ParseUint(rawBottom, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid source bit %q", rawBottom)
		}
		frags, err := ParseFragments(uint8(top), uint8(bottom), rawDests)
		if err != nil {
			return nil, err
		}
		ret = append(ret, frags...)
	}
	return ret, nil
}

// decodeSteps turns fragments into mask-and-shift steps whose results can
// be bitwise-ORed together to produce the operand value.
func decodeSteps(field string, frags []Fragment) []ArgDecodeStep {
	ret := make([]ArgDecodeStep, 0, len(frags))
	for _, f := range frags {
		ret = append(ret, ArgDecodeStep{
			Field:      field,
			Mask:       rangeMask(uint(f.SrcHi), uint(f.SrcLo)),
			RightShift: int(f.SrcLo) - int(f.DstLo),
		})
	}
	return ret
}

func partition(s string, sep string) (l, r string) {
	idx := strings.Index(s, sep)
	if idx == -1 {
		return s, ""
	}
	return s[:idx], s[idx+len(sep):]
}
