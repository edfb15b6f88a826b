package wrangle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const argLUT = `"rd", 11, 7
"rs1", 19, 15
"rs2", 24, 20
"imm12", 31, 20
"bimm12hi", 31, 25
"bimm12lo", 11, 7
"csr", 31, 20
"rd_rs1_n0", 11, 7
"c_nzimm6hi", 12, 12
"c_nzimm6lo", 6, 2
`

const rvI = `# base integer
add     rd rs1 rs2 31..25=0  14..12=0 6..2=0x0C 1..0=3
sub     rd rs1 rs2 31..25=32 14..12=0 6..2=0x0C 1..0=3
addi    rd rs1 imm12 14..12=0 6..2=0x04 1..0=3
beq     bimm12hi rs1 rs2 bimm12lo 14..12=0 6..2=0x18 1..0=3

$pseudo_op rv_i::add mov rd rs1 rs2 31..25=0 14..12=0 6..2=0x0C 1..0=3
$pseudo_op rv_i::addi nop 31..20=0 19..15=0 14..12=0 11..7=0 6..2=0x04 1..0=3
`

const rvC = `c.addi  rd_rs1_n0 c_nzimm6lo c_nzimm6hi 1..0=1 15..13=0
c.nop   c_nzimm6hi c_nzimm6lo 11..7=0 1..0=1 15..13=0
$import rv_i::add
`

const rvZicsr = `csrrw rd rs1 csr 14..12=1 6..2=0x1C 1..0=3
`

func opcodesTree() map[string]string {
	return map[string]string{
		"arg_lut.csv":          argLUT,
		"rv_i":                 rvI,
		"rv_c":                 rvC,
		"rv":                   "",
		"README.md":            "# riscv-opcodes\n",
		"extensions/rv_zicsr": rvZicsr,
	}
}

func TestLocateOpcodes(t *testing.T) {
	root := writeTree(t, opcodesTree())
	srcs, err := Locate(root, []string{"rv_c"})
	require.NoError(t, err)
	require.Equal(t, LayoutOpcodes, srcs.Layout)

	var rels []string
	for _, doc := range srcs.Documents {
		rels = append(rels, doc.Rel)
		require.Equal(t, ShapeOpcodeList, doc.Shape)
		require.Equal(t, doc.Rel == "rv_c", doc.Optional, doc.Rel)
	}
	require.Equal(t, []string{"extensions/rv_zicsr", "rv_c", "rv_i"}, rels)
	require.Equal(t, []string{"rv"}, srcs.Skipped)
	require.Equal(t, MakeStandard(RV32, "Zicsr"), srcs.Documents[0].Default)
}

func TestOpcodesTables(t *testing.T) {
	tables := mustCompile(t, opcodesTree())

	add := findEntry(t, tables, "RV32I::ADD")
	require.Equal(t, bits32(0xFE00707F), add.Mask)
	require.Equal(t, bits32(0x33), add.Match)
	require.Equal(t, []string{"RV32I::MOV"}, add.Shadows)

	mov := findEntry(t, tables, "RV32I::MOV")
	require.True(t, mov.Alias)
	require.Equal(t, "RV32I::ADD", mov.AliasOf)

	nop := findEntry(t, tables, "RV32I::NOP")
	require.Equal(t, bits32(0xFFFFFFFF), nop.Mask)
	require.Equal(t, bits32(0x13), nop.Match)
	require.Equal(t, []string{"RV32I::ADDI"}, nop.Shadows)
	require.Equal(t, "NOP", tables.Instructions.Lookup(Width32, XLEN64, 0x13).Mnemonic)
	require.Equal(t, "ADDI", tables.Instructions.Lookup(Width32, XLEN64, 0x00100093).Mnemonic)
	require.Equal(t, "ADD", tables.Instructions.Lookup(Width32, XLEN32, 0x002081B3).Mnemonic)

	beq := findEntry(t, tables, "RV32I::BEQ")
	require.Equal(t, "BRANCH", beq.Major)
	require.Len(t, beq.Operands, 3)
	require.Equal(t, "rs1", beq.Operands[0].Name)
	require.Equal(t, "rs2", beq.Operands[1].Name)
	imm := beq.Operands[2]
	require.Equal(t, ArgOffset, imm.Type)
	require.Equal(t, uint8(13), imm.Width)
	require.Len(t, imm.Steps, 4)
	require.Equal(t, "FIELD_BIMM12HI", imm.Steps[0].Field)
	require.Equal(t, "FIELD_BIMM12LO", imm.Steps[3].Field)
	require.Equal(t, int64(-4), imm.Extract(0xFE000EE3))

	caddi := findEntry(t, tables, "RV32C::C.ADDI")
	require.Equal(t, Width16, caddi.Width)
	require.Equal(t, bits32(0xE003), caddi.Mask)
	require.Equal(t, bits32(0x0001), caddi.Match)
	require.Equal(t, "rd", caddi.Operands[0].Name)
	require.Equal(t, int64(-1), caddi.Operands[1].Extract(0x10FD))

	cnop := findEntry(t, tables, "RV32C::C.NOP")
	require.Equal(t, bits32(0xEF83), cnop.Mask)
	require.Equal(t, []string{"RV32C::C.ADDI"}, cnop.Shadows)

	csrrw := findEntry(t, tables, "Zicsr::CSRRW")
	require.Equal(t, "SYSTEM", csrrw.Major)
	var names []string
	for _, op := range csrrw.Operands {
		names = append(names, op.Name)
	}
	require.Equal(t, []string{"rd", "csr", "rs1"}, names)

	require.Equal(t, []Standard{MakeStandard(RV32, ExtI), MakeStandard(RV32, ExtC), MakeStandard(RV32, "Zicsr")}, tables.Categories)
	_, ok := tables.Constants.Lookup("C_FIELD_RD_RS1_N0")
	require.True(t, ok)
}

func TestOpcodesMalformedLines(t *testing.T) {
	files := opcodesTree()
	files["rv_i"] = rvI + "bogus rd widget 6..2=0x0C 1..0=3\nshort rd rs1 6..2=0x0C 1..0=3\n"
	_, err := compileTree(t, files)
	require.Error(t, err)
	require.True(t, IsMalformed(err))

	var list ErrorList
	require.ErrorAs(t, err, &list)
	require.Len(t, list, 2)
	require.Contains(t, list[0].Error(), "rv_i:9")
	require.Contains(t, list[0].Error(), `field "widget"`)
	require.Contains(t, list[1].Error(), "cover")

	files = opcodesTree()
	files["rv_i"] = rvI + "add rd rs1 rs2 31..25=0 14..12=0 6..2=0x0C 1..0=3\n"
	_, err = compileTree(t, files)
	require.True(t, IsMalformed(err))
	require.Contains(t, err.Error(), "already defined at rv_i:2")
}

func TestParseMatchSpec(t *testing.T) {
	ms, err := parseMatchSpec("14..12=0x5")
	require.NoError(t, err)
	require.Equal(t, matchSpec{Hi: 14, Lo: 12, Value: 5}, ms)

	ms, err = parseMatchSpec("12=1")
	require.NoError(t, err)
	require.Equal(t, matchSpec{Hi: 12, Lo: 12, Value: 1}, ms)

	ms, err = parseMatchSpec("31..20=ignore")
	require.NoError(t, err)
	require.True(t, ms.Ignore)
	require.Equal(t, RoleReserved, ms.field().Role)

	for _, bad := range []string{"14..12", "14..12=8", "12..14=0", "40=1", "x..0=1", "6..2=zz"} {
		_, err := parseMatchSpec(bad)
		require.Error(t, err, bad)
	}
}

func TestLoadMajorOpcodes(t *testing.T) {
	majors := loadMajorOpcodes()
	require.Equal(t, "OP_IMM", majors[0x13].Ident)
	require.Equal(t, "LOAD_FP", majors[0x07].Ident)
	require.Equal(t, "SYSTEM", majors[0x73].Ident)
	_, reserved := majors[0x57]
	require.False(t, reserved)
	_, custom := majors[0x0B]
	require.False(t, custom)
}
