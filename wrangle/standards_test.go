package wrangle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		heading string
		want    Standard
		ok      bool
	}{
		{"RV32I Base Instruction Set", MakeStandard(RV32, ExtI), true},
		{"RV64I Base Instruction Set (in addition to RV32I)", MakeStandard(RV64, ExtI), true},
		{"RV64M Standard Extension (in addition to RV32M)", MakeStandard(RV64, ExtM), true},
		{"RV32/RV64 Zicsr Standard Extension", MakeStandard(RV32, "Zicsr"), true},
		{"RV32/RV64 Zifencei Standard Extension", MakeStandard(RV32, "Zifencei"), true},
		{"Trap-Return Instructions", Invalid, false},
	}
	for _, test := range tests {
		got, ok := ParseCategory(test.heading)
		require.Equal(t, test.ok, ok, test.heading)
		require.Equal(t, test.want, got, test.heading)
	}
}

func TestParseStandard(t *testing.T) {
	tests := []struct {
		name  string
		want  Standard
		xlens XLENs
	}{
		{"rv32i", MakeStandard(RV32, ExtI), XLENAll},
		{"rv64i", MakeStandard(RV64, ExtI), XLEN64 | XLEN128},
		{"rv_c", MakeStandard(RV32, ExtC), XLENAll},
		{"rv32_c", MakeStandard(RV32, ExtC), XLEN32},
		{"rv64_m", MakeStandard(RV64, ExtM), XLEN64 | XLEN128},
		{"rv_zicsr", MakeStandard(RV32, "Zicsr"), XLENAll},
		{"rv32_zbb", MakeStandard(RV32, "Zbb"), XLEN32},
		{"rv64_zba", MakeStandard(RV64, "Zba"), XLEN64},
		{"rv_c_d", MakeStandard(RV32, "C_D"), XLENAll},
		{"rv", Invalid, 0},
		{"rv256i", Invalid, 0},
		{"README", Invalid, 0},
	}
	for _, test := range tests {
		got, xlens := ParseStandard(test.name)
		require.Equal(t, test.want, got, test.name)
		require.Equal(t, test.xlens, xlens, test.name)
	}
}

func TestParseXLENNote(t *testing.T) {
	x, ok := ParseXLENNote("(RV32/64)")
	require.True(t, ok)
	require.Equal(t, XLEN32|XLEN64, x)

	x, ok = ParseXLENNote("(RV128; RES, rd=0)")
	require.True(t, ok)
	require.Equal(t, XLEN128, x)

	_, ok = ParseXLENNote("(RV32 NSE, nzuimm[5]=1)")
	require.False(t, ok)
	_, ok = ParseXLENNote("(HINT, nzimm=0)")
	require.False(t, ok)
	_, ok = ParseXLENNote("")
	require.False(t, ok)
}

func TestStandardOrder(t *testing.T) {
	stds := Standards{}
	for _, s := range []Standard{
		MakeStandard(RV64, ExtI),
		MakeStandard(RV32, "Zicsr"),
		MakeStandard(RV32, ExtC),
		MakeStandard(RV32, ExtM),
		MakeStandard(RV32, ExtI),
	} {
		stds.Add(s)
	}
	require.Equal(t, "RV32I, RV32M, RV32C, Zicsr, RV64I", stds.String())
	require.Equal(t, XLEN64|XLEN128, MakeStandard(RV64, ExtI).XLENs())
	require.Equal(t, XLENAll, MakeStandard(RV32, "Zicsr").XLENs())
	require.Equal(t, "RV64_Zbb", MakeStandard(RV64, "Zbb").String())
	require.Equal(t, XLEN64|XLEN128, MakeStandard(RV64, "Zbb").XLENs())
	require.Equal(t, "RV32/64", (XLEN32 | XLEN64).String())
}
