package wrangle

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocateManual(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/instr-table.tex": instrTableTex,
		"src/c.tex":           compressedFormsTex,
	})
	srcs, err := Locate(root, nil)
	require.NoError(t, err)
	require.Equal(t, LayoutManual, srcs.Layout)
	require.Len(t, srcs.Documents, 2)

	require.Equal(t, "src/instr-table.tex", srcs.Documents[0].Rel)
	require.Equal(t, ShapeGridTable, srcs.Documents[0].Shape)
	require.False(t, srcs.Documents[0].Optional)
	require.Equal(t, Invalid, srcs.Documents[0].Default)
	require.Equal(t, filepath.Join(root, "src", "instr-table.tex"), srcs.Documents[0].Path)

	require.Equal(t, "src/c.tex", srcs.Documents[1].Rel)
	require.Equal(t, ShapeFormList, srcs.Documents[1].Shape)
	require.False(t, srcs.Documents[1].Optional)

	require.Equal(t, []string{"src/priv-instr-table.tex", "src/rvc-instr-table.tex"}, srcs.Skipped)

	srcs, err = Locate(root, []string{"src/./c.tex"})
	require.NoError(t, err)
	require.False(t, srcs.Documents[0].Optional)
	require.True(t, srcs.Documents[1].Optional)
}

func TestLocateManualOrder(t *testing.T) {
	root := writeTree(t, manualTree())
	srcs, err := Locate(root, nil)
	require.NoError(t, err)

	var rels []string
	for _, doc := range srcs.Documents {
		rels = append(rels, doc.Rel)
	}
	require.Equal(t, []string{
		"src/instr-table.tex",
		"src/priv-instr-table.tex",
		"src/c.tex",
		"src/rvc-instr-table.tex",
	}, rels)
	require.Equal(t, MakeStandard(RV32, ExtC), srcs.Documents[3].Default)
	require.Empty(t, srcs.Skipped)
}

func TestLocateNotFound(t *testing.T) {
	for name, files := range map[string]map[string]string{
		"empty":       {},
		"other files": {"README.md": "manual\n", "src/intro.tex": ""},
		"no listings": {"arg_lut.csv": argLUT, "README.md": ""},
	} {
		root := writeTree(t, files)
		_, err := Locate(root, nil)
		var nf *SourceNotFoundError
		require.True(t, errors.As(err, &nf), name)
		require.Equal(t, root, nf.Root, name)
		require.NotEmpty(t, nf.Expected, name)
	}

	_, err := Locate(filepath.Join(t.TempDir(), "missing"), nil)
	var nf *SourceNotFoundError
	require.ErrorAs(t, err, &nf)
	require.Contains(t, err.Error(), "src/instr-table.tex")
}
