package wrangle

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Layout identifies which kind of source tree Locate found.
type Layout uint8

const (
	LayoutManual Layout = iota + 1
	LayoutOpcodes
)

func (l Layout) String() string {
	switch l {
	case LayoutManual:
		return "manual"
	case LayoutOpcodes:
		return "opcodes"
	}
	return "unknown"
}

const (
	manualInstrTable     = "src/instr-table.tex"
	manualPrivInstrTable = "src/priv-instr-table.tex"
	manualCompressed     = "src/c.tex"
	manualRVCInstrTable  = "src/rvc-instr-table.tex"

	opcodesArgTable = "arg_lut.csv"
	opcodesExtDir   = "extensions"
)

// Sources is the ordered set of documents found under a source root.
type Sources struct {
	Root      string
	Layout    Layout
	Documents []Document

	// ArgTable is the argument position table of an opcodes tree.
	ArgTable string

	// Skipped lists absent supplementary documents and listing files whose
	// names carry no standard.
	Skipped []string
}

// Locate finds the documents describing instruction encodings under root.
// The returned order depends only on the tree's contents. Only the main
// instruction table of a manual must exist. Paths listed in optional
// (relative to root) are treated as optional documents, which are skipped
// rather than failing the run when malformed.
func Locate(root string, optional []string) (*Sources, error) {
	notFound := &SourceNotFoundError{
		Root:     root,
		Expected: []string{manualInstrTable, opcodesArgTable},
	}
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return nil, notFound
	}

	opt := make(map[string]bool, len(optional))
	for _, p := range optional {
		opt[filepath.ToSlash(filepath.Clean(p))] = true
	}

	var srcs *Sources
	switch {
	case isFile(filepath.Join(root, filepath.FromSlash(manualInstrTable))):
		srcs = locateManual(root)
	case isFile(filepath.Join(root, opcodesArgTable)):
		var err error
		srcs, err = locateOpcodes(root)
		if err != nil {
			return nil, err
		}
		if len(srcs.Documents) == 0 {
			notFound.Expected = []string{opcodesExtDir + "/rv*"}
			return nil, notFound
		}
	default:
		return nil, notFound
	}

	for i := range srcs.Documents {
		if opt[srcs.Documents[i].Rel] {
			srcs.Documents[i].Optional = true
		}
	}
	return srcs, nil
}

func locateManual(root string) *Sources {
	srcs := &Sources{Root: root, Layout: LayoutManual}
	candidates := []Document{
		{Rel: manualInstrTable, Shape: ShapeGridTable},
		{Rel: manualPrivInstrTable, Shape: ShapeGridTable, Default: MakeStandard(RV32, ExtI)},
		{Rel: manualCompressed, Shape: ShapeFormList},
		{Rel: manualRVCInstrTable, Shape: ShapeGridTable, Default: MakeStandard(RV32, ExtC)},
	}
	for _, doc := range candidates {
		doc.Path = filepath.Join(root, filepath.FromSlash(doc.Rel))
		if !isFile(doc.Path) {
			srcs.Skipped = append(srcs.Skipped, doc.Rel)
			continue
		}
		srcs.Documents = append(srcs.Documents, doc)
	}
	return srcs
}

func locateOpcodes(root string) (*Sources, error) {
	srcs := &Sources{
		Root:     root,
		Layout:   LayoutOpcodes,
		ArgTable: filepath.Join(root, opcodesArgTable),
	}
	for _, dir := range []string{".", opcodesExtDir} {
		entries, err := os.ReadDir(filepath.Join(root, dir))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, ent := range entries {
			name := ent.Name()
			if ent.IsDir() || !strings.HasPrefix(name, "rv") || strings.Contains(name, ".") {
				continue
			}
			std, xlens := ParseStandard(name)
			if std == Invalid {
				srcs.Skipped = append(srcs.Skipped, filepath.ToSlash(filepath.Join(dir, name)))
				continue
			}
			rel := filepath.ToSlash(filepath.Join(dir, name))
			srcs.Documents = append(srcs.Documents, Document{
				Path:    filepath.Join(root, dir, name),
				Rel:     rel,
				Shape:   ShapeOpcodeList,
				Default: std,
				XLENs:   xlens,
			})
		}
	}
	sort.Slice(srcs.Documents, func(i, j int) bool {
		return srcs.Documents[i].Rel < srcs.Documents[j].Rel
	})
	return srcs, nil
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
