package wrangle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func TestProvenanceWithoutRepository(t *testing.T) {
	root := filepath.Join(t.TempDir(), "riscv-isa-manual")
	require.NoError(t, os.Mkdir(root, 0o755))

	p, err := ReadProvenance(root)
	require.NoError(t, err)
	require.Equal(t, []string{"riscv-isa-manual"}, p.Lines())
}

func TestProvenanceFromRepository(t *testing.T) {
	root := writeTree(t, map[string]string{"src/instr-table.tex": instrTableTex})
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://github.com/riscv/riscv-isa-manual.git"},
	})
	require.NoError(t, err)

	p, err := ReadProvenance(root)
	require.NoError(t, err, "an empty repository has no revision")
	require.Equal(t, "", p.Hash)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("src/instr-table.tex")
	require.NoError(t, err)
	hash, err := wt.Commit("Add instruction table", &git.CommitOptions{
		Author: &object.Signature{Name: "Manual Author", Email: "author@example.com", When: time.Unix(1500000000, 0)},
	})
	require.NoError(t, err)

	p, err = ReadProvenance(filepath.Join(root, "src"))
	require.NoError(t, err)
	require.Equal(t, hash.String(), p.Hash)
	require.Equal(t, "heads/master", p.Ref)
	require.Equal(t, []string{"https://github.com/riscv/riscv-isa-manual.git", "heads/master", hash.String()}, p.Lines())

	_, err = repo.CreateTag("draft-20180731", hash, nil)
	require.NoError(t, err)
	p, err = ReadProvenance(root)
	require.NoError(t, err)
	require.Equal(t, "tags/draft-20180731", p.Ref)
}
