package wrangle

import (
	"errors"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Provenance records which revision of the source tree the tables were
// generated from. It deliberately has no timestamp so that regenerating
// from the same revision gives identical output.
type Provenance struct {
	URL  string
	Ref  string
	Hash string

	// Dir is the base name of the source tree, used when it is not a git
	// checkout.
	Dir string
}

// Lines returns the provenance as it appears in generated file headers.
func (p Provenance) Lines() []string {
	if p.Hash == "" {
		return []string{p.Dir}
	}
	var ret []string
	if p.URL != "" {
		ret = append(ret, p.URL)
	}
	if p.Ref != "" {
		ret = append(ret, p.Ref)
	}
	return append(ret, p.Hash)
}

// ReadProvenance inspects the git repository containing root. A tree that
// is not in a git repository is identified by its directory name alone.
func ReadProvenance(root string) (Provenance, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Provenance{}, err
	}
	p := Provenance{Dir: filepath.Base(abs)}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return p, nil
	}
	if err != nil {
		return p, err
	}

	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			p.URL = urls[0]
		}
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// empty repository
		return p, nil
	}
	if err != nil {
		return p, err
	}
	p.Hash = head.Hash().String()
	p.Ref = describeRef(repo, head)
	return p, nil
}

// describeRef names head the way "git describe --all" does for an exact
// match: a tag pointing at the commit wins over the branch.
func describeRef(repo *git.Repository, head *plumbing.Reference) string {
	var tags []string
	if iter, err := repo.Tags(); err == nil {
		_ = iter.ForEach(func(ref *plumbing.Reference) error {
			target := ref.Hash()
			if tag, err := repo.TagObject(target); err == nil {
				target = tag.Target
			}
			if target == head.Hash() {
				tags = append(tags, ref.Name().Short())
			}
			return nil
		})
	}
	if len(tags) > 0 {
		sort.Strings(tags)
		return "tags/" + tags[0]
	}
	if head.Name().IsBranch() {
		return "heads/" + head.Name().Short()
	}
	return head.Hash().String()[:7]
}
