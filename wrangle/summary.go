package wrangle

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// Summary renders an overview of the generated tables: instruction counts
// per width and standard, the members of each format, and every entry that
// must be tried before the broader ones it overlaps.
func Summary(t *Tables) string {
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf(
		"%d instructions, %d formats, %d constants (%s)",
		len(t.Instructions.Entries), len(t.Formats), t.Constants.Len(),
		firstLine(t.Provenance.Lines()),
	))

	type group struct {
		width Width
		std   Standard
	}
	var order []group
	counts := make(map[group]int)
	aliases := make(map[group]int)
	for _, e := range t.Instructions.Entries {
		g := group{e.Width, e.Standard}
		if _, exists := counts[g]; !exists {
			order = append(order, g)
		}
		counts[g]++
		if e.Alias {
			aliases[g]++
		}
	}

	byWidth := make(map[Width]treeprint.Tree)
	for _, g := range order {
		branch, ok := byWidth[g.width]
		if !ok {
			branch = tree.AddBranch(fmt.Sprintf("%d-bit", g.width))
			byWidth[g.width] = branch
		}
		label := fmt.Sprintf("%s: %d", g.std, counts[g])
		if n := aliases[g]; n > 0 {
			label += fmt.Sprintf(" (%d aliases)", n)
		}
		branch.AddNode(label)
	}

	formats := tree.AddBranch("formats")
	for _, f := range t.Formats {
		label := fmt.Sprintf("%s (%d-bit, %d members)", f.Name, f.Width, len(f.Members))
		if !f.Declared {
			label += " undeclared"
		}
		formats.AddNode(label)
	}

	var shadows treeprint.Tree
	for _, e := range t.Instructions.Entries {
		if len(e.Shadows) == 0 {
			continue
		}
		if shadows == nil {
			shadows = tree.AddBranch("shadows")
		}
		branch := shadows.AddBranch(e.Key())
		for _, key := range e.Shadows {
			branch.AddNode(key)
		}
	}
	return tree.String()
}

func firstLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}
