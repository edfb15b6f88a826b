package wrangle

import (
	"sort"
)

// tableOrder returns the spec indices of reg in decode table order. The
// base order groups by width, then standard, then mnemonic; it is then
// adjusted so that every spec comes before the specs listed for it in
// reg.Before, moving as little as possible.
func tableOrder(reg *Registry) []int {
	n := len(reg.Specs)
	base := make([]int, n)
	for i := range base {
		base[i] = i
	}
	sort.SliceStable(base, func(i, j int) bool {
		a, b := &reg.Specs[base[i]], &reg.Specs[base[j]]
		if a.Width != b.Width {
			return a.Width < b.Width
		}
		if a.Standard != b.Standard {
			return a.Standard.Less(b.Standard)
		}
		if a.Mnemonic != b.Mnemonic {
			return a.Mnemonic < b.Mnemonic
		}
		if a.Source.Path != b.Source.Path {
			return a.Source.Path < b.Source.Path
		}
		return a.Source.Line < b.Source.Line
	})
	rank := make([]int, n)
	for pos, i := range base {
		rank[i] = pos
	}

	indegree := make([]int, n)
	for _, after := range reg.Before {
		for _, j := range after {
			indegree[j]++
		}
	}

	// Kahn's algorithm, always taking the ready spec that comes first in
	// the base order.
	var ready []int
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	ret := make([]int, 0, n)
	done := make([]bool, n)
	for len(ready) > 0 {
		best := 0
		for k := 1; k < len(ready); k++ {
			if rank[ready[k]] < rank[ready[best]] {
				best = k
			}
		}
		i := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		ret = append(ret, i)
		done[i] = true
		for _, j := range reg.Before[i] {
			indegree[j]--
			if indegree[j] == 0 {
				ready = append(ready, j)
			}
		}
	}

	// Precedence edges always point from a strictly more specific mask to
	// a broader one, or from a base to its alias, so they cannot form a
	// cycle. Anything left over would still be emitted in base order.
	if len(ret) < n {
		for _, i := range base {
			if !done[i] {
				ret = append(ret, i)
			}
		}
	}
	return ret
}
