package weave

import (
	"fmt"
	"sort"
)

// Join pulls every version of other that is missing here into w.
//
// For any name present in both weaves the stored text must be identical;
// ErrTextDisagreement is returned before anything is changed, never
// resolved silently. When the two weaves recorded compatible parent sets
// (other's parents a subset of ours for every shared name), the missing
// versions are replayed through Add in an order that lands parents
// first. When parent sets differ, the weave is rebuilt from scratch with
// the union of both parent sets for every version.
func (w *Weave) Join(other *Weave) error {
	if other.NumVersions() == 0 {
		return nil
	}

	// Verify shared names and decide the strategy before mutating.
	rebuild := false
	for name, oidx := range other.nameMap {
		sidx, ok := w.nameMap[name]
		if !ok {
			continue
		}
		if w.sha1s[sidx] != other.sha1s[oidx] {
			return fmt.Errorf("%w for version %q", ErrTextDisagreement, name)
		}
		if !subsetByName(other, oidx, w, sidx) {
			rebuild = true
		}
	}

	if rebuild {
		merged, err := Reweave(w, other)
		if err != nil {
			return err
		}
		w.adopt(merged)
		return nil
	}

	order, err := topoOrder(parentNameGraph(other))
	if err != nil {
		return err
	}
	for _, name := range order {
		if _, ok := w.nameMap[name]; ok {
			continue
		}
		oidx := other.nameMap[name]
		parents, err := w.mapParents(other, oidx)
		if err != nil {
			return err
		}
		lines, err := other.GetLines(oidx)
		if err != nil {
			return err
		}
		if _, err := w.Add(name, parents, lines); err != nil {
			return err
		}
	}
	return nil
}

// Reweave combines two weaves of the same logical file into a fresh one.
//
// Every version present in either input appears in the result, with the
// union of the parent sets the two inputs recorded for it. Versions
// named in both inputs must carry identical text.
func Reweave(a, b *Weave) (*Weave, error) {
	combined := make(map[string][]string)
	for _, w := range []*Weave{a, b} {
		for idx, name := range w.names {
			seen := make(map[string]bool, len(combined[name]))
			for _, p := range combined[name] {
				seen[p] = true
			}
			for _, p := range w.parents[idx] {
				pname := w.names[p]
				if !seen[pname] {
					combined[name] = append(combined[name], pname)
					seen[pname] = true
				}
			}
			if _, ok := combined[name]; !ok {
				combined[name] = nil
			}
		}
	}

	order, err := topoOrder(combined)
	if err != nil {
		return nil, err
	}

	out := New(a.name)
	for _, name := range order {
		var lines []string
		if aidx, ok := a.nameMap[name]; ok {
			if bidx, ok := b.nameMap[name]; ok && a.sha1s[aidx] != b.sha1s[bidx] {
				return nil, fmt.Errorf("%w for version %q", ErrTextDisagreement, name)
			}
			lines, err = a.GetLines(aidx)
		} else {
			lines, err = b.GetLines(b.nameMap[name])
		}
		if err != nil {
			return nil, err
		}
		parents := make([]int, 0, len(combined[name]))
		for _, pname := range combined[name] {
			p, err := out.Lookup(pname)
			if err != nil {
				return nil, err
			}
			parents = append(parents, p)
		}
		sort.Ints(parents)
		if _, err := out.Add(name, parents, lines); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// mapParents translates other's parent indices for oidx into w's
// indices, by name. Every parent must already be present in w.
func (w *Weave) mapParents(other *Weave, oidx int) ([]int, error) {
	parents := make([]int, 0, len(other.parents[oidx]))
	for _, p := range other.parents[oidx] {
		idx, err := w.Lookup(other.names[p])
		if err != nil {
			return nil, fmt.Errorf("missing parent %q of %q: %w",
				other.names[p], other.names[oidx], err)
		}
		parents = append(parents, idx)
	}
	return parents, nil
}

// subsetByName reports whether other's parent set for oidx, taken by
// name, is a subset of w's parent set for sidx. Subsets are joinable
// without regenerating diffs; supersets are not.
func subsetByName(other *Weave, oidx int, w *Weave, sidx int) bool {
	mine := make(map[string]bool, len(w.parents[sidx]))
	for _, p := range w.parents[sidx] {
		mine[w.names[p]] = true
	}
	for _, p := range other.parents[oidx] {
		if !mine[other.names[p]] {
			return false
		}
	}
	return true
}

// parentNameGraph returns w's ancestry as a name -> parent-names map.
func parentNameGraph(w *Weave) map[string][]string {
	graph := make(map[string][]string, len(w.names))
	for idx, name := range w.names {
		pnames := make([]string, 0, len(w.parents[idx]))
		for _, p := range w.parents[idx] {
			pnames = append(pnames, w.names[p])
		}
		graph[name] = pnames
	}
	return graph
}

// topoOrder sorts the name graph so that parents come before children.
// Ties break lexically, which keeps the order stable across runs.
func topoOrder(graph map[string][]string) ([]string, error) {
	pending := make(map[string]int, len(graph))
	children := make(map[string][]string)
	for name, parents := range graph {
		pending[name] = len(parents)
		for _, p := range parents {
			children[p] = append(children[p], name)
		}
	}

	var ready []string
	for name, n := range pending {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(graph))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		next := children[name]
		sort.Strings(next)
		for _, c := range next {
			pending[c]--
			if pending[c] == 0 {
				ready = insertSorted(ready, c)
			}
		}
	}
	if len(order) != len(graph) {
		return nil, fmt.Errorf("%w: cycle in version ancestry", ErrBadParent)
	}
	return order, nil
}

func insertSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
