package weave

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
)

// AnnotatedLine is one reconstructed line together with the version that
// introduced it.
type AnnotatedLine struct {
	Origin int
	Line   string
}

// sumLines returns the hex sha1 of the concatenated lines. This is the
// content address every version is recorded and verified under.
func sumLines(lines []string) string {
	h := sha1.New()
	for _, l := range lines {
		io.WriteString(h, l)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// inclusions returns the ancestor closure of the seed versions: every
// index reachable by following parent links, seeds included.
//
// Because parents are always strictly smaller than their children, one
// downward scan from the largest seed visits ancestors before anything
// that depends on them.
func (w *Weave) inclusions(versions []int) map[int]bool {
	incl := make(map[int]bool, len(versions))
	maxSeed := -1
	for _, v := range versions {
		incl[v] = true
		if v > maxSeed {
			maxSeed = v
		}
	}
	for v := maxSeed; v >= 0; v-- {
		if incl[v] {
			for _, p := range w.parents[v] {
				incl[p] = true
			}
		}
	}
	return incl
}

// extracted is one line selected by extract: the version that introduced
// it, its absolute position in the representation, and its text.
type extracted struct {
	origin int
	lineno int
	line   string
}

// extract returns the lines visible to the included version set, in
// representation order.
//
// A single pass maintains the insertion stack and the set of currently
// open deletions. Deletion markers for versions outside the included set
// are ignored entirely: they describe edits this snapshot never saw. A
// line is emitted when its governing insertion is included and no
// included deletion is open.
func (w *Weave) extract(included map[int]bool) ([]extracted, error) {
	var istack []int
	dset := make(map[int]bool)
	var result []extracted

	for lineno, el := range w.elems {
		switch el.kind {
		case elemInsertOpen:
			istack = append(istack, el.version)
		case elemInsertClose:
			if len(istack) == 0 {
				return nil, formatErrf("insertion close with no open block at element %d", lineno)
			}
			istack = istack[:len(istack)-1]
		case elemDeleteOpen:
			if included[el.version] {
				dset[el.version] = true
			}
		case elemDeleteClose:
			if included[el.version] {
				if !dset[el.version] {
					return nil, formatErrf("deletion close for %d with no open region at element %d", el.version, lineno)
				}
				delete(dset, el.version)
			}
		case elemLine:
			if len(istack) == 0 {
				return nil, formatErrf("text outside any insertion block at element %d", lineno)
			}
			top := istack[len(istack)-1]
			if len(dset) == 0 && included[top] {
				result = append(result, extracted{origin: top, lineno: lineno, line: el.line})
			}
		}
	}
	if len(istack) > 0 {
		return nil, formatErrf("unclosed insertion blocks at end of weave: %v", istack)
	}
	if len(dset) > 0 {
		return nil, formatErrf("unclosed deletion regions at end of weave: %v", setMembers(dset))
	}
	return result, nil
}

// walk visits every literal line of the raw representation, unfiltered
// by any inclusion set, passing its position, governing insertion and
// the full set of deletions open at that point. The deletes map is
// reused between calls and must not be retained.
func (w *Weave) walk(visit func(lineno, insert int, deletes map[int]bool, line string)) error {
	var istack []int
	dset := make(map[int]bool)

	for lineno, el := range w.elems {
		switch el.kind {
		case elemInsertOpen:
			istack = append(istack, el.version)
		case elemInsertClose:
			if len(istack) == 0 {
				return formatErrf("insertion close with no open block at element %d", lineno)
			}
			istack = istack[:len(istack)-1]
		case elemDeleteOpen:
			dset[el.version] = true
		case elemDeleteClose:
			if !dset[el.version] {
				return formatErrf("deletion close for %d with no open region at element %d", el.version, lineno)
			}
			delete(dset, el.version)
		case elemLine:
			if len(istack) == 0 {
				return formatErrf("text outside any insertion block at element %d", lineno)
			}
			visit(lineno, istack[len(istack)-1], dset, el.line)
		}
	}
	if len(istack) > 0 {
		return formatErrf("unclosed insertion blocks at end of weave: %v", istack)
	}
	if len(dset) > 0 {
		return formatErrf("unclosed deletion regions at end of weave: %v", setMembers(dset))
	}
	return nil
}

// GetLines reconstructs the text of one version. The result is verified
// against the stored sha1 before being returned; an IntegrityError means
// the weave can no longer be trusted.
func (w *Weave) GetLines(v int) ([]string, error) {
	if err := w.checkVersion(v); err != nil {
		return nil, err
	}
	ex, err := w.extract(w.inclusions([]int{v}))
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(ex))
	for _, e := range ex {
		lines = append(lines, e.line)
	}
	if got := sumLines(lines); got != w.sha1s[v] {
		return nil, &IntegrityError{Version: v, Name: w.names[v], Want: w.sha1s[v], Got: got}
	}
	return lines, nil
}

// GetText reconstructs one version as a single string.
func (w *Weave) GetText(v int) (string, error) {
	lines, err := w.GetLines(v)
	if err != nil {
		return "", err
	}
	n := 0
	for _, l := range lines {
		n += len(l)
	}
	buf := make([]byte, 0, n)
	for _, l := range lines {
		buf = append(buf, l...)
	}
	return string(buf), nil
}

// Annotate reconstructs one version, attributing each line to the
// version that introduced it. Stripped of origins it equals GetLines(v);
// every origin is an ancestor-or-self of v.
func (w *Weave) Annotate(v int) ([]AnnotatedLine, error) {
	if err := w.checkVersion(v); err != nil {
		return nil, err
	}
	ex, err := w.extract(w.inclusions([]int{v}))
	if err != nil {
		return nil, err
	}
	result := make([]AnnotatedLine, 0, len(ex))
	for _, e := range ex {
		result = append(result, AnnotatedLine{Origin: e.origin, Line: e.line})
	}
	return result, nil
}

// Mash renders the union of several versions: the lines visible to the
// combined ancestor closure of the given set. It is the merge basis used
// when inserting a version with more than one parent.
func (w *Weave) Mash(versions []int) ([]string, error) {
	for _, v := range versions {
		if err := w.checkVersion(v); err != nil {
			return nil, err
		}
	}
	ex, err := w.extract(w.inclusions(versions))
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(ex))
	for _, e := range ex {
		lines = append(lines, e.line)
	}
	return lines, nil
}

func setMembers(s map[int]bool) []int {
	out := make([]int, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}
