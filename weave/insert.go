package weave

import (
	"fmt"
	"sort"

	"github.com/pmezard/go-difflib/difflib"
)

// Add records a new version of the text and returns its index.
//
// name must be unique. Re-adding an existing name with identical parents
// and identical text is an idempotent no-op returning the existing
// index; with different parents or text it fails with ErrNameConflict.
// Every parent must be an existing version index.
//
// The representation edit is computed in full before anything is
// committed, so a failure leaves the weave exactly as it was: metadata
// and representation never go out of step.
func (w *Weave) Add(name string, parents []int, lines []string) (int, error) {
	sha := sumLines(lines)
	if idx, ok := w.nameMap[name]; ok {
		return w.checkRepeatedAdd(idx, parents, sha)
	}
	for _, p := range parents {
		if p < 0 || p >= len(w.parents) {
			return 0, unknownVersion(p)
		}
	}

	newVersion := len(w.parents)
	elems, err := w.splicedElements(newVersion, parents, lines, sha)
	if err != nil {
		return 0, err
	}

	w.parents = append(w.parents, append([]int(nil), parents...))
	w.sha1s = append(w.sha1s, sha)
	w.names = append(w.names, name)
	w.nameMap[name] = newVersion
	w.elems = elems
	return newVersion, nil
}

// CloneText records the text of an existing version again under a new
// name, typically with different parents.
func (w *Weave) CloneText(newName string, oldVersion int, parents []int) (int, error) {
	lines, err := w.GetLines(oldVersion)
	if err != nil {
		return 0, err
	}
	return w.Add(newName, parents, lines)
}

// checkRepeatedAdd verifies that a duplicated add matches the stored
// version and returns the old index if so.
func (w *Weave) checkRepeatedAdd(idx int, parents []int, sha string) (int, error) {
	if sha != w.sha1s[idx] || !sameParents(w.parents[idx], parents) {
		return 0, fmt.Errorf("%w: %q", ErrNameConflict, w.names[idx])
	}
	return idx, nil
}

// splicedElements computes the representation that results from adding
// the new version, without mutating the weave.
func (w *Weave) splicedElements(newVersion int, parents []int, lines []string, sha string) ([]element, error) {
	if len(parents) == 0 {
		// No parents: the whole text is one fresh insertion block at
		// the end. An empty text needs no elements at all.
		if len(lines) == 0 {
			return w.elems, nil
		}
		out := make([]element, 0, len(w.elems)+len(lines)+2)
		out = append(out, w.elems...)
		return appendInsertBlock(out, newVersion, lines), nil
	}

	if len(parents) == 1 && w.sha1s[parents[0]] == sha {
		// Physically identical to the single parent: metadata only.
		return w.elems, nil
	}

	// The diff baseline is the mashed text of the parents' closure,
	// with each basis line's absolute position in the representation.
	basis, err := w.extract(w.inclusions(parents))
	if err != nil {
		return nil, err
	}
	basisLines := make([]string, 0, len(basis))
	basisLineno := make([]int, 0, len(basis)+1)
	for _, e := range basis {
		basisLines = append(basisLines, e.line)
		basisLineno = append(basisLineno, e.lineno)
	}

	if sameLines(basisLines, lines) {
		// Already representable by existing content, for example a
		// merge whose result is exactly the auto-merged parents.
		return w.elems, nil
	}

	// Sentinel, so opcodes reaching past the last basis line map to the
	// end of the representation.
	basisLineno = append(basisLineno, len(w.elems))

	out := make([]element, len(w.elems), len(w.elems)+len(lines)+4)
	copy(out, w.elems)

	m := difflib.NewMatcher(basisLines, lines)

	// offset tracks how many elements this add has already spliced in;
	// positions from basisLineno refer to the representation as it was
	// before the add started.
	offset := 0

	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		i1 := basisLineno[op.I1]
		i2 := basisLineno[op.I2]

		// Deletion and insertion are handled separately; a replace
		// opcode produces both.
		if i1 != i2 {
			out = spliceElements(out, i1+offset, element{kind: elemDeleteOpen, version: newVersion})
			out = spliceElements(out, i2+offset+1, element{kind: elemDeleteClose, version: newVersion})
			offset += 2
		}
		if op.J1 != op.J2 {
			// Insert after any deletion region just placed around
			// [i1, i2) so the new block is not swallowed by it.
			block := make([]element, 0, op.J2-op.J1+2)
			block = appendInsertBlock(block, newVersion, lines[op.J1:op.J2])
			out = spliceElements(out, i2+offset, block...)
			offset += len(block)
		}
	}
	return out, nil
}

// appendInsertBlock appends `{ v`, the lines, `}` to dst.
func appendInsertBlock(dst []element, v int, lines []string) []element {
	dst = append(dst, element{kind: elemInsertOpen, version: v})
	for _, l := range lines {
		dst = append(dst, element{kind: elemLine, line: l})
	}
	return append(dst, element{kind: elemInsertClose})
}

// spliceElements inserts els into s at position pos.
func spliceElements(s []element, pos int, els ...element) []element {
	s = append(s, els...)
	copy(s[pos+len(els):], s[pos:])
	copy(s[pos:], els)
	return s
}

func sameParents(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]int(nil), a...)
	bs := append([]int(nil), b...)
	sort.Ints(as)
	sort.Ints(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func sameLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
