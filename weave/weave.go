// Package weave implements versioned storage of line-based texts.
//
// A Weave keeps every recorded version of one logical text in a single
// interleaved, append-only structure, together with the originating
// version of each line. Versions are identified by a dense 0-based index
// assigned in insertion order, and optionally by a unique symbolic name.
//
// The representation mixes literal lines with bracketing markers. An
// insertion block `{ v ... }` holds lines introduced by version v; a
// deletion region `[ v ... ] v` marks lines logically removed by v.
// Insertion blocks nest; deletion regions may overlap each other and may
// span insertion-block boundaries. A version's text is exactly the lines
// whose governing insertion is an ancestor-or-self of it and which no
// open ancestor-or-self deletion covers.
//
// Nothing is ever removed from the structure. Adding a version only
// splices in new marker pairs and new lines and appends new metadata, so
// every previously recorded version remains reconstructible.
package weave

// elemKind discriminates the element union.
type elemKind uint8

const (
	elemLine elemKind = iota
	elemInsertOpen
	elemInsertClose
	elemDeleteOpen
	elemDeleteClose
)

// element is one entry of the interleaved representation: either a
// literal line, or a bracketing marker carrying a version index.
// elemInsertClose carries no version; it always closes the innermost
// open insertion.
type element struct {
	kind    elemKind
	version int
	line    string
}

// Weave is the in-memory engine. The zero value is not usable; call New.
//
// A Weave is not safe for concurrent mutation. Callers that share one
// across goroutines, or persist it from several processes, must provide
// their own exclusion (see the lock package).
type Weave struct {
	// name is a descriptive label, typically the file name. It is not
	// serialized and does not participate in equality.
	name string

	elems []element

	// Per-version metadata, parallel slices indexed by version.
	parents [][]int
	sha1s   []string
	names   []string

	// nameMap inverts names. Bijective for the names present.
	nameMap map[string]int
}

// New returns an empty weave with the given descriptive name.
func New(name string) *Weave {
	return &Weave{
		name:    name,
		nameMap: make(map[string]int),
	}
}

// Name returns the weave's descriptive name.
func (w *Weave) Name() string {
	return w.name
}

// NumVersions returns how many versions are stored.
func (w *Weave) NumVersions() int {
	return len(w.parents)
}

// HasVersion reports whether a version with the given name is present.
func (w *Weave) HasVersion(name string) bool {
	_, ok := w.nameMap[name]
	return ok
}

// Lookup converts a symbolic version name to its index.
func (w *Weave) Lookup(name string) (int, error) {
	v, ok := w.nameMap[name]
	if !ok {
		return 0, unknownName(name)
	}
	return v, nil
}

// NameOf returns the symbolic name of the given version.
func (w *Weave) NameOf(v int) (string, error) {
	if err := w.checkVersion(v); err != nil {
		return "", err
	}
	return w.names[v], nil
}

// ParentsOf returns the direct parent indices of the given version.
// The returned slice is a copy.
func (w *Weave) ParentsOf(v int) ([]int, error) {
	if err := w.checkVersion(v); err != nil {
		return nil, err
	}
	return append([]int(nil), w.parents[v]...), nil
}

// SHA1 returns the stored content hash of the given version.
func (w *Weave) SHA1(v int) (string, error) {
	if err := w.checkVersion(v); err != nil {
		return "", err
	}
	return w.sha1s[v], nil
}

// Names returns all version names in index order.
func (w *Weave) Names() []string {
	return append([]string(nil), w.names...)
}

// Copy returns a deep copy that can be mutated without affecting w.
func (w *Weave) Copy() *Weave {
	other := New(w.name)
	other.elems = append([]element(nil), w.elems...)
	other.parents = make([][]int, len(w.parents))
	for i, p := range w.parents {
		other.parents[i] = append([]int(nil), p...)
	}
	other.sha1s = append([]string(nil), w.sha1s...)
	other.names = append([]string(nil), w.names...)
	for name, v := range w.nameMap {
		other.nameMap[name] = v
	}
	return other
}

// Equal reports whether two weaves hold the same history: same parents,
// same representation, same hashes. Descriptive names are ignored.
func (w *Weave) Equal(other *Weave) bool {
	if len(w.parents) != len(other.parents) || len(w.elems) != len(other.elems) {
		return false
	}
	for i := range w.parents {
		if w.sha1s[i] != other.sha1s[i] || w.names[i] != other.names[i] {
			return false
		}
		if len(w.parents[i]) != len(other.parents[i]) {
			return false
		}
		for j := range w.parents[i] {
			if w.parents[i][j] != other.parents[i][j] {
				return false
			}
		}
	}
	for i := range w.elems {
		if w.elems[i] != other.elems[i] {
			return false
		}
	}
	return true
}

// adopt replaces w's content with other's, keeping w's descriptive name.
func (w *Weave) adopt(other *Weave) {
	w.elems = other.elems
	w.parents = other.parents
	w.sha1s = other.sha1s
	w.names = other.names
	w.nameMap = other.nameMap
}

func (w *Weave) checkVersion(v int) error {
	if v < 0 || v >= len(w.parents) {
		return unknownVersion(v)
	}
	return nil
}
