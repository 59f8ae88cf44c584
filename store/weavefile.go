package store

import (
	"bytes"

	"github.com/burntcarrot/weave/weave"
)

// Suffix is appended to a weave's name to form its store key.
const Suffix = ".weave"

// WeaveFile is a weave bound to an entry in a store. Every mutating
// operation writes the weave back, so the store always holds the latest
// state.
type WeaveFile struct {
	*weave.Weave
	store Store
}

// OpenWeaveFile loads the weave called name from s.
func OpenWeaveFile(s Store, name string) (*WeaveFile, error) {
	b, err := s.GetBytes(name + Suffix)
	if err != nil {
		return nil, err
	}
	w, err := weave.Read(name, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return &WeaveFile{Weave: w, store: s}, nil
}

// CreateWeaveFile writes an empty weave called name into s and returns it.
func CreateWeaveFile(s Store, name string) (*WeaveFile, error) {
	wf := &WeaveFile{Weave: weave.New(name), store: s}
	if err := wf.Save(); err != nil {
		return nil, err
	}
	return wf, nil
}

// Save writes the current state back to the store.
func (wf *WeaveFile) Save() error {
	b, err := wf.Bytes()
	if err != nil {
		return err
	}
	return wf.store.PutBytes(wf.Name()+Suffix, b)
}

// Add records a new version and saves the weave.
func (wf *WeaveFile) Add(name string, parents []int, lines []string) (int, error) {
	v, err := wf.Weave.Add(name, parents, lines)
	if err != nil {
		return 0, err
	}
	return v, wf.Save()
}

// CloneText records a new version with the same text as an existing one
// and saves the weave.
func (wf *WeaveFile) CloneText(newName string, oldVersion int, parents []int) (int, error) {
	v, err := wf.Weave.CloneText(newName, oldVersion, parents)
	if err != nil {
		return 0, err
	}
	return v, wf.Save()
}

// Join pulls missing versions from other and saves the weave.
func (wf *WeaveFile) Join(other *weave.Weave) error {
	if err := wf.Weave.Join(other); err != nil {
		return err
	}
	return wf.Save()
}
