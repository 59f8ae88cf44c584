package weave

import "fmt"

// Check verifies the whole history.
//
// Every version's parents must have strictly smaller indices, and every
// version's reconstructed text must hash to its stored sha1. The first
// failing version stops the check. Interior bracket structure is only
// validated as far as the extraction walk needs it.
func (w *Weave) Check() error {
	for v := range w.parents {
		for _, p := range w.parents[v] {
			if p >= v {
				return fmt.Errorf("%w: version %d lists parent %d", ErrBadParent, v, p)
			}
		}
	}

	for v := range w.parents {
		ex, err := w.extract(w.inclusions([]int{v}))
		if err != nil {
			return err
		}
		lines := make([]string, 0, len(ex))
		for _, e := range ex {
			lines = append(lines, e.line)
		}
		if got := sumLines(lines); got != w.sha1s[v] {
			return &IntegrityError{Version: v, Name: w.names[v], Want: w.sha1s[v], Got: got}
		}
	}
	return nil
}
