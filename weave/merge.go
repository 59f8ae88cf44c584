package weave

// MergeState classifies one weave line relative to the two sides of a
// merge and their common ancestry.
type MergeState uint8

const (
	// Unchanged: present in the common ancestry and killed by neither side.
	Unchanged MergeState = iota
	// KilledBase: removed within the common ancestry; relevant to neither side.
	KilledBase
	// KilledBoth: present in the common ancestry, removed by both sides.
	KilledBoth
	// KilledA, KilledB: present in the common ancestry, removed by one side.
	KilledA
	KilledB
	// NewA, NewB: introduced by one side only.
	NewA
	NewB
	// GhostA, GhostB: introduced and then removed within one side.
	GhostA
	GhostB
	// Irrelevant: belongs to neither side's ancestry.
	Irrelevant
)

func (s MergeState) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case KilledBase:
		return "killed-base"
	case KilledBoth:
		return "killed-both"
	case KilledA:
		return "killed-a"
	case KilledB:
		return "killed-b"
	case NewA:
		return "new-a"
	case NewB:
		return "new-b"
	case GhostA:
		return "ghost-a"
	case GhostB:
		return "ghost-b"
	case Irrelevant:
		return "irrelevant"
	}
	return "unknown"
}

// PlanLine is one entry of a merge plan: a line of the raw weave tagged
// with its merge classification.
type PlanLine struct {
	State MergeState
	Line  string
}

// Merge conflict markers.
const (
	MarkerA   = "<<<<\n"
	MarkerMid = "====\n"
	MarkerB   = ">>>>\n"
)

// PlanMerge computes the per-line plan for merging versions a and b
// against their implicit common ancestry.
//
// The plan walks the raw representation: every line is classified by
// whether its governing insertion and its open deletions fall in a's
// closure, b's closure, or their intersection. A trailing empty
// Unchanged entry marks the end of the plan so that Merge always
// flushes its final hunk.
func (w *Weave) PlanMerge(a, b int) ([]PlanLine, error) {
	if err := w.checkVersion(a); err != nil {
		return nil, err
	}
	if err := w.checkVersion(b); err != nil {
		return nil, err
	}

	incA := w.inclusions([]int{a})
	incB := w.inclusions([]int{b})
	incC := make(map[int]bool)
	for v := range incA {
		if incB[v] {
			incC[v] = true
		}
	}

	var plan []PlanLine
	err := w.walk(func(lineno, insert int, deletes map[int]bool, line string) {
		var inDelA, inDelB, inDelC bool
		for d := range deletes {
			inDelA = inDelA || incA[d]
			inDelB = inDelB || incB[d]
			inDelC = inDelC || incC[d]
		}

		var state MergeState
		switch {
		case inDelC:
			// Killed in the common ancestry; cannot be in either side.
			state = KilledBase
		case incC[insert]:
			switch {
			case inDelA && inDelB:
				state = KilledBoth
			case inDelA:
				state = KilledA
			case inDelB:
				state = KilledB
			default:
				state = Unchanged
			}
		case incA[insert]:
			if inDelA {
				state = GhostA
			} else {
				state = NewA
			}
		case incB[insert]:
			if inDelB {
				state = GhostB
			} else {
				state = NewB
			}
		default:
			state = Irrelevant
		}
		plan = append(plan, PlanLine{State: state, Line: line})
	})
	if err != nil {
		return nil, err
	}
	return append(plan, PlanLine{State: Unchanged}), nil
}

// Merge renders a merge plan into text, emitting conflict blocks where
// the two sides made different overlapping changes.
//
// It is a stateful fold over the plan: one-sided changes accumulate in
// per-side buffers that are flushed at each resynchronization point
// (an Unchanged or KilledBoth line). A flush emits nothing for empty
// buffers, the changed side's buffer for a one-sided change, either
// buffer when both sides produced the same text, and a conflict block
// otherwise.
func Merge(plan []PlanLine) []string {
	var out, linesA, linesB []string
	var chA, chB bool

	flush := func() {
		switch {
		case len(linesA) == 0 && len(linesB) == 0:
		case chA && !chB:
			out = append(out, linesA...)
		case chB && !chA:
			out = append(out, linesB...)
		case sameLines(linesA, linesB):
			out = append(out, linesA...)
		default:
			out = append(out, MarkerA)
			out = append(out, linesA...)
			out = append(out, MarkerMid)
			out = append(out, linesB...)
			out = append(out, MarkerB)
		}
		linesA, linesB = nil, nil
		chA, chB = false, false
	}

	for _, pl := range plan {
		switch pl.State {
		case Unchanged:
			flush()
			if pl.Line != "" {
				out = append(out, pl.Line)
			}
		case KilledBoth:
			flush()
		case KilledA:
			// Removed by a: still wanted on b's side of a conflict.
			chA = true
			linesB = append(linesB, pl.Line)
		case KilledB:
			chB = true
			linesA = append(linesA, pl.Line)
		case NewA:
			chA = true
			linesA = append(linesA, pl.Line)
		case NewB:
			chB = true
			linesB = append(linesB, pl.Line)
		}
		// KilledBase, GhostA, GhostB and Irrelevant lines are noise
		// from outside the merge and are dropped.
	}
	flush()
	return out
}
