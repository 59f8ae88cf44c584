package weave

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// doMerge builds a weave with a base and two diverged children, merges
// the children, and compares the rendered result. All inputs are given
// without newlines for readability.
func doMerge(t *testing.T, base, a, b, want []string) {
	t.Helper()

	w := New("test")
	if _, err := w.Add("text0", nil, addNewlines(base)); err != nil {
		t.Fatalf("Add(text0): %v", err)
	}
	if _, err := w.Add("text1", []int{0}, addNewlines(a)); err != nil {
		t.Fatalf("Add(text1): %v", err)
	}
	if _, err := w.Add("text2", []int{0}, addNewlines(b)); err != nil {
		t.Fatalf("Add(text2): %v", err)
	}

	plan, err := w.PlanMerge(1, 2)
	if err != nil {
		t.Fatalf("PlanMerge: %v", err)
	}
	got := Merge(plan)
	if diff := cmp.Diff(addNewlines(want), got); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
}

func addNewlines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l+"\n")
	}
	return out
}

func TestMergeOneInsert(t *testing.T) {
	doMerge(t,
		nil,
		[]string{"aa"},
		nil,
		[]string{"aa"})
}

func TestMergeSeparateInserts(t *testing.T) {
	doMerge(t,
		[]string{"aaa", "bbb", "ccc"},
		[]string{"aaa", "xxx", "bbb", "ccc"},
		[]string{"aaa", "bbb", "yyy", "ccc"},
		[]string{"aaa", "xxx", "bbb", "yyy", "ccc"})
}

func TestMergeSameInsert(t *testing.T) {
	doMerge(t,
		[]string{"aaa", "bbb", "ccc"},
		[]string{"aaa", "xxx", "bbb", "ccc"},
		[]string{"aaa", "xxx", "bbb", "yyy", "ccc"},
		[]string{"aaa", "xxx", "bbb", "yyy", "ccc"})
}

// TestMergeOverlappedInsert: both sides insert at the same point; that
// is a conflict even when one side's text is a prefix of the other's.
func TestMergeOverlappedInsert(t *testing.T) {
	doMerge(t,
		[]string{"aaa", "bbb"},
		[]string{"aaa", "xxx", "yyy", "bbb"},
		[]string{"aaa", "xxx", "bbb"},
		[]string{"aaa", "<<<<", "xxx", "yyy", "====", "xxx", ">>>>", "bbb"})
}

func TestMergeClashReplace(t *testing.T) {
	doMerge(t,
		[]string{"aaa"},
		[]string{"xxx"},
		[]string{"yyy", "zzz"},
		[]string{"<<<<", "xxx", "====", "yyy", "zzz", ">>>>"})
}

func TestMergeNonClashInsert(t *testing.T) {
	doMerge(t,
		[]string{"aaa"},
		[]string{"xxx", "aaa"},
		[]string{"yyy", "zzz"},
		[]string{"<<<<", "xxx", "aaa", "====", "yyy", "zzz", ">>>>"})

	doMerge(t,
		[]string{"aaa"},
		[]string{"aaa"},
		[]string{"yyy", "zzz"},
		[]string{"yyy", "zzz"})
}

// TestMergeDisjoint: insertions at different places merge cleanly with
// no conflict markers.
func TestMergeDisjoint(t *testing.T) {
	doMerge(t,
		[]string{"header", "aaa", "bbb"},
		[]string{"header", "aaa", "line from 1", "bbb"},
		[]string{"header", "aaa", "bbb", "line from 2"},
		[]string{"header", "aaa", "line from 1", "bbb", "line from 2"})
}

// TestMergeAgreedDeletion: both sides deleting the same lines is not a
// conflict.
func TestMergeAgreedDeletion(t *testing.T) {
	doMerge(t,
		[]string{"start context", "base line 1", "base line 2", "end context"},
		[]string{"start context", "base line 1", "end context"},
		[]string{"start context", "base line 1", "end context"},
		[]string{"start context", "base line 1", "end context"})
}

// TestMergeOneSidedDeletion: a deletion on one side with no competing
// change applies cleanly.
func TestMergeOneSidedDeletion(t *testing.T) {
	doMerge(t,
		[]string{"line 1", "line 2", "line 3"},
		[]string{"line 1", "line 2"},
		[]string{"line 1", "line 2", "line 3"},
		[]string{"line 1", "line 2"})
}

// TestMergePlanWithoutSentinel verifies that a plan ending in a change
// still flushes its final hunk.
func TestMergePlanWithoutSentinel(t *testing.T) {
	got := Merge([]PlanLine{{State: NewA, Line: "hello\n"}})
	want := []string{"hello\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanMergeStates(t *testing.T) {
	w := New("test")
	w.Add("text0", nil, []string{"aaa\n"})
	w.Add("text1", []int{0}, []string{"xxx\n"})
	w.Add("text2", []int{0}, []string{"yyy\n", "zzz\n"})

	plan, err := w.PlanMerge(1, 2)
	if err != nil {
		t.Fatalf("PlanMerge: %v", err)
	}
	want := []PlanLine{
		{State: KilledBoth, Line: "aaa\n"},
		{State: NewA, Line: "xxx\n"},
		{State: NewB, Line: "yyy\n"},
		{State: NewB, Line: "zzz\n"},
		{State: Unchanged},
	}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanMergeUnknownVersion(t *testing.T) {
	w := New("test")
	w.Add("text0", nil, []string{"aaa\n"})

	if _, err := w.PlanMerge(0, 9); err == nil {
		t.Errorf("PlanMerge(0, 9) succeeded, want error")
	}
}

// TestTrivialMergeAnnotation: a child extending its parent by one line
// keeps the parent's attribution for the shared line.
func TestTrivialMergeAnnotation(t *testing.T) {
	w := New("test")
	w.Add("base", nil, []string{"one\n"})
	w.Add("child", []int{0}, []string{"one\n", "two\n"})

	got, err := w.GetLines(1)
	if err != nil {
		t.Fatalf("GetLines: %v", err)
	}
	if diff := cmp.Diff([]string{"one\n", "two\n"}, got); diff != "" {
		t.Errorf("GetLines mismatch (-want +got):\n%s", diff)
	}

	ann, err := w.Annotate(1)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	want := []AnnotatedLine{
		{Origin: 0, Line: "one\n"},
		{Origin: 1, Line: "two\n"},
	}
	if diff := cmp.Diff(want, ann); diff != "" {
		t.Errorf("Annotate mismatch (-want +got):\n%s", diff)
	}
}
