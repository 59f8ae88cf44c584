package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/burntcarrot/weave/lock"
	"github.com/burntcarrot/weave/store"
	"github.com/burntcarrot/weave/weave"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "weave",
		Short:         "inspect and edit weave files",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newInitCmd(),
		newAddCmd(),
		newCatCmd(),
		newAnnotateCmd(),
		newTocCmd(),
		newCheckCmd(),
		newDiffCmd(),
		newPlanMergeCmd(),
		newMergeCmd(),
		newJoinCmd(),
	)
	return root
}

// openWeave loads the weave stored at path.
func openWeave(path string) (*store.WeaveFile, error) {
	s, name, err := storeFor(path)
	if err != nil {
		return nil, err
	}
	return store.OpenWeaveFile(s, name)
}

// storeFor maps a file path to a file store rooted in its directory and
// the weave's name inside that store.
func storeFor(path string) (store.Store, string, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, store.Suffix)
	if name == "" || name == base {
		return nil, "", fmt.Errorf("weave file must end in %q: %s", store.Suffix, path)
	}
	s, err := store.NewFileStore(dir)
	if err != nil {
		return nil, "", err
	}
	return s, name, nil
}

// resolveVersion accepts either a numeric version index or a version name.
func resolveVersion(w *store.WeaveFile, arg string) (int, error) {
	if v, err := strconv.Atoi(arg); err == nil {
		if v < 0 || v >= w.NumVersions() {
			return 0, fmt.Errorf("version %d out of range (weave has %d versions)", v, w.NumVersions())
		}
		return v, nil
	}
	return w.Lookup(arg)
}

// readLines splits r into lines, each keeping its newline. A final line
// without a newline is kept as is.
func readLines(r io.Reader) ([]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	lines := strings.SplitAfter(string(b), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// withLock runs fn while holding the advisory lock next to the weave file.
func withLock(path string, fn func() error) error {
	l, err := lock.Acquire(path + ".lock")
	if err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init FILE",
		Short: "create an empty weave file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, name, err := storeFor(args[0])
			if err != nil {
				return err
			}
			if ok, err := s.Exists(name + store.Suffix); err != nil {
				return err
			} else if ok {
				return fmt.Errorf("weave file already exists: %s", args[0])
			}
			_, err = store.CreateWeaveFile(s, name)
			return err
		},
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add FILE NAME [PARENT...]",
		Short: "add a version read from stdin",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLock(args[0], func() error {
				w, err := openWeave(args[0])
				if err != nil {
					return err
				}
				parents := make([]int, 0, len(args)-2)
				for _, arg := range args[2:] {
					p, err := resolveVersion(w, arg)
					if err != nil {
						return err
					}
					parents = append(parents, p)
				}
				lines, err := readLines(cmd.InOrStdin())
				if err != nil {
					return err
				}
				v, err := w.Add(args[1], parents, lines)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added version %q %d\n", args[1], v)
				return nil
			})
		},
	}
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat FILE VERSION",
		Short: "print the text of one version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWeave(args[0])
			if err != nil {
				return err
			}
			v, err := resolveVersion(w, args[1])
			if err != nil {
				return err
			}
			text, err := w.GetText(v)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func newAnnotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "annotate FILE VERSION",
		Short: "print each line with the version that introduced it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWeave(args[0])
			if err != nil {
				return err
			}
			v, err := resolveVersion(w, args[1])
			if err != nil {
				return err
			}
			annotated, err := w.Annotate(v)
			if err != nil {
				return err
			}
			origin := color.New(color.FgCyan)
			lastOrigin := -1
			for _, a := range annotated {
				text := strings.TrimRight(a.Line, "\r\n")
				if a.Origin == lastOrigin {
					fmt.Fprintf(cmd.OutOrStdout(), "      | %s\n", text)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s | %s\n", origin.Sprintf("%5d", a.Origin), text)
					lastOrigin = a.Origin
				}
			}
			return nil
		},
	}
}

func newTocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toc FILE",
		Short: "list the versions in a weave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWeave(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			bold := color.New(color.Bold)
			fmt.Fprintln(out, bold.Sprintf("%6s %-30s %10s %s", "ver", "name", "sha1", "parents"))
			for v := 0; v < w.NumVersions(); v++ {
				name, _ := w.NameOf(v)
				sha, _ := w.SHA1(v)
				parents, _ := w.ParentsOf(v)
				pstr := make([]string, 0, len(parents))
				for _, p := range parents {
					pstr = append(pstr, strconv.Itoa(p))
				}
				fmt.Fprintf(out, "%6d %-30.30s %10.10s %s\n", v, name, sha, strings.Join(pstr, " "))
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "verify every stored text against its recorded hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWeave(args[0])
			if err != nil {
				return err
			}
			if err := w.Check(); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%d versions ok\n", w.NumVersions())
			return nil
		},
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff FILE VERSION1 VERSION2",
		Short: "show a unified diff between two versions",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWeave(args[0])
			if err != nil {
				return err
			}
			v1, err := resolveVersion(w, args[1])
			if err != nil {
				return err
			}
			v2, err := resolveVersion(w, args[2])
			if err != nil {
				return err
			}
			lines1, err := w.GetLines(v1)
			if err != nil {
				return err
			}
			lines2, err := w.GetLines(v2)
			if err != nil {
				return err
			}
			diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        lines1,
				B:        lines2,
				FromFile: fmt.Sprintf("%s version %d", w.Name(), v1),
				ToFile:   fmt.Sprintf("%s version %d", w.Name(), v2),
				Context:  3,
			})
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), diff)
			return err
		},
	}
}

func newPlanMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan-merge FILE VERSION1 VERSION2",
		Short: "show how each woven line would fold into a merge",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWeave(args[0])
			if err != nil {
				return err
			}
			plan, err := planFor(w, args[1], args[2])
			if err != nil {
				return err
			}
			for _, pl := range plan {
				if pl.Line == "" {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%14s | %s", pl.State, withNewline(pl.Line))
			}
			return nil
		},
	}
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge FILE VERSION1 VERSION2",
		Short: "merge two versions, marking conflicts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWeave(args[0])
			if err != nil {
				return err
			}
			plan, err := planFor(w, args[1], args[2])
			if err != nil {
				return err
			}
			marker := color.New(color.FgRed)
			for _, line := range weave.Merge(plan) {
				switch line {
				case weave.MarkerA, weave.MarkerMid, weave.MarkerB:
					marker.Fprint(cmd.OutOrStdout(), line)
				default:
					io.WriteString(cmd.OutOrStdout(), line)
				}
			}
			return nil
		},
	}
}

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join FILE OTHER",
		Short: "pull every version of OTHER into FILE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLock(args[0], func() error {
				w, err := openWeave(args[0])
				if err != nil {
					return err
				}
				other, err := openWeave(args[1])
				if err != nil {
					return err
				}
				return w.Join(other.Weave)
			})
		},
	}
}

func planFor(w *store.WeaveFile, arg1, arg2 string) ([]weave.PlanLine, error) {
	v1, err := resolveVersion(w, arg1)
	if err != nil {
		return nil, err
	}
	v2, err := resolveVersion(w, arg2)
	if err != nil {
		return nil, err
	}
	return w.PlanMerge(v1, v2)
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
