package weave

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
)

// FormatHeader identifies the serialized weave format. The format is
// byte-stable: serializing a weave always produces exactly one byte
// sequence, and reading it back yields an equal weave.
const FormatHeader = "# bzr weave file v5\n"

// Serialized stream layout:
//
//	header line
//	per version: "i <parents>" (bare "i" if none), "1 <sha1>",
//	             "n <name>", blank line
//	"w", one line per element, "W"
//
// Elements: "{ v" opens an insertion, "}" closes the innermost one,
// "[ v" and "] v" open and close a deletion. A newline-terminated text
// line is stored verbatim behind ". "; a line without a final newline is
// stored behind ", " with a newline appended on disk.

// Write serializes the weave.
func (w *Weave) Write(out io.Writer) error {
	bw := bufio.NewWriter(out)
	bw.WriteString(FormatHeader)

	for v := range w.parents {
		bw.WriteByte('i')
		for _, p := range w.parents[v] {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(p))
		}
		bw.WriteByte('\n')
		bw.WriteString("1 ")
		bw.WriteString(w.sha1s[v])
		bw.WriteByte('\n')
		bw.WriteString("n ")
		bw.WriteString(w.names[v])
		bw.WriteByte('\n')
		bw.WriteByte('\n')
	}

	bw.WriteString("w\n")
	for _, el := range w.elems {
		switch el.kind {
		case elemInsertOpen:
			bw.WriteString("{ ")
			bw.WriteString(strconv.Itoa(el.version))
			bw.WriteByte('\n')
		case elemInsertClose:
			bw.WriteString("}\n")
		case elemDeleteOpen:
			bw.WriteString("[ ")
			bw.WriteString(strconv.Itoa(el.version))
			bw.WriteByte('\n')
		case elemDeleteClose:
			bw.WriteString("] ")
			bw.WriteString(strconv.Itoa(el.version))
			bw.WriteByte('\n')
		case elemLine:
			if strings.HasSuffix(el.line, "\n") {
				bw.WriteString(". ")
				bw.WriteString(el.line)
			} else {
				bw.WriteString(", ")
				bw.WriteString(el.line)
				bw.WriteByte('\n')
			}
		}
	}
	bw.WriteString("W\n")
	return bw.Flush()
}

// Bytes serializes the weave to a byte slice.
func (w *Weave) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read deserializes a weave. The given name becomes the weave's
// descriptive name; it is not part of the stream.
func Read(name string, in io.Reader) (*Weave, error) {
	r := &lineReader{r: bufio.NewReader(in)}
	w := New(name)

	line, err := r.next()
	if err != nil {
		return nil, &FormatError{Line: r.lineno, Msg: "missing header"}
	}
	if line != FormatHeader {
		return nil, &FormatError{Line: r.lineno, Msg: "unexpected header: " + strconv.Quote(line)}
	}

	// Version records until the body marker.
	for {
		line, err = r.next()
		if err != nil {
			return nil, &FormatError{Line: r.lineno, Msg: "truncated: no weave body"}
		}
		if line == "w\n" {
			break
		}
		if err := readVersionRecord(w, r, line); err != nil {
			return nil, err
		}
	}

	// Body elements until the end marker.
	var istack int
	dset := make(map[int]bool)
	for {
		line, err = r.next()
		if err != nil {
			return nil, &FormatError{Line: r.lineno, Msg: "truncated weave body"}
		}
		if line == "W\n" {
			break
		}
		el, err := parseElement(w, r.lineno, line)
		if err != nil {
			return nil, err
		}
		switch el.kind {
		case elemInsertOpen:
			istack++
		case elemInsertClose:
			if istack == 0 {
				return nil, &FormatError{Line: r.lineno, Msg: "insertion close with no open block"}
			}
			istack--
		case elemDeleteOpen:
			dset[el.version] = true
		case elemDeleteClose:
			if !dset[el.version] {
				return nil, &FormatError{Line: r.lineno, Msg: "deletion close with no open region"}
			}
			delete(dset, el.version)
		}
		w.elems = append(w.elems, el)
	}
	if istack > 0 {
		return nil, &FormatError{Line: r.lineno, Msg: "unterminated insertion block at end of body"}
	}
	if len(dset) > 0 {
		return nil, &FormatError{Line: r.lineno, Msg: "unterminated deletion region at end of body"}
	}
	return w, nil
}

// readVersionRecord parses one four-line version record, whose first
// line has already been read.
func readVersionRecord(w *Weave, r *lineReader, iline string) error {
	if iline != "i\n" && !strings.HasPrefix(iline, "i ") {
		return &FormatError{Line: r.lineno, Msg: "expected version record, got " + strconv.Quote(iline)}
	}
	v := len(w.parents)

	var parents []int
	if strings.HasPrefix(iline, "i ") {
		for _, field := range strings.Fields(strings.TrimSuffix(iline[2:], "\n")) {
			p, err := strconv.Atoi(field)
			if err != nil {
				return &FormatError{Line: r.lineno, Msg: "bad parent index " + strconv.Quote(field)}
			}
			if p < 0 || p >= v {
				return &FormatError{Line: r.lineno, Msg: "parent " + field + " out of range for version " + strconv.Itoa(v)}
			}
			parents = append(parents, p)
		}
	}

	line, err := r.next()
	if err != nil || !strings.HasPrefix(line, "1 ") {
		return &FormatError{Line: r.lineno, Msg: "expected sha1 record"}
	}
	sha := strings.TrimSuffix(line[2:], "\n")

	line, err = r.next()
	if err != nil || !strings.HasPrefix(line, "n ") {
		return &FormatError{Line: r.lineno, Msg: "expected name record"}
	}
	name := strings.TrimSuffix(line[2:], "\n")
	if _, ok := w.nameMap[name]; ok {
		return &FormatError{Line: r.lineno, Msg: "duplicate version name " + strconv.Quote(name)}
	}

	line, err = r.next()
	if err != nil || line != "\n" {
		return &FormatError{Line: r.lineno, Msg: "expected blank line after version record"}
	}

	w.parents = append(w.parents, parents)
	w.sha1s = append(w.sha1s, sha)
	w.names = append(w.names, name)
	w.nameMap[name] = v
	return nil
}

func parseElement(w *Weave, lineno int, line string) (element, error) {
	switch {
	case line == "}\n":
		return element{kind: elemInsertClose}, nil
	case strings.HasPrefix(line, "{ "):
		v, err := parseMarkerVersion(w, line)
		if err != nil {
			return element{}, &FormatError{Line: lineno, Msg: err.Error()}
		}
		return element{kind: elemInsertOpen, version: v}, nil
	case strings.HasPrefix(line, "[ "):
		v, err := parseMarkerVersion(w, line)
		if err != nil {
			return element{}, &FormatError{Line: lineno, Msg: err.Error()}
		}
		return element{kind: elemDeleteOpen, version: v}, nil
	case strings.HasPrefix(line, "] "):
		v, err := parseMarkerVersion(w, line)
		if err != nil {
			return element{}, &FormatError{Line: lineno, Msg: err.Error()}
		}
		return element{kind: elemDeleteClose, version: v}, nil
	case strings.HasPrefix(line, ". "):
		// Newline-terminated line, stored verbatim.
		return element{kind: elemLine, line: line[2:]}, nil
	case strings.HasPrefix(line, ", "):
		// Line without a final newline; one was appended on disk.
		return element{kind: elemLine, line: strings.TrimSuffix(line[2:], "\n")}, nil
	}
	return element{}, &FormatError{Line: lineno, Msg: "unexpected body line " + strconv.Quote(line)}
}

func parseMarkerVersion(w *Weave, line string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSuffix(line[2:], "\n"))
	if err != nil {
		return 0, err
	}
	if v < 0 || v >= len(w.parents) {
		return 0, formatErrf("marker references unknown version %d", v)
	}
	return v, nil
}

// lineReader reads newline-terminated lines, counting them for error
// reporting. The final line of a stream may lack its newline.
type lineReader struct {
	r      *bufio.Reader
	lineno int
}

func (lr *lineReader) next() (string, error) {
	line, err := lr.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	lr.lineno++
	return line, nil
}
