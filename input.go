package glslpp

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// lineSource is one entry of the input stack. Sources pushed by the
// Processor itself (includes, unrolled loops) are owned and closed when popped;
// the caller's source is borrowed.
type lineSource struct {
	r      *bufio.Reader
	closer io.Closer
	owned  bool
	// depth counts the include sources enclosing this one.
	depth int
	name  string
}

// readLine returns the next line without its line terminator.
// A final line with no terminating newline is still returned.
func (ls *lineSource) readLine() (string, error) {
	line, err := ls.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func (ls *lineSource) close() error {
	if !ls.owned || ls.closer == nil {
		return nil
	}
	return ls.closer.Close()
}

// inputStack always reads from the most recently pushed source.
type inputStack struct {
	sources []*lineSource
}

func (is *inputStack) empty() bool { return len(is.sources) == 0 }

func (is *inputStack) top() *lineSource {
	return is.sources[len(is.sources)-1]
}

func (is *inputStack) pushBorrowed(r io.Reader, name string) {
	is.sources = append(is.sources, &lineSource{r: bufio.NewReader(r), name: name})
}

// pushOwned pushes r as an owned source, closing it on pop if it is an io.Closer.
func (is *inputStack) pushOwned(r io.Reader, name string, depth int) {
	ls := &lineSource{r: bufio.NewReader(r), owned: true, name: name, depth: depth}
	if c, ok := r.(io.Closer); ok {
		ls.closer = c
	}
	is.sources = append(is.sources, ls)
}

func (is *inputStack) pushText(text, name string, depth int) {
	is.pushOwned(strings.NewReader(text), name, depth)
}

func (is *inputStack) pop() error {
	ls := is.top()
	is.sources[len(is.sources)-1] = nil
	is.sources = is.sources[:len(is.sources)-1]
	return ls.close()
}

// closeAll pops every source, closing owned ones.
func (is *inputStack) closeAll() error {
	var errs []error
	for !is.empty() {
		if err := is.pop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// forFrame captures the raw body of a #for NAME to BOUND block.
type forFrame struct {
	variable string
	bound    string
	body     strings.Builder
}

// forStack holds open #for frames, innermost last.
type forStack struct {
	frames []*forFrame
}

func (fs *forStack) empty() bool { return len(fs.frames) == 0 }

func (fs *forStack) push(variable, bound string) {
	fs.frames = append(fs.frames, &forFrame{variable: variable, bound: bound})
}

func (fs *forStack) top() *forFrame { return fs.frames[len(fs.frames)-1] }

func (fs *forStack) pop() *forFrame {
	f := fs.top()
	fs.frames = fs.frames[:len(fs.frames)-1]
	return f
}

func (fs *forStack) capture(line string) {
	b := &fs.top().body
	b.WriteString(line)
	b.WriteByte('\n')
}
