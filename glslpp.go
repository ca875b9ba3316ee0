// Package glslpp implements a line oriented GLSL directive preprocessor.
//
// The supported directives are #version, #define, #define2, #undef, #ifdef,
// #ifndef, #if, #elif, #else, #endif, #include, #for NAME to BOUND, #endfor and
// #line. ${NAME} interpolates symbol values and a trailing backslash continues
// a line.
//
// Control directives are resolved and removed from the output. Active #define
// and #undef lines are passed through so the GLSL compiler sees them too.
// #define2 defines a symbol for the preprocessor only. #version lines are
// removed; the largest version seen is available from [Processor.Version] and
// the caller is expected to prefix the output with a single version header.
//
// Failures such as a missing include or a malformed #for never abort
// processing: an inline diagnostic line is written in their place.
package glslpp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/soypat/glslpp/glbuild"
)

const (
	DefaultMaxSubstitutionPasses = 64
	DefaultMaxIncludeDepth       = 32
)

// Resolver resolves #include keys to GLSL source text.
// An empty result or a non-nil error means the key could not be included.
// Implementations must not depend on processor state.
type Resolver interface {
	Include(key string) (string, error)
}

// ResolverFunc adapts a function to the [Resolver] interface.
type ResolverFunc func(key string) (string, error)

func (f ResolverFunc) Include(key string) (string, error) { return f(key) }

// Config configures a [Processor]. The zero value is a valid configuration
// with no include support.
type Config struct {
	// Functions maps include keys to inline function bodies. It is consulted
	// before Resolver.
	Functions map[string]string
	// Resolver resolves #include keys not found in Functions.
	Resolver Resolver
	// MaxSubstitutionPasses bounds the ${NAME} interpolation passes done on a
	// single line. Zero selects DefaultMaxSubstitutionPasses, negative disables the bound.
	MaxSubstitutionPasses int
	// MaxIncludeDepth bounds nesting of included sources. Zero selects
	// DefaultMaxIncludeDepth, negative disables the bound.
	MaxIncludeDepth int
	// Logger overrides the package logger set with [SetLogger].
	Logger *slog.Logger
}

// Processor preprocesses a single GLSL source. It is not safe for concurrent use.
type Processor struct {
	cfg      Config
	log      *slog.Logger
	symbols  SymbolTable
	branches *BranchTree
	loops    forStack
	inputs   inputStack
	// continued buffers lines ending in a backslash.
	continued strings.Builder
	wasEmpty  bool
	version   int
	// depth is the include depth of the source the current line was read from.
	depth   int
	err     error
	scratch []byte
}

// New returns a Processor reading from src. src is never closed by the Processor.
func New(src io.Reader, cfg Config) *Processor {
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	p := &Processor{
		cfg:      cfg,
		log:      log,
		branches: NewBranchTree(),
		wasEmpty: true,
	}
	p.inputs.pushBorrowed(src, "input")
	return p
}

// ProcessString preprocesses src and returns the output text and the largest #version seen.
func ProcessString(src string, cfg Config) (out string, version int, err error) {
	var sb strings.Builder
	p := New(strings.NewReader(src), cfg)
	err = p.PreProcess(&sb)
	return sb.String(), p.Version(), err
}

// Version returns the largest version number of all #version directives seen
// so far, or 0 if none was seen.
func (p *Processor) Version() int { return p.version }

// Symbols returns the processor's symbol table. Symbols may be defined
// before processing starts to configure the shader.
func (p *Processor) Symbols() *SymbolTable { return &p.symbols }

// Err returns the first error encountered reading or closing input sources.
func (p *Processor) Err() error { return p.err }

// Close closes all pending owned input sources.
func (p *Processor) Close() error {
	return p.inputs.closeAll()
}

// PreProcess writes every output line to w, each terminated by a newline.
func (p *Processor) PreProcess(w io.Writer) error {
	for {
		line, ok := p.GetLine()
		if !ok {
			break
		}
		p.scratch = append(p.scratch[:0], line...)
		p.scratch = append(p.scratch, '\n')
		if _, err := w.Write(p.scratch); err != nil {
			return errors.Join(err, p.Close())
		}
	}
	return p.err
}

// GetLine returns the next output line. ok is false once all input is exhausted.
func (p *Processor) GetLine() (line string, ok bool) {
	for {
		line, ok = p.readPhysical()
		switch {
		case !ok && p.continued.Len() == 0:
			return "", false
		case !ok:
			// Input ended on a continued line.
			line = strings.TrimSuffix(p.continued.String(), "\n")
			p.continued.Reset()
		case strings.HasSuffix(line, `\`):
			p.continued.WriteString(line)
			p.continued.WriteByte('\n')
			continue
		case p.continued.Len() > 0:
			line = p.continued.String() + line
			p.continued.Reset()
		}
		if out, emit := p.processLine(line); emit {
			return out, true
		}
	}
}

// readPhysical reads the next raw line from the top of the input stack,
// popping exhausted sources.
func (p *Processor) readPhysical() (string, bool) {
	for !p.inputs.empty() {
		src := p.inputs.top()
		line, err := src.readLine()
		if err == nil {
			p.depth = src.depth
			return line, true
		}
		if !errors.Is(err, io.EOF) {
			p.setErr(fmt.Errorf("reading %s: %w", src.name, err))
		}
		p.setErr(p.inputs.pop())
	}
	return "", false
}

func (p *Processor) setErr(err error) {
	if p.err == nil && err != nil {
		p.err = err
	}
}

// processLine applies interpolation, blank collapsing and directive dispatch
// to a logical line and reports whether it is emitted.
func (p *Processor) processLine(line string) (string, bool) {
	if p.branches.Active() && p.loops.empty() {
		var ok bool
		line, ok = p.interpolate(line)
		if !ok {
			return line, true
		}
	}
	statement := strings.TrimSpace(line)
	isEmpty := statement == ""
	if isEmpty && p.wasEmpty {
		return "", false
	}
	p.wasEmpty = isEmpty
	if !strings.HasPrefix(statement, "#") {
		if p.loops.empty() && p.branches.Active() {
			return line, true
		} else if !p.loops.empty() {
			p.loops.capture(line)
		}
		return "", false
	}
	p.log.Debug("directive", "line", statement, "active", p.branches.Active())

	if strings.HasPrefix(statement, "#line ") {
		// Line numbers are meaningless after includes and unrolling.
		return "", false
	} else if arg, ok := cutDirective(statement, "#version "); ok {
		// Profile suffixes such as "core" are not tracked.
		number, _, _ := strings.Cut(arg, " ")
		v, err := strconv.Atoi(number)
		if err != nil {
			p.log.Warn("bad #version directive", "line", statement)
		}
		p.version = max(p.version, v)
		return "", false
	} else if arg, ok := cutDirective(statement, "#for "); ok {
		variable, bound, ok := parseFor(arg)
		if !ok {
			p.log.Warn("malformed #for directive", "line", statement)
			return p.diagnostic(glbuild.AppendWarningDecl, "Invalid Syntax: '"+statement+"'. Example: '#for INDEX to 9'."), true
		}
		p.loops.push(variable, bound)
		return "", false
	} else if strings.HasPrefix(statement, "#endfor") {
		if p.loops.empty() {
			p.log.Warn("#endfor without #for")
			return p.diagnostic(glbuild.AppendWarningDecl, "Closing #endfor without opening #for."), true
		}
		p.unroll(p.loops.pop())
		return "", false
	} else if !p.loops.empty() {
		p.loops.capture(line)
		return "", false
	} else if arg, ok := cutDirective(statement, "#include "); ok {
		return p.include(arg)
	} else if arg, ok := cutDirective(statement, "#define2 "); ok {
		if p.branches.Active() {
			p.symbols.Define(arg)
		}
		return "", false
	} else if arg, ok := cutDirective(statement, "#define "); ok {
		if !p.branches.Active() {
			return "", false
		}
		p.symbols.Define(arg)
		return line, true
	} else if arg, ok := cutDirective(statement, "#undef "); ok {
		// Undefining is not gated by the branch, only the output is.
		p.symbols.Undefine(arg)
		return line, p.branches.Active()
	} else if arg, ok := cutDirective(statement, "#ifdef "); ok {
		p.branches.Open(p.evaluate(arg))
		return "", false
	} else if arg, ok := cutDirective(statement, "#ifndef "); ok {
		p.branches.Open(!p.evaluate(arg))
		return "", false
	} else if arg, ok := cutDirective(statement, "#if "); ok {
		p.branches.Open(p.evaluate(arg))
		return "", false
	} else if arg, ok := cutDirective(statement, "#elif "); ok {
		p.branches.Extend(p.evaluate(arg))
		return "", false
	} else if strings.HasPrefix(statement, "#else") {
		p.branches.Extend(true)
		return "", false
	} else if strings.HasPrefix(statement, "#endif") {
		p.branches.Close()
		return "", false
	}
	return line, p.branches.Active()
}

// cutDirective returns the trimmed argument of statement if it starts with prefix.
func cutDirective(statement, prefix string) (string, bool) {
	arg, ok := strings.CutPrefix(statement, prefix)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(arg), true
}

// parseFor parses "NAME to BOUND". The split happens at the last " to ".
func parseFor(arg string) (variable, bound string, ok bool) {
	idx := strings.LastIndex(arg, " to ")
	if idx < 0 {
		return "", "", false
	}
	variable = strings.TrimSpace(arg[:idx])
	bound = strings.TrimSpace(arg[idx+len(" to "):])
	if variable == "" || bound == "" {
		return "", "", false
	}
	return variable, bound, true
}

// unroll pushes count copies of the loop body, each preceded by a
// #define2 of the loop variable.
func (p *Processor) unroll(frame *forFrame) {
	b := p.scratch[:0]
	count, err := strconv.Atoi(p.symbols.Resolve(frame.bound))
	if err != nil {
		p.log.Warn("#for bound is not a number", "variable", frame.variable, "bound", frame.bound)
		b = glbuild.AppendErrorDecl(b, frame.bound+" is not a number")
	} else {
		body := frame.body.String()
		for i := 0; i < count; i++ {
			b = glbuild.AppendDefine2IntDecl(b, frame.variable, i)
			b = append(b, body...)
		}
	}
	p.scratch = b
	if len(b) > 0 {
		p.inputs.pushText(string(b), "#for "+frame.variable, p.depth)
	}
}

func (p *Processor) include(key string) (string, bool) {
	if !p.branches.Active() {
		return "", false
	}
	text, found := p.cfg.Functions[key]
	var err error
	if !found && p.cfg.Resolver != nil {
		text, err = p.cfg.Resolver.Include(key)
	}
	if text == "" || err != nil {
		if err == nil {
			err = errors.New("no include source")
		}
		p.log.Warn("failed to include", "key", key, "err", err)
		return p.diagnostic(glbuild.AppendCommentLine, "Failed to include "+key+"."), true
	}
	depth := p.depth + 1
	if limit := limitOrDefault(p.cfg.MaxIncludeDepth, DefaultMaxIncludeDepth); limit >= 0 && depth > limit {
		p.log.Warn("include depth exceeded", "key", key, "depth", depth)
		return p.diagnostic(glbuild.AppendErrorDecl, "include depth "+strconv.Itoa(limit)+" exceeded at "+key), true
	}
	p.inputs.pushText(text, key, depth)
	return "", false
}

var variableRegex = regexp.MustCompile(`\$\{[ ]*([^ \}\{]+)[ ]*\}`)

// interpolate replaces ${NAME} with the value of every defined NAME until
// a pass makes no replacement. ok is false if the pass limit was reached, in
// which case the returned line is an #error diagnostic.
func (p *Processor) interpolate(line string) (_ string, ok bool) {
	limit := limitOrDefault(p.cfg.MaxSubstitutionPasses, DefaultMaxSubstitutionPasses)
	var names []string
	for pass := 0; ; pass++ {
		matches := variableRegex.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			return line, true
		}
		names = names[:0]
		for _, m := range matches {
			names = append(names, m[1])
		}
		slices.Sort(names)
		names = slices.Compact(names)
		replaced := false
		for _, name := range names {
			if !p.symbols.IsDefined(name) {
				continue
			}
			placeholder := "${" + name + "}"
			if strings.Contains(line, placeholder) {
				line = strings.ReplaceAll(line, placeholder, p.symbols.Resolve(name))
				replaced = true
			}
		}
		if !replaced {
			return line, true
		}
		if pass == 0 {
			p.log.Debug("interpolated", "line", line)
		}
		// Only passes that replaced something count towards the limit.
		if limit >= 0 && pass+1 >= limit && p.hasDefinedVariable(line) {
			p.log.Warn("${} substitution did not terminate", "line", line, "passes", limit)
			return p.diagnostic(glbuild.AppendErrorDecl, "${} substitution did not terminate after "+strconv.Itoa(limit)+" passes"), false
		}
	}
}

// hasDefinedVariable reports whether line still holds a ${NAME} with NAME defined.
func (p *Processor) hasDefinedVariable(line string) bool {
	for _, m := range variableRegex.FindAllStringSubmatch(line, -1) {
		if p.symbols.IsDefined(m[1]) && strings.Contains(line, "${"+m[1]+"}") {
			return true
		}
	}
	return false
}

// evaluate evaluates a condition against the processor's symbols, logging
// malformed expressions to the processor's logger.
func (p *Processor) evaluate(expr string) bool {
	v, err := evaluate(expr, &p.symbols)
	if err != nil {
		p.log.Debug("malformed condition", "expr", expr, "err", err)
		return false
	}
	return v
}

// diagnostic returns a single diagnostic line built with appendFn.
func (p *Processor) diagnostic(appendFn func([]byte, string) []byte, msg string) string {
	p.scratch = appendFn(p.scratch[:0], msg)
	return strings.TrimSuffix(string(p.scratch), "\n")
}

func limitOrDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
