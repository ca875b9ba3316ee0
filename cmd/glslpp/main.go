// Command glslpp preprocesses GLSL shader files.
//
//	glslpp [flags] file
//
// The file is read from stdin when file is "-". Without -stage, a file with
// "#shader <stage>" marker lines is processed as a combined multi-stage file,
// otherwise it is processed as a single shader and the result is prefixed with
// a #version line.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/soypat/glslpp"
	"github.com/soypat/glslpp/glbuild"
	"github.com/soypat/glslpp/glbuild/glsllib"
	"github.com/soypat/glslpp/glstage"
	"github.com/soypat/glslpp/glsw"
)

type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	includeDirs     listFlag
	defines         listFlag
	flagStage       = ""
	flagOutput      = ""
	flagCompile     = false
	flagPreview     = false
	flagVerbose     = false
	flagStrip       = false
	flagNoLib       = false
	flagHeader      = true
	flagVersion     = 0
	maxIncludeDepth = 0
	maxPasses       = 0
)

func init() {
	flag.Var(&includeDirs, "I", "Add include directory. May be repeated.")
	flag.Var(&defines, "D", "Define `NAME[=VALUE]` before processing. May be repeated.")
	flag.StringVar(&flagStage, "stage", flagStage, "Process file as a single `stage` (vs, fs, cs, ...) of a program.")
	flag.StringVar(&flagOutput, "o", flagOutput, "Output `file`. Defaults to stdout.")
	flag.BoolVar(&flagCompile, "compile", flagCompile, "Compile the processed stages on the GPU. Requires CGo.")
	flag.BoolVar(&flagPreview, "preview", flagPreview, "Render the processed fragment stage in a window. Requires CGo.")
	flag.BoolVar(&flagVerbose, "v", flagVerbose, "Enable debug logging.")
	flag.BoolVar(&flagStrip, "strip", flagStrip, "Strip comments from processed stages.")
	flag.BoolVar(&flagNoLib, "nolib", flagNoLib, "Disable the built-in glsllib function library.")
	flag.BoolVar(&flagHeader, "header", flagHeader, "Prefix single shader output with a #version line.")
	flag.IntVar(&flagVersion, "version", flagVersion, "Minimum GLSL version of the output.")
	flag.IntVar(&maxIncludeDepth, "max-include-depth", maxIncludeDepth, "Maximum include nesting. 0 uses the default, negative disables the limit.")
	flag.IntVar(&maxPasses, "max-passes", maxPasses, "Maximum ${} substitution passes per line. 0 uses the default, negative disables the limit.")
}

func main() {
	flag.Parse()
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	glslpp.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: glslpp [flags] file")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if flagCompile || flagPreview {
		// OpenGL calls must be made from the main thread.
		runtime.LockOSThread()
	}
	err := run(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "glslpp:", err)
		os.Exit(1)
	}
}

func run(filename string) error {
	src, err := readInput(filename)
	if err != nil {
		return err
	}
	resolver, err := newResolver(includeDirs)
	if err != nil {
		return err
	}
	var functions map[string]string
	if !flagNoLib {
		functions = glsllib.Functions()
	}
	var out []byte
	var stages map[glstage.Stage]string
	switch {
	case flagStage != "":
		stage, err := glstage.ParseStage(flagStage)
		if err != nil {
			return err
		}
		stages, err = processStages(map[glstage.Stage]string{stage: src}, functions, resolver)
		if err != nil {
			return err
		}
		out = []byte(stages[stage])
	case glstage.IsCombined(src):
		parsed, err := glstage.ParseCombined(strings.NewReader(src))
		if err != nil {
			return err
		}
		stages, err = processStages(parsed, functions, resolver)
		if err != nil {
			return err
		}
		var sb strings.Builder
		glstage.WriteCombined(&sb, stages)
		out = []byte(sb.String())
	default:
		out, err = processSingle(src, functions, resolver)
		if err != nil {
			return err
		}
	}
	if (flagCompile || flagPreview) && stages == nil {
		return errors.New("-compile and -preview require -stage or a combined shader file")
	}
	if flagCompile {
		if err := compile(stages); err != nil {
			return err
		}
	}
	if err := writeOutput(flagOutput, out); err != nil {
		return err
	}
	if flagPreview {
		return glstage.Preview(stages, glstage.PreviewConfig{Title: filename})
	}
	return nil
}

func processStages(src map[glstage.Stage]string, functions map[string]string, resolver glslpp.Resolver) (map[glstage.Stage]string, error) {
	return glstage.Process(src, glstage.Config{
		Version:               flagVersion,
		Defines:               parseDefines(defines),
		Functions:             functions,
		Resolver:              resolver,
		StripComments:         flagStrip,
		MaxSubstitutionPasses: maxPasses,
		MaxIncludeDepth:       maxIncludeDepth,
	})
}

func processSingle(src string, functions map[string]string, resolver glslpp.Resolver) ([]byte, error) {
	p := glslpp.New(strings.NewReader(src), glslpp.Config{
		Functions:             functions,
		Resolver:              resolver,
		MaxSubstitutionPasses: maxPasses,
		MaxIncludeDepth:       maxIncludeDepth,
	})
	for _, d := range defines {
		name, value, _ := strings.Cut(d, "=")
		if value == "" {
			p.Symbols().Define(name)
		} else {
			p.Symbols().Define(name + " " + value)
		}
	}
	var body strings.Builder
	if err := p.PreProcess(&body); err != nil {
		return nil, err
	}
	var out []byte
	if flagHeader {
		out = glbuild.AppendVersionDecl(out, max(p.Version(), flagVersion, glbuild.DefaultVersion))
	}
	if flagStrip {
		return append(out, glstage.StripComments(body.String())...), nil
	}
	return append(out, body.String()...), nil
}

func compile(stages map[glstage.Stage]string) error {
	terminate, err := glstage.InitHeadless()
	if err != nil {
		return err
	}
	defer terminate()
	prog, err := glstage.Compile(stages)
	if err != nil {
		return err
	}
	prog.Delete()
	glslpp.Logger().Info("program compiled", "stages", len(stages))
	return nil
}

// parseDefines converts NAME[=VALUE] flags to stage defines. A define
// without value is defined as "TRUE".
func parseDefines(flags []string) map[string]string {
	defs := make(map[string]string, len(flags))
	for _, d := range flags {
		name, value, ok := strings.Cut(d, "=")
		if !ok || value == "" {
			value = "TRUE"
		}
		defs[name] = value
	}
	return defs
}

// resolverChain tries each resolver in order until one returns text.
type resolverChain []glslpp.Resolver

func (rc resolverChain) Include(key string) (string, error) {
	var errs []error
	for _, r := range rc {
		text, err := r.Include(key)
		if err == nil && text != "" {
			return text, nil
		} else if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("include %q: not found", key)
	}
	return "", errors.Join(errs...)
}

func newResolver(dirs []string) (glslpp.Resolver, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	var chain resolverChain
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("include directory: %w", err)
		} else if !info.IsDir() {
			return nil, fmt.Errorf("include directory %q is not a directory", dir)
		}
		chain = append(chain, glsw.New(os.DirFS(dir)))
	}
	return chain, nil
}

func readInput(filename string) (string, error) {
	if filename == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(filename)
	return string(b), err
}

func writeOutput(filename string, out []byte) error {
	if filename == "" {
		_, err := os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(filename, out, 0o644)
}
