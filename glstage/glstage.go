// Package glstage preprocesses the stages of a GLSL program.
//
// Every stage is run through its own [glslpp.Processor] over a shared
// configuration header, so symbols defined in one stage never leak into
// another. Each processed stage starts with a single #version line.
package glstage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/soypat/glslpp"
	"github.com/soypat/glslpp/glbuild"
	"github.com/soypat/glslpp/glsw"
)

// StageSymbol is defined to the stage prefix at the top of every stage.
const StageSymbol = "SHADER_STAGE"

var (
	// ErrNoStages is returned by [Process] when no stage defines a main function.
	ErrNoStages = errors.New("no shader stage defines main")
	// ErrNoCGO is returned by GPU operations in builds without CGo.
	ErrNoCGO = errors.New("shader compilation requires CGo and is not supported on TinyGo")
)

// Config configures shader stage preprocessing.
type Config struct {
	// Version is the minimum GLSL version of the output. Zero selects glbuild.DefaultVersion.
	Version int
	// Defines configure the shader. A value of "TRUE" defines the name
	// without value and "FALSE" leaves it undefined.
	Defines map[string]string
	// Functions and Resolver resolve includes, see glslpp.Config.
	Functions map[string]string
	Resolver  glslpp.Resolver
	// StripComments removes // and /* */ comments from the output.
	StripComments bool

	MaxSubstitutionPasses int
	MaxIncludeDepth       int
	Logger                *slog.Logger
}

func (cfg *Config) version() int {
	if cfg.Version <= 0 {
		return glbuild.DefaultVersion
	}
	return cfg.Version
}

func (cfg *Config) logger() *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return glslpp.Logger()
}

// Header returns the configuration header prepended to every stage: a
// #version line followed by the defines in name order.
func (cfg *Config) Header() string {
	return string(cfg.AppendHeader(nil))
}

// AppendHeader appends the configuration header to b. See [Config.Header].
func (cfg *Config) AppendHeader(b []byte) []byte {
	b = glbuild.AppendVersionDecl(b, cfg.version())
	for _, name := range slices.Sorted(maps.Keys(cfg.Defines)) {
		switch value := cfg.Defines[name]; value {
		case "TRUE":
			b = glbuild.AppendDefineDecl(b, name, "")
		case "FALSE":
			b = glbuild.AppendCommentLine(b, "#undef "+name)
		default:
			b = glbuild.AppendDefineDecl(b, name, value)
		}
	}
	return b
}

// Process preprocesses the given stages and returns the stages that define
// a main function. Stage code that is a single include key is included.
// When no vertex stage is given, the vertex section "<effect>.vs" of the first
// effect named by an include key stage is used if it resolves.
func Process(src map[Stage]string, cfg Config) (map[Stage]string, error) {
	log := cfg.logger()
	var errs []error
	var effects []string
	for stage, code := range src {
		if !stage.IsValid() {
			errs = append(errs, fmt.Errorf("%w: %d", ErrUnknownStage, stage))
			continue
		}
		if isIncludeKey(code) {
			effect, _, _ := strings.Cut(code, ".")
			effects = append(effects, effect)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	slices.Sort(effects)
	effects = slices.Compact(effects)

	header := cfg.AppendHeader(nil)
	processed := make(map[Stage]string)
	stages := Stages()
	// Reverse pipeline order.
	for i := len(stages) - 1; i >= 0; i-- {
		stage := stages[i]
		code := src[stage]
		if code == "" && stage == Vertex {
			code = defaultVertex(effects, &cfg)
		}
		if code == "" {
			continue
		}
		out, err := processStage(stage, code, header, &cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s stage: %w", stage, err))
			continue
		}
		if !mainRegex.MatchString(out) {
			log.Debug("dropping stage without main", "stage", stage.String())
			continue
		}
		processed[stage] = out
	}
	if len(errs) > 0 {
		return processed, errors.Join(errs...)
	} else if len(processed) == 0 {
		return processed, ErrNoStages
	}
	return processed, nil
}

func processStage(stage Stage, code string, header []byte, cfg *Config) (string, error) {
	b := glbuild.AppendDefineDecl(nil, StageSymbol, stage.Prefix())
	b = append(b, header...)
	if isIncludeKey(code) {
		b = glbuild.AppendIncludeDecl(b, code)
	} else {
		b = append(b, code...)
		b = append(b, '\n')
	}
	body, version, err := glslpp.ProcessString(string(b), glslpp.Config{
		Functions:             cfg.Functions,
		Resolver:              cfg.Resolver,
		MaxSubstitutionPasses: cfg.MaxSubstitutionPasses,
		MaxIncludeDepth:       cfg.MaxIncludeDepth,
		Logger:                cfg.Logger,
	})
	if err != nil {
		return "", err
	}
	if cfg.StripComments {
		body = StripComments(body)
	}
	out := glbuild.AppendVersionDecl(nil, max(version, cfg.version()))
	out = appendNonBlankLines(out, body)
	cfg.logger().Debug("processed stage", "stage", stage.String(), "version", max(version, cfg.version()))
	return string(out), nil
}

// defaultVertex resolves "<effect>.vs" for the given effects and returns the first found.
func defaultVertex(effects []string, cfg *Config) string {
	for _, effect := range effects {
		key := effect + "." + Vertex.Prefix()
		if text := cfg.Functions[key]; text != "" {
			return text
		}
		if cfg.Resolver == nil {
			continue
		}
		text, err := cfg.Resolver.Include(key)
		if err == nil && text != "" {
			return text
		}
	}
	return ""
}

// isIncludeKey reports whether stage code consists of a single include key.
func isIncludeKey(code string) bool {
	return glsw.IsKeyValid(code) && !strings.ContainsAny(code, " \t\r{};(")
}

var mainRegex = regexp.MustCompile(`\bvoid[ \t\n]+main[ \t\n]*\([ \t\n]*(void)?[ \t\n]*\)[ \t\n]*\{`)

func appendNonBlankLines(b []byte, text string) []byte {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b = append(b, line...)
		b = append(b, '\n')
	}
	return b
}

// StripComments removes // line comments and /* */ block comments from GLSL
// source. Newlines inside block comments are kept so line structure survives.
func StripComments(src string) string {
	var sb strings.Builder
	sb.Grow(len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '/' || i+1 == len(src) {
			sb.WriteByte(c)
			continue
		}
		switch src[i+1] {
		case '/':
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				return sb.String()
			}
			i += end - 1
		case '*':
			end := strings.Index(src[i+2:], "*/")
			comment := src[i:]
			if end >= 0 {
				comment = src[i : i+2+end+2]
			}
			sb.WriteString(strings.Repeat("\n", strings.Count(comment, "\n")))
			i += len(comment) - 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// PreviewConfig configures [Preview]. Zero values select an 800x600 window.
type PreviewConfig struct {
	Width, Height int
	Title         string
	// Context stops the preview when done. May be nil.
	Context context.Context
}
