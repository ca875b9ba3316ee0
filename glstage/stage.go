package glstage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Stage is a programmable stage of the GLSL pipeline.
type Stage uint8

const (
	Vertex Stage = iota
	TessControl
	TessEval
	Geometry
	Fragment
	Compute
	numStages
)

// Stages returns all stages in pipeline order.
func Stages() []Stage {
	return []Stage{Vertex, TessControl, TessEval, Geometry, Fragment, Compute}
}

// Prefix returns the short stage name used for SHADER_STAGE and include keys, i.e: "vs".
func (s Stage) Prefix() string {
	switch s {
	case Vertex:
		return "vs"
	case TessControl:
		return "tcs"
	case TessEval:
		return "tes"
	case Geometry:
		return "gs"
	case Fragment:
		return "fs"
	case Compute:
		return "cs"
	}
	return ""
}

func (s Stage) String() string {
	switch s {
	case Vertex:
		return "vertex"
	case TessControl:
		return "tesscontrol"
	case TessEval:
		return "tesseval"
	case Geometry:
		return "geometry"
	case Fragment:
		return "fragment"
	case Compute:
		return "compute"
	}
	return "Stage(" + strconv.Itoa(int(s)) + ")"
}

// IsValid reports whether s is one of the defined stages.
func (s Stage) IsValid() bool { return s < numStages }

// ErrUnknownStage is returned when a stage name or value is not recognized.
var ErrUnknownStage = errors.New("unknown shader stage")

// ParseStage parses a stage from its name or prefix, case insensitive.
// "pixel" is accepted as an alias of the fragment stage.
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "pixel" {
		return Fragment, nil
	}
	for _, s := range Stages() {
		if name == s.String() || name == s.Prefix() {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownStage, name)
}
