//go:build !tinygo && cgo

package glstage

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/glslpp"
)

// Program is a compiled and linked GPU program.
type Program struct {
	glgl.Program
}

// InitHeadless creates an invisible 1x1 window with a current OpenGL 4.6 core
// context so that programs can be compiled. It must be called from the main
// thread. The returned function terminates the context.
func InitHeadless() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:        "glslpp",
		Version:      [2]int{4, 6},
		Width:        1,
		Height:       1,
		NotResizable: true,
		HideWindow:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing OpenGL context: %w", err)
	}
	glslpp.Logger().Debug("OpenGL context ready", "version", gl.GoStr(gl.GetString(gl.VERSION)))
	return terminate, nil
}

// Compile compiles and links processed stages. Only vertex, fragment and
// compute stages are supported. A context must be current, see [InitHeadless].
func Compile(stages map[Stage]string) (*Program, error) {
	var src glgl.ShaderSource
	for stage, code := range stages {
		switch stage {
		case Vertex:
			src.Vertex = nullTerminated(code)
		case Fragment:
			src.Fragment = nullTerminated(code)
		case Compute:
			src.Compute = nullTerminated(code)
		default:
			return nil, fmt.Errorf("%s stage not supported by compiler", stage)
		}
	}
	prog, err := glgl.CompileProgram(src)
	if err != nil {
		return nil, fmt.Errorf("compiling program: %w", err)
	}
	return &Program{Program: prog}, nil
}

func nullTerminated(code string) string {
	if strings.HasSuffix(code, "\x00") {
		return code
	}
	return code + "\x00"
}
