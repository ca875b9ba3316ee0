//go:build !tinygo && cgo

package glstage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

const previewVertex = `in vec2 aPos;
out vec2 vTexCoord;
void main() {
	vTexCoord = aPos * 0.5 + 0.5;
	gl_Position = vec4(aPos, 0.0, 1.0);
}
`

// Preview opens a window and renders the processed fragment stage over a
// full screen quad until the window is closed or cfg.Context is done.
// A vertex stage is generated when stages has none; it passes vec2 vTexCoord
// in [0,1] to the fragment stage. The optional uniforms float uTime and
// vec2 uResolution are set every frame. Must be called from the main thread.
func Preview(stages map[Stage]string, cfg PreviewConfig) error {
	fragment, ok := stages[Fragment]
	if !ok {
		return errors.New("preview requires a fragment stage")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 800, 600
	}
	if cfg.Title == "" {
		cfg.Title = "glslpp preview"
	}
	window, term, err := startPreviewWindow(cfg)
	if err != nil {
		return err
	}
	defer term()
	vertex, ok := stages[Vertex]
	if !ok {
		vertex = versionLine(fragment) + previewVertex
	}
	prog, err := Compile(map[Stage]string{Vertex: vertex, Fragment: fragment})
	if err != nil {
		return err
	}
	defer prog.Delete()
	prog.Bind()

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	vertices := []float32{
		-1.0, -1.0,
		1.0, -1.0,
		-1.0, 1.0,
		-1.0, 1.0,
		1.0, -1.0,
		1.0, 1.0,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		return fmt.Errorf("vertex stage must declare aPos: %w", err)
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))
	// Missing uniforms get location -1 which GL ignores.
	timeUniform, err := prog.UniformLocation("uTime\x00")
	if err != nil {
		timeUniform = -1
	}
	resUniform, err := prog.UniformLocation("uResolution\x00")
	if err != nil {
		resUniform = -1
	}

	start := time.Now()
	for !window.ShouldClose() {
		if cfg.Context != nil {
			select {
			case <-cfg.Context.Done():
				return cfg.Context.Err()
			default:
			}
		}
		width, height := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(0.0, 0.0, 0.0, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		prog.Bind()
		gl.Uniform1f(timeUniform, float32(time.Since(start).Seconds()))
		gl.Uniform2f(resUniform, float32(width), float32(height))
		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		window.SwapBuffers()
		time.Sleep(time.Second / 60)
		glfw.PollEvents()
	}
	return nil
}

func startPreviewWindow(cfg PreviewConfig) (window *glgl.Window, term func(), err error) {
	window, term, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   cfg.Title,
		Version: [2]int{4, 6},
		Width:   cfg.Width,
		Height:  cfg.Height,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing OpenGL window: %w", err)
	}
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})
	return window, term, nil
}

// versionLine returns the leading #version line of src including its newline.
func versionLine(src string) string {
	first, _, _ := strings.Cut(src, "\n")
	if strings.HasPrefix(first, "#version ") {
		return first + "\n"
	}
	return ""
}
