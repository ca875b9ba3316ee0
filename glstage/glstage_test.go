package glstage_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/soypat/glslpp/glstage"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		name string
		want glstage.Stage
	}{
		{"vertex", glstage.Vertex},
		{"VS", glstage.Vertex},
		{" fragment ", glstage.Fragment},
		{"tcs", glstage.TessControl},
		{"tesseval", glstage.TessEval},
		{"gs", glstage.Geometry},
		{"Compute", glstage.Compute},
	}
	for _, tt := range tests {
		got, err := glstage.ParseStage(tt.name)
		if err != nil {
			t.Errorf("%q: %v", tt.name, err)
		} else if got != tt.want {
			t.Errorf("%q: want %s, got %s", tt.name, tt.want, got)
		}
	}
	if got, err := glstage.ParseStage("pixel"); err != nil || got != glstage.Fragment {
		t.Errorf("pixel: want fragment, got %s, %v", got, err)
	}
	if _, err := glstage.ParseStage("hull"); !errors.Is(err, glstage.ErrUnknownStage) {
		t.Errorf("want ErrUnknownStage, got %v", err)
	}
}

func TestHeader(t *testing.T) {
	cfg := glstage.Config{
		Version: 330,
		Defines: map[string]string{"B": "TRUE", "A": "2", "C": "FALSE"},
	}
	want := "#version 330\n#define A 2\n#define B\n// #undef C\n"
	if diff := cmp.Diff(want, cfg.Header()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	var zero glstage.Config
	if got := zero.Header(); got != "#version 150\n" {
		t.Errorf("zero config header: %q", got)
	}
}

func TestProcess(t *testing.T) {
	src := map[glstage.Stage]string{
		glstage.Vertex: "void main() {\n\tgl_Position = vec4(0.0);\n}",
		glstage.Fragment: `out vec4 color;

#ifdef USE_RED
void main() { color = vec4(1.0, 0.0, 0.0, 1.0); }
#else
void main() { color = vec4(1.0); }
#endif`,
		glstage.Geometry: "// nothing here",
	}
	got, err := glstage.Process(src, glstage.Config{Defines: map[string]string{"USE_RED": "TRUE"}})
	if err != nil {
		t.Fatal(err)
	}
	want := map[glstage.Stage]string{
		glstage.Vertex:   "#version 150\n#define SHADER_STAGE vs\n#define USE_RED\nvoid main() {\n\tgl_Position = vec4(0.0);\n}\n",
		glstage.Fragment: "#version 150\n#define SHADER_STAGE fs\n#define USE_RED\nout vec4 color;\nvoid main() { color = vec4(1.0, 0.0, 0.0, 1.0); }\n",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessIncludeKeys(t *testing.T) {
	cfg := glstage.Config{
		Functions: map[string]string{
			"fx.fs": "out vec4 c;\nvoid main() { c = vec4(1.0); }\n",
			"fx.vs": "void main() {}\n",
		},
	}
	got, err := glstage.Process(map[glstage.Stage]string{glstage.Fragment: "fx.fs"}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := map[glstage.Stage]string{
		glstage.Vertex:   "#version 150\n#define SHADER_STAGE vs\nvoid main() {}\n",
		glstage.Fragment: "#version 150\n#define SHADER_STAGE fs\nout vec4 c;\nvoid main() { c = vec4(1.0); }\n",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessStageIsolation(t *testing.T) {
	const shared = "#if SHADER_STAGE == fs\nvoid main() {}\n#endif"
	src := map[glstage.Stage]string{
		glstage.Fragment: "#define2 ONLY_FS 1\n" + shared,
		glstage.Vertex:   "#ifdef ONLY_FS\n#error leaked\n#endif\n" + shared,
	}
	got, err := glstage.Process(src, glstage.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got[glstage.Vertex]; ok {
		t.Errorf("vertex stage without main must be dropped:\n%s", got[glstage.Vertex])
	}
	want := "#version 150\n#define SHADER_STAGE fs\nvoid main() {}\n"
	if diff := cmp.Diff(want, got[glstage.Fragment]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessVersion(t *testing.T) {
	src := map[glstage.Stage]string{glstage.Compute: "#version 430\nvoid main() {}"}
	got, err := glstage.Process(src, glstage.Config{Version: 330})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got[glstage.Compute], "#version 430\n") {
		t.Errorf("want largest version first:\n%s", got[glstage.Compute])
	}
	if strings.Count(got[glstage.Compute], "#version") != 1 {
		t.Errorf("want single version line:\n%s", got[glstage.Compute])
	}
}

func TestProcessStripComments(t *testing.T) {
	src := map[glstage.Stage]string{
		glstage.Fragment: "/* block\ncomment */\nvoid main() { // entry\n}",
	}
	cfg := glstage.Config{StripComments: true, Defines: map[string]string{"OFF": "FALSE"}}
	got, err := glstage.Process(src, cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := "#version 150\n#define SHADER_STAGE fs\nvoid main() { \n}\n"
	if diff := cmp.Diff(want, got[glstage.Fragment]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessErrors(t *testing.T) {
	_, err := glstage.Process(map[glstage.Stage]string{glstage.Fragment: "float f;"}, glstage.Config{})
	if !errors.Is(err, glstage.ErrNoStages) {
		t.Errorf("want ErrNoStages, got %v", err)
	}
	_, err = glstage.Process(map[glstage.Stage]string{glstage.Stage(42): "void main() {}"}, glstage.Config{})
	if !errors.Is(err, glstage.ErrUnknownStage) {
		t.Errorf("want ErrUnknownStage, got %v", err)
	}
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{"a // x\n/* b\nc */d\ne/f", "a \n\nd\ne/f"},
		{"x = 1; // trailing", "x = 1; "},
		{"/* unterminated\nblock", "\n"},
		{"a/", "a/"},
	}
	for _, tt := range tests {
		if got := glstage.StripComments(tt.src); got != tt.want {
			t.Errorf("StripComments(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}
