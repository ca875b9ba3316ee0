package glsw_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/soypat/glslpp"
	"github.com/soypat/glslpp/glsw"
)

const lightingFile = `// file comment ignored
-- vs
#include shading.common.header
void main() { gl_Position = vec4(0.0); }
-- fs
out vec4 color;
void main() { color = vec4(1.0); }
  -- fs.debug
void main() {}
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"shaders/lighting.glsl":       {Data: []byte(lightingFile)},
		"shaders/shading/common.glsl": {Data: []byte("-- header\nuniform float uTime;\n")},
		"extra/sky.glsl":              {Data: []byte("-- fs\nsky\n")},
		"extra/lighting.glsl":         {Data: []byte("-- fs\nshadowed\n")},
		"notes.txt":                   {Data: []byte("x")},
	}
}

func TestInclude(t *testing.T) {
	inc := glsw.New(testFS(), "shaders", "extra")
	tests := []struct {
		key  string
		want string
	}{
		{"lighting.vs", "#include shading.common.header\nvoid main() { gl_Position = vec4(0.0); }\n"},
		{"lighting.fs", "out vec4 color;\nvoid main() { color = vec4(1.0); }\n"},
		{"lighting.fs.debug", "void main() {}\n"},
		{"shading.common.header", "uniform float uTime;\n"},
		{"sky.fs", "sky\n"},
	}
	for _, tt := range tests {
		got, err := inc.Include(tt.key)
		if err != nil {
			t.Errorf("%s: %v", tt.key, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", tt.key, diff)
		}
	}
	if diff := cmp.Diff([]string{"vs", "fs", "fs.debug"}, inc.Sections("lighting")); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}
}

func TestIncludeErrors(t *testing.T) {
	inc := glsw.New(testFS(), "shaders")
	tests := []struct {
		key  string
		want error
	}{
		{"nodot", glsw.ErrInvalidKey},
		{"bad#key.vs", glsw.ErrInvalidKey},
		{"bad\nkey.vs", glsw.ErrInvalidKey},
		{"missing.vs", glsw.ErrNotFound},
		{"shading.missing.vs", glsw.ErrNotFound},
		{"lighting.gs", glsw.ErrNoSection},
		{"sky.fs", glsw.ErrNotFound}, // Not in include path.
	}
	for _, tt := range tests {
		_, err := inc.Include(tt.key)
		if !errors.Is(err, tt.want) {
			t.Errorf("%q: want %v, got %v", tt.key, tt.want, err)
		}
	}
}

func TestAddPath(t *testing.T) {
	inc := glsw.New(testFS(), "shaders")
	if err := inc.AddPath("nope"); err == nil {
		t.Error("expected error adding missing path")
	}
	if err := inc.AddPath("notes.txt"); err == nil {
		t.Error("expected error adding file as path")
	}
	if err := inc.AddPath("extra"); err != nil {
		t.Fatal(err)
	}
	if !inc.CanInclude("sky.fs") {
		t.Error("sky.fs should be includable after AddPath")
	}
	if inc.CanInclude("sky") {
		t.Error("key without dot must not be includable")
	}
}

func TestIncluderWithProcessor(t *testing.T) {
	inc := glsw.New(testFS(), "shaders")
	out, _, err := glslpp.ProcessString("#include lighting.vs\n", glslpp.Config{Resolver: inc})
	if err != nil {
		t.Fatal(err)
	}
	want := "uniform float uTime;\nvoid main() { gl_Position = vec4(0.0); }\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestIncludeConcurrent(t *testing.T) {
	inc := glsw.New(testFS(), "shaders")
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := inc.Include("lighting.fs")
			if err == nil && !strings.Contains(text, "color") {
				err = errors.New("unexpected section text")
			}
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestParseSections(t *testing.T) {
	got := glsw.ParseSections("preamble\n-- a\n1\n--notamarker\n-- b  \r\n2\n")
	want := []glsw.Section{{Name: "a", Body: "1\n--notamarker\n"}, {Name: "b", Body: "2\n"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
