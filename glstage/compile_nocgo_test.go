//go:build tinygo || !cgo

package glstage_test

import (
	"errors"
	"testing"

	"github.com/soypat/glslpp/glstage"
)

func TestCompileNoCGO(t *testing.T) {
	if _, err := glstage.InitHeadless(); !errors.Is(err, glstage.ErrNoCGO) {
		t.Errorf("want ErrNoCGO, got %v", err)
	}
	if _, err := glstage.Compile(nil); !errors.Is(err, glstage.ErrNoCGO) {
		t.Errorf("want ErrNoCGO, got %v", err)
	}
}
