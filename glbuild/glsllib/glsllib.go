// Package glsllib is a library of GLSL utility functions for math, color
// and depth calculations. Each function is a section of an embedded glsw
// shader file and is included with "#include glsllib.<section>", i.e.
//
//	#include glsllib.color.srgbToLinear
package glsllib

import (
	"embed"
	"fmt"
	"io/fs"
	"maps"

	"github.com/soypat/glslpp/glbuild"
	"github.com/soypat/glslpp/glsw"
)

// FileKey is the include key prefix of all library functions.
const FileKey = "glsllib"

//go:embed glsllib.glsl
var libFS embed.FS

var (
	functions map[string]string
	library   []glbuild.ShaderFunction
)

func init() {
	src, err := libFS.ReadFile(FileKey + glsw.FileExt)
	if err != nil {
		panic(err)
	}
	functions = make(map[string]string)
	for _, s := range glsw.ParseSections(string(src)) {
		sf, err := glbuild.MakeShaderFunction([]byte(s.Body))
		if err != nil {
			panic(fmt.Sprintf("glsllib section %s: %s", s.Name, err))
		}
		functions[FileKey+"."+s.Name] = s.Body
		library = append(library, sf)
	}
}

// FS returns a file system holding the library file at its root, suitable
// as an include path of a [glsw.Includer].
func FS() fs.FS { return libFS }

// Functions returns the library as an inline function table keyed by include
// key, suitable for glslpp.Config.Functions. The returned map is a copy.
func Functions() map[string]string {
	return maps.Clone(functions)
}

// ShaderFunctions returns every library function in file order.
func ShaderFunctions() []glbuild.ShaderFunction {
	return append([]glbuild.ShaderFunction(nil), library...)
}
