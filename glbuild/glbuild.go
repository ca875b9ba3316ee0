// Package glbuild appends GLSL preprocessor directive lines and parses GLSL
// function definitions. Every directive the glslpp packages synthesize is
// built here so the textual forms live in one place.
package glbuild

import (
	"bytes"
	"errors"
	"strconv"
)

// DefaultVersion is the GLSL version assumed when no #version directive is seen.
const DefaultVersion = 150

// ShaderFunction is a GLSL function definition identified by its name.
type ShaderFunction struct {
	Name   string
	Source []byte
}

// MakeShaderFunction parses a GLSL function definition of the form
//
//	<return type> <name>(<params>) { <body> }
//
// and returns it along with its name.
func MakeShaderFunction(shaderDef []byte) (sf ShaderFunction, err error) {
	shaderDef = bytes.TrimSpace(shaderDef)
	fnNameEnd := bytes.IndexByte(shaderDef, '(')
	fnNameStart := bytes.IndexAny(shaderDef, " \t\n")
	if fnNameEnd < 0 || fnNameStart < 0 || fnNameStart > fnNameEnd {
		return ShaderFunction{}, errors.New("unable to parse function name")
	}
	name := bytes.TrimSpace(shaderDef[fnNameStart:fnNameEnd])
	if len(name) == 0 {
		return ShaderFunction{}, errors.New("empty function name")
	} else if bytes.IndexByte(shaderDef, '{') < fnNameEnd {
		return ShaderFunction{}, errors.New("missing function body")
	}
	return ShaderFunction{Name: string(name), Source: shaderDef}, nil
}

// AppendFunctionDecl appends the function source followed by a newline.
func AppendFunctionDecl(b []byte, sf ShaderFunction) []byte {
	b = append(b, sf.Source...)
	b = append(b, '\n')
	return b
}

// AppendDefineDecl appends "#define NAME VALUE". An empty value omits the
// separating space.
func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	return appendNameValue(b, aliasToDefine, aliasReplace)
}

// AppendDefine2Decl appends "#define2 NAME VALUE". #define2 defines a symbol
// for the preprocessor without passing the line through to the compiler.
func AppendDefine2Decl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define2 "...)
	return appendNameValue(b, aliasToDefine, aliasReplace)
}

// AppendDefine2IntDecl is AppendDefine2Decl for an integer value.
func AppendDefine2IntDecl(b []byte, aliasToDefine string, v int) []byte {
	b = append(b, "#define2 "...)
	b = append(b, aliasToDefine...)
	b = append(b, ' ')
	b = strconv.AppendInt(b, int64(v), 10)
	b = append(b, '\n')
	return b
}

func appendNameValue(b []byte, name, value string) []byte {
	b = append(b, name...)
	if value != "" {
		b = append(b, ' ')
		b = append(b, value...)
	}
	b = append(b, '\n')
	return b
}

func AppendUndefineDecl(b []byte, aliasToUndefine string) []byte {
	b = append(b, "#undef "...)
	b = append(b, aliasToUndefine...)
	b = append(b, '\n')
	return b
}

func AppendVersionDecl(b []byte, version int) []byte {
	b = append(b, "#version "...)
	b = strconv.AppendInt(b, int64(version), 10)
	b = append(b, '\n')
	return b
}

func AppendIncludeDecl(b []byte, key string) []byte {
	b = append(b, "#include "...)
	b = append(b, key...)
	b = append(b, '\n')
	return b
}

// AppendErrorDecl appends an "#error" line. The GLSL compiler rejects
// the shader when it reaches one.
func AppendErrorDecl(b []byte, msg string) []byte {
	b = append(b, "#error "...)
	b = append(b, msg...)
	b = append(b, '\n')
	return b
}

func AppendWarningDecl(b []byte, msg string) []byte {
	b = append(b, "#warning "...)
	b = append(b, msg...)
	b = append(b, '\n')
	return b
}

// AppendCommentLine appends a "// " prefixed comment line.
func AppendCommentLine(b []byte, msg string) []byte {
	b = append(b, "// "...)
	b = append(b, msg...)
	b = append(b, '\n')
	return b
}
