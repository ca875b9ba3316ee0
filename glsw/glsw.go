// Package glsw resolves GLSL #include keys to sections of shader files.
//
// A shader file holds several named sections, each starting at a marker line:
//
//	-- vs
//	void main() { ... }
//	-- fs
//	void main() { ... }
//
// The include key "dir.file.vs" names section "vs" of "dir/file.glsl",
// searched for in every include path in order.
package glsw

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/soypat/glslpp"
)

// FileExt is the extension of shader files looked up by Includer.
const FileExt = ".glsl"

var (
	ErrInvalidKey = errors.New("invalid include key")
	ErrNotFound   = errors.New("shader file not found")
	ErrNoSection  = errors.New("section not defined")
)

var _ glslpp.Resolver = (*Includer)(nil)

// Includer resolves include keys against shader files in a file system.
// Loaded files are parsed once and their sections cached. Safe for concurrent use.
type Includer struct {
	fsys     fs.FS
	mu       sync.RWMutex
	paths    []string
	sections map[string]string
	// loaded maps file keys of parsed files to their section names in file order.
	loaded map[string][]string
}

// New returns an Includer over fsys. If no include paths are given the
// root of fsys is used. Paths are not checked; use AddPath for that.
func New(fsys fs.FS, paths ...string) *Includer {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	inc := &Includer{
		fsys:     fsys,
		sections: make(map[string]string),
		loaded:   make(map[string][]string),
	}
	for _, p := range paths {
		inc.paths = append(inc.paths, path.Clean(p))
	}
	return inc
}

// AddPath appends an include path. It fails if the path is not a directory of the file system.
func (inc *Includer) AddPath(dir string) error {
	dir = path.Clean(dir)
	if !fs.ValidPath(dir) {
		return fmt.Errorf("include path %q: %w", dir, fs.ErrInvalid)
	}
	info, err := fs.Stat(inc.fsys, dir)
	if err != nil {
		return fmt.Errorf("include path: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("include path %q is not a directory", dir)
	}
	inc.mu.Lock()
	inc.paths = append(inc.paths, dir)
	inc.mu.Unlock()
	return nil
}

// IsKeyValid reports whether key has valid include key syntax: it
// contains a dot and neither a newline nor a '#'.
func IsKeyValid(key string) bool {
	return strings.Contains(key, ".") && !strings.ContainsAny(key, "\n#")
}

// CanInclude reports whether key is syntactically valid and names an existing shader file.
func (inc *Includer) CanInclude(key string) bool {
	if !IsKeyValid(key) {
		return false
	}
	_, _, _, err := inc.locate(key)
	return err == nil
}

// Include returns the text of the section named by key.
func (inc *Includer) Include(key string) (string, error) {
	if !IsKeyValid(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	inc.mu.RLock()
	text, ok := inc.sections[key]
	inc.mu.RUnlock()
	if ok {
		return text, nil
	}
	filePath, fileKey, sectionKey, err := inc.locate(key)
	if err != nil {
		return "", err
	}
	inc.mu.Lock()
	defer inc.mu.Unlock()
	if _, loaded := inc.loaded[fileKey]; !loaded {
		if err := inc.load(filePath, fileKey); err != nil {
			return "", err
		}
	}
	text, ok = inc.sections[key]
	if !ok {
		return "", fmt.Errorf("%w: no section %q in %s", ErrNoSection, sectionKey, filePath)
	}
	return text, nil
}

// Sections returns the section names of a loaded file in file order.
// fileKey is the include key prefix naming the file, i.e. "dir.file".
func (inc *Includer) Sections(fileKey string) []string {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	return append([]string(nil), inc.loaded[fileKey]...)
}

// locate finds the shader file named by the leading tokens of key.
func (inc *Includer) locate(key string) (filePath, fileKey, sectionKey string, err error) {
	tokens := strings.Split(key, ".")
	inc.mu.RLock()
	paths := inc.paths
	inc.mu.RUnlock()
	for _, dir := range paths {
		for i, tok := range tokens {
			if tok == "" || !fs.ValidPath(tok) {
				break
			}
			candidate := path.Join(dir, tok+FileExt)
			if info, err := fs.Stat(inc.fsys, candidate); err == nil && !info.IsDir() {
				return candidate, strings.Join(tokens[:i+1], "."), strings.Join(tokens[i+1:], "."), nil
			}
			sub := path.Join(dir, tok)
			if info, err := fs.Stat(inc.fsys, sub); err == nil && info.IsDir() {
				dir = sub
				continue
			}
			break
		}
	}
	return "", "", "", fmt.Errorf("%w: unable to resolve include key %q", ErrNotFound, key)
}

var sectionRegex = regexp.MustCompile(`(?m)^[ \t]*-- ([a-zA-Z][a-zA-Z0-9_\-.]*)[ \t]*\r?$`)

// load parses the sections of filePath. Called with inc.mu held.
func (inc *Includer) load(filePath, fileKey string) error {
	content, err := fs.ReadFile(inc.fsys, filePath)
	if err != nil {
		return fmt.Errorf("loading shader file: %w", err)
	}
	sections := ParseSections(string(content))
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		key := fileKey + "." + s.Name
		if _, dup := inc.sections[key]; dup {
			continue
		}
		inc.sections[key] = s.Body
		names = append(names, s.Name)
	}
	inc.loaded[fileKey] = names
	glslpp.Logger().Debug("loaded shader file", "path", filePath, "sections", len(names))
	return nil
}

// Section is a named part of a shader file.
type Section struct {
	Name string
	Body string
}

// ParseSections splits content at "-- name" marker lines. Text before the
// first marker is discarded. Each body excludes its marker line.
func ParseSections(content string) []Section {
	matches := sectionRegex.FindAllStringSubmatchIndex(content, -1)
	sections := make([]Section, 0, len(matches))
	for i, m := range matches {
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimPrefix(content[m[1]:end], "\n")
		sections = append(sections, Section{Name: content[m[2]:m[3]], Body: body})
	}
	return sections
}
