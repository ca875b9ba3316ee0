package glstage

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	shaderMarker = "#shader "
	// headMarker names the section prepended to every stage.
	headMarker = "includeashead"
)

// ParseCombined splits a combined shader file into stages. Each stage starts at
// a "#shader <stage>" line, i.e:
//
//	#shader vertex
//	void main() { ... }
//	#shader fragment
//	void main() { ... }
//
// Text before the first marker is discarded. The format is the one read by
// glgl.ParseCombined, extended to every [Stage]: "pixel" names the fragment
// stage and a "#shader includeashead" section is prepended to every stage.
func ParseCombined(r io.Reader) (map[Stage]string, error) {
	stages := make(map[Stage]string)
	var head, current strings.Builder
	var stage Stage
	inHead, started := false, false
	flush := func() {
		switch {
		case inHead:
			head.WriteString(current.String())
		case started:
			stages[stage] += current.String()
		}
		current.Reset()
	}
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if name, ok := strings.CutPrefix(strings.TrimSpace(line), shaderMarker); ok {
			name = strings.TrimSpace(name)
			flush()
			if name == headMarker {
				inHead, started = true, false
				continue
			}
			s, err := ParseStage(name)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			stage = s
			inHead, started = false, true
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	if head.Len() > 0 {
		for s, code := range stages {
			if code != "" {
				stages[s] = head.String() + code
			}
		}
	}
	return stages, nil
}

// IsCombined reports whether src contains a "#shader" stage marker line.
func IsCombined(src string) bool {
	for _, line := range strings.Split(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), shaderMarker) {
			return true
		}
	}
	return false
}

// WriteCombined writes stages in pipeline order in the format read by [ParseCombined].
func WriteCombined(w io.Writer, stages map[Stage]string) (n int, err error) {
	for _, s := range Stages() {
		code, ok := stages[s]
		if !ok {
			continue
		}
		ngot, err := io.WriteString(w, shaderMarker+s.String()+"\n")
		n += ngot
		if err != nil {
			return n, err
		}
		if code != "" && !strings.HasSuffix(code, "\n") {
			code += "\n"
		}
		ngot, err = io.WriteString(w, code)
		n += ngot
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
