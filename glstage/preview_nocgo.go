//go:build tinygo || !cgo

package glstage

// Preview returns ErrNoCGO.
func Preview(stages map[Stage]string, cfg PreviewConfig) error {
	return ErrNoCGO
}
