//go:build tinygo || !cgo

package glstage

// Program is a compiled and linked GPU program.
type Program struct{}

// Delete is a no-op without CGo.
func (p *Program) Delete() {}

// InitHeadless returns ErrNoCGO.
func InitHeadless() (terminate func(), err error) {
	return nil, ErrNoCGO
}

// Compile returns ErrNoCGO.
func Compile(stages map[Stage]string) (*Program, error) {
	return nil, ErrNoCGO
}
