package glslpp

import (
	"math"
	"strconv"
	"strings"
)

// SymbolTable maps macro names to their string values. The zero value is ready to use.
type SymbolTable struct {
	defs map[string]string
}

// Define parses def as "NAME VALUE", splitting on the first space.
// A definition with no space defines NAME with value "1". Existing names are overwritten.
func (st *SymbolTable) Define(def string) {
	if st.defs == nil {
		st.defs = make(map[string]string)
	}
	name, value, found := strings.Cut(def, " ")
	if !found {
		value = "1"
	}
	st.defs[name] = value
}

// Undefine removes name from the table. Undefining an absent name is a no-op.
func (st *SymbolTable) Undefine(name string) {
	delete(st.defs, name)
}

// Lookup returns the value of name and whether it is defined.
func (st *SymbolTable) Lookup(name string) (string, bool) {
	v, ok := st.defs[name]
	return v, ok
}

func (st *SymbolTable) IsDefined(name string) bool {
	_, ok := st.defs[name]
	return ok
}

// Resolve returns token itself if it is numeric, the defined value if token names
// a symbol, or token unchanged otherwise.
func (st *SymbolTable) Resolve(token string) string {
	if isNumber(token) {
		return token
	}
	if v, ok := st.defs[token]; ok {
		return v
	}
	return token
}

// Len returns the number of defined symbols.
func (st *SymbolTable) Len() int { return len(st.defs) }

// Reset removes all definitions.
func (st *SymbolTable) Reset() { clear(st.defs) }

// isNumber reports whether s is a finite decimal number. Words such as
// "inf" or "NaN" that strconv accepts are treated as identifiers.
func isNumber(s string) bool {
	if s == "" {
		return false
	}
	switch c := s[0]; {
	case c >= '0' && c <= '9', c == '+', c == '-', c == '.':
	default:
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func parseNumber(s string) (float64, bool) {
	if !isNumber(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}
