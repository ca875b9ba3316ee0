package glslpp

import (
	"errors"
	"strings"
)

type tokenKind uint8

const (
	tokWord tokenKind = iota
	tokAnd
	tokOr
	tokCmp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

var (
	errUnbalanced     = errors.New("unbalanced parentheses")
	errMissingOperand = errors.New("missing operand")
	errTrailing       = errors.New("unexpected trailing tokens")
)

// Evaluate evaluates a conditional directive expression against st.
//
// Terms are joined by && and || right-associatively with no precedence
// between the two, so "A && B || C" is A && (B || C). A term is a bare word or
// a comparison of two words with ==, !=, <=, >=, < or >. Words are resolved
// through st before comparison. Ordering comparisons are false unless both
// sides are numeric. A bare numeric word is true unless it is "0"; a bare
// identifier is true if defined with a value other than "0".
// Parenthesized groups may appear in any operand position.
//
// Malformed expressions evaluate to false.
func Evaluate(expr string, st *SymbolTable) bool {
	v, err := evaluate(expr, st)
	if err != nil {
		Logger().Debug("malformed condition", "expr", expr, "err", err)
		return false
	}
	return v
}

func evaluate(expr string, st *SymbolTable) (bool, error) {
	if st == nil {
		st = &SymbolTable{}
	}
	toks := tokenize(expr)
	if len(toks) == 0 {
		return false, errMissingOperand
	}
	p := exprParser{toks: toks, st: st}
	v, err := p.chain()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.toks) {
		return false, errTrailing
	}
	return v, nil
}

// tokenize splits expr into words, logical operators, comparison operators
// and parentheses. A word is any run of text that contains no operator, trimmed
// of spaces. Lone '=', '!', '&' and '|' characters belong to words.
func tokenize(expr string) []token {
	var toks []token
	wordStart := -1
	flush := func(end int) {
		if wordStart < 0 {
			return
		}
		if w := strings.TrimSpace(expr[wordStart:end]); w != "" {
			toks = append(toks, token{kind: tokWord, text: w})
		}
		wordStart = -1
	}
	for i := 0; i < len(expr); {
		var kind tokenKind
		n := 0
		switch c := expr[i]; c {
		case '(':
			kind, n = tokLParen, 1
		case ')':
			kind, n = tokRParen, 1
		case '&', '|', '=', '!', '<', '>':
			var next byte
			if i+1 < len(expr) {
				next = expr[i+1]
			}
			switch {
			case c == '&' && next == '&':
				kind, n = tokAnd, 2
			case c == '|' && next == '|':
				kind, n = tokOr, 2
			case next == '=' && c != '&' && c != '|':
				kind, n = tokCmp, 2
			case c == '<' || c == '>':
				kind, n = tokCmp, 1
			}
		}
		if n == 0 {
			if wordStart < 0 {
				wordStart = i
			}
			i++
			continue
		}
		flush(i)
		toks = append(toks, token{kind: kind, text: expr[i : i+n]})
		i += n
	}
	flush(len(expr))
	return toks
}

type exprParser struct {
	toks []token
	pos  int
	st   *SymbolTable
}

func (p *exprParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

// chain := operand [ ("&&" | "||") chain ]
func (p *exprParser) chain() (bool, error) {
	left, err := p.operand()
	if err != nil {
		return false, err
	}
	tok, ok := p.peek()
	if !ok || (tok.kind != tokAnd && tok.kind != tokOr) {
		return left, nil
	}
	p.pos++
	right, err := p.chain()
	if err != nil {
		return false, err
	}
	if tok.kind == tokAnd {
		return left && right, nil
	}
	return left || right, nil
}

// operand := "(" chain ")" | term
func (p *exprParser) operand() (bool, error) {
	tok, ok := p.peek()
	if !ok {
		return false, errMissingOperand
	}
	if tok.kind != tokLParen {
		return p.term()
	}
	p.pos++
	v, err := p.chain()
	if err != nil {
		return false, err
	}
	tok, ok = p.peek()
	if !ok || tok.kind != tokRParen {
		return false, errUnbalanced
	}
	p.pos++
	return v, nil
}

// term := word [ cmpop word ]
func (p *exprParser) term() (bool, error) {
	lhs, ok := p.peek()
	if !ok || lhs.kind != tokWord {
		return false, errMissingOperand
	}
	p.pos++
	op, ok := p.peek()
	if !ok || op.kind != tokCmp {
		return p.single(lhs.text), nil
	}
	p.pos++
	rhs, ok := p.peek()
	if !ok || rhs.kind != tokWord {
		return false, errMissingOperand
	}
	p.pos++
	return p.compare(lhs.text, op.text, rhs.text), nil
}

func (p *exprParser) single(word string) bool {
	if isNumber(word) {
		return word != "0"
	}
	v, ok := p.st.Lookup(word)
	return ok && v != "0"
}

func (p *exprParser) compare(lhs, op, rhs string) bool {
	a := p.st.Resolve(lhs)
	b := p.st.Resolve(rhs)
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	}
	x, okx := parseNumber(a)
	y, oky := parseNumber(b)
	if !okx || !oky {
		return false
	}
	switch op {
	case "<=":
		return x <= y
	case ">=":
		return x >= y
	case "<":
		return x < y
	case ">":
		return x > y
	}
	return false
}
