package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the mil lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger // 42, 0xFF
	TokenString  // "bytes"

	// Atoms
	TokenSymbol // let, set!, v-ref, +, my-fn

	// Delimiters
	TokenLParen // (
	TokenRParen // )
)

var tokenNames = map[TokenType]string{
	TokenEOF:     "EOF",
	TokenError:   "ERROR",
	TokenInteger: "INTEGER",
	TokenString:  "STRING",
	TokenSymbol:  "SYMBOL",
	TokenLParen:  "(",
	TokenRParen:  ")",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// isSymbolChar reports whether r may appear in a symbol. Operator spellings
// (+, <<, set!, v-ref) are ordinary symbols in mil.
func isSymbolChar(r rune) bool {
	if isLetter(r) || isDigit(r) {
		return true
	}
	switch r {
	case '+', '-', '*', '/', '%', '<', '>', '=', '!', '?', '_':
		return true
	}
	return false
}
