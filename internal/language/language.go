package language

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/lexer"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates SDL together with the specification
// prelude (built-in scalars, @skip, @include, introspection types).
func LoadSchema(name, source string) (*Schema, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Validate runs the default validation rules. An empty list means the
// document is valid against the schema.
func Validate(s *Schema, doc *QueryDocument) ErrorList {
	return validator.Validate(s, doc)
}

// DefinitionHeader names a top-level definition found by ScanDefinitions.
type DefinitionHeader struct {
	// Keyword is the leading keyword ("query", "fragment", "type", ...), or
	// "{" for a shorthand query.
	Keyword  string
	Name     string
	Position Position
}

// IsExecutable reports whether the definition may appear in an executable
// document.
func (h DefinitionHeader) IsExecutable() bool {
	switch h.Keyword {
	case "{", "query", "mutation", "subscription", "fragment":
		return true
	}
	return false
}

// ScanDefinitions tokenizes source and reports the header of every
// top-level definition without building an AST. It accepts mixed
// executable and type-system documents that neither parser accepts.
func ScanDefinitions(source string) ([]DefinitionHeader, error) {
	lex := lexer.New(&ast.Source{Input: source})
	var (
		out        []DefinitionHeader
		depth      int
		naming     bool // the last header still waits for its name
		expectBody bool // the next top-level brace opens the last header's body
		directive  bool // the next name is a directive name
	)
	for {
		tok, err := lex.ReadToken()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case lexer.EOF:
			return out, nil
		case lexer.At:
			directive = !naming
		case lexer.BraceL, lexer.ParenL, lexer.BracketL:
			if depth == 0 && tok.Kind == lexer.BraceL {
				if expectBody {
					expectBody = false
				} else {
					out = append(out, DefinitionHeader{Keyword: "{", Position: tok.Pos})
				}
				naming = false
			}
			depth++
		case lexer.BraceR, lexer.ParenR, lexer.BracketR:
			depth--
		case lexer.Name:
			if depth != 0 {
				continue
			}
			if directive {
				directive = false
				continue
			}
			last := len(out) - 1
			switch {
			case naming && out[last].Keyword == "extend":
				out[last].Keyword += " " + tok.Value
			case isDefinitionKeyword(tok.Value):
				out = append(out, DefinitionHeader{Keyword: tok.Value, Position: tok.Pos})
				naming = tok.Value != "schema"
				expectBody = hasBody(tok.Value)
			case naming:
				out[last].Name = tok.Value
				naming = false
			}
		}
	}
}

func isDefinitionKeyword(v string) bool {
	switch v {
	case "query", "mutation", "subscription", "fragment",
		"schema", "scalar", "type", "interface", "union", "enum", "input", "directive", "extend":
		return true
	}
	return false
}

func hasBody(keyword string) bool {
	switch keyword {
	case "scalar", "union", "directive":
		return false
	}
	return true
}
