// Package locator classifies raw selector expressions into the dialect the
// driver should resolve them with. Detection is a pure syntactic heuristic:
// an expression that compiles under the hierarchical path-query grammar is a
// path query, everything else falls back to a style (CSS) query.
package locator

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Dialect identifies the query language a selector expression is written in.
type Dialect string

const (
	// PathQuery is a hierarchical document path (XPath-style: "//div[@id='x']").
	PathQuery Dialect = "path"
	// StyleQuery is a CSS selector ("#login > button.primary").
	StyleQuery Dialect = "style"
)

// Spec is a selector expression paired with its detected dialect.
type Spec struct {
	Dialect    Dialect
	Expression string
}

// New builds a Spec for expression, detecting its dialect.
func New(expression string) Spec {
	return Spec{Dialect: Detect(expression), Expression: expression}
}

// Path builds a Spec that is explicitly a path query, bypassing detection.
func Path(expression string) Spec {
	return Spec{Dialect: PathQuery, Expression: expression}
}

// Style builds a Spec that is explicitly a style query, bypassing detection.
func Style(expression string) Spec {
	return Spec{Dialect: StyleQuery, Expression: expression}
}

func (s Spec) String() string {
	return fmt.Sprintf("%s(%s)", s.Dialect, s.Expression)
}

// Detect classifies expression by attempting to compile it under the path
// grammar. It is total: any input, including the empty string, yields exactly
// one dialect and never an error. A failed parse is evidence for "not a path
// query", nothing more.
//
// The classification is a heuristic. Only expressions that begin the way a
// document path must are considered for the path grammar, so selectors the
// path compiler would also accept (e.g. "a[href]") stay in the style bucket;
// callers that need certainty construct the Spec with Path or Style directly.
func Detect(expression string) Dialect {
	if !pathShaped(expression) {
		return StyleQuery
	}
	if _, err := etree.CompilePath(expression); err != nil {
		return StyleQuery
	}
	return PathQuery
}

// pathShaped reports whether expression begins the way a document path must:
// absolute ("/", "//"), relative ("./", "../"), or a parenthesized group.
// The path compiler accepts almost any token as an element name, so without
// this anchor plain CSS like "button.primary" would sail through it.
func pathShaped(expression string) bool {
	for _, prefix := range []string{"//", "/", "./", "../", "("} {
		if strings.HasPrefix(expression, prefix) {
			return true
		}
	}
	return false
}
