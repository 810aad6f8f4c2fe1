// Package descriptor holds the in-memory model produced from authored page
// descriptions: a graph of named, typed component definitions. Definitions
// are built once by Parse and never mutated afterwards; identity is by
// pointer, since a definition may alias another one via Ref.
package descriptor

import "github.com/xkilldash9x/pagewright/pkg/locator"

// Definition describes one named page component: where it lives in the
// namespace, how to locate it, and whether it stands for one element or a
// collection of them.
type Definition struct {
	// Name is the authored component name ("LoginForm", "Packages").
	Name string
	// SingularName names one element of a plural definition ("Package").
	// Empty for singular definitions.
	SingularName string
	// Namespace qualifies the definition ("shop.checkout"). Nested
	// definitions inherit their parent's namespace extended by the parent
	// name.
	Namespace string
	// Plural marks the definition as a collection of matching elements.
	Plural bool
	// Locator tells the driver how to find the component.
	Locator locator.Spec
	// Ref, when set, delegates this definition's resolved type entirely to
	// the referenced definition. An aliasing definition never defines a type
	// of its own.
	Ref *Definition
	// Children are components nested inside this one.
	Children []*Definition
}

// QualifiedName returns the namespace-qualified component name.
func (d *Definition) QualifiedName() string {
	if d.Namespace == "" {
		return d.Name
	}
	return d.Namespace + "." + d.Name
}

// Page is the root of one parsed descriptor document.
type Page struct {
	Name       string
	Namespace  string
	Components []*Definition

	// index maps qualified names to definitions for ref resolution.
	index map[string]*Definition
}

// Lookup finds a definition by its qualified name.
func (p *Page) Lookup(qualified string) (*Definition, bool) {
	d, ok := p.index[qualified]
	return d, ok
}

// Walk visits every definition in the page depth-first.
func (p *Page) Walk(visit func(*Definition)) {
	var walk func(ds []*Definition)
	walk = func(ds []*Definition) {
		for _, d := range ds {
			visit(d)
			walk(d.Children)
		}
	}
	walk(p.Components)
}
