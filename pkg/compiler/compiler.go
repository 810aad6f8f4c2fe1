// Package compiler walks a parsed descriptor graph and emits, for every
// definition, a typed accessor: its namespace-qualified type identifier,
// whether it stands for one element or a collection, and its locator. Type
// resolution is pure over the immutable descriptor model and memoized
// through an injectable cache.
package compiler

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xkilldash9x/pagewright/pkg/descriptor"
	"github.com/xkilldash9x/pagewright/pkg/locator"
)

// TypeIdentifier is the namespace-qualified name of a component's element
// type, e.g. "shop.checkout.Package". For plural definitions it names the
// singular element, not the collection.
type TypeIdentifier string

// CyclicDescriptorError reports a reference cycle in the descriptor graph.
type CyclicDescriptorError struct {
	// Path lists the qualified names along the cycle, ending at the repeat.
	Path []string
}

func (e *CyclicDescriptorError) Error() string {
	return fmt.Sprintf("compiler: cyclic component reference: %s", strings.Join(e.Path, " -> "))
}

// Accessor is the compiled form of one definition.
type Accessor struct {
	// Name is the component's own name.
	Name string
	// Qualified is the namespace-qualified component name.
	Qualified string
	// Type identifies the element type the accessor yields.
	Type TypeIdentifier
	// Plural marks the accessor as an indexable collection of Type.
	Plural  bool
	Locator locator.Spec
	// Children are accessors for nested components.
	Children []*Accessor
}

// Graph is the compiled navigation graph of a page.
type Graph struct {
	Page      string
	Namespace string
	Accessors []*Accessor
}

// Compiler resolves definition types and emits accessor graphs. A single
// Compiler may be used from multiple goroutines; concurrent resolution of
// the same definition computes the identifier once.
type Compiler struct {
	cache  TypeCache
	group  singleflight.Group
	logger *zap.Logger
}

// New creates a Compiler around the given cache.
func New(cache TypeCache, logger *zap.Logger) *Compiler {
	return &Compiler{cache: cache, logger: logger.Named("compiler")}
}

// ResolveType returns the type identifier for d, computing it at most once
// per definition identity. Recomputation for the same definition always
// yields the identical identifier, so a cache hit is indistinguishable from
// a miss apart from the saved work.
func (c *Compiler) ResolveType(d *descriptor.Definition) (TypeIdentifier, error) {
	if id, ok := c.cache.Get(d); ok {
		return id, nil
	}

	// Concurrent sessions compiling the same descriptor graph collapse into
	// one computation. Only the top-level call joins the flight group; the
	// recursion below stays plain so two flights never wait on each other.
	v, err, _ := c.group.Do(fmt.Sprintf("%p", d), func() (any, error) {
		if id, ok := c.cache.Get(d); ok {
			return id, nil
		}
		return c.resolve(d, nil)
	})
	if err != nil {
		return "", err
	}
	return v.(TypeIdentifier), nil
}

func (c *Compiler) resolve(d *descriptor.Definition, seen []*descriptor.Definition) (TypeIdentifier, error) {
	for _, prev := range seen {
		if prev == d {
			path := make([]string, 0, len(seen)+1)
			for _, p := range seen {
				path = append(path, p.QualifiedName())
			}
			path = append(path, d.QualifiedName())
			return "", &CyclicDescriptorError{Path: path}
		}
	}

	if id, ok := c.cache.Get(d); ok {
		return id, nil
	}

	id, err := c.compute(d, append(seen, d))
	if err != nil {
		return "", err
	}
	c.cache.Put(d, id)
	return id, nil
}

func (c *Compiler) compute(d *descriptor.Definition, seen []*descriptor.Definition) (TypeIdentifier, error) {
	// An aliasing definition never defines a type of its own; it takes the
	// referenced definition's resolved type wholesale.
	if d.Ref != nil {
		return c.resolve(d.Ref, seen)
	}
	name := d.Name
	if d.Plural {
		name = d.SingularName
	}
	if d.Namespace == "" {
		return TypeIdentifier(name), nil
	}
	return TypeIdentifier(d.Namespace + "." + name), nil
}

// Compile resolves every definition in the page and emits its accessor
// graph.
func (c *Compiler) Compile(page *descriptor.Page) (*Graph, error) {
	g := &Graph{Page: page.Name, Namespace: page.Namespace}

	var build func(defs []*descriptor.Definition) ([]*Accessor, error)
	build = func(defs []*descriptor.Definition) ([]*Accessor, error) {
		accessors := make([]*Accessor, 0, len(defs))
		for _, d := range defs {
			id, err := c.ResolveType(d)
			if err != nil {
				return nil, err
			}
			a := &Accessor{
				Name:      d.Name,
				Qualified: d.QualifiedName(),
				Type:      id,
				Plural:    effectivePlural(d),
				Locator:   effectiveLocator(d),
			}
			if a.Children, err = build(d.Children); err != nil {
				return nil, err
			}
			accessors = append(accessors, a)
		}
		return accessors, nil
	}

	accessors, err := build(page.Components)
	if err != nil {
		return nil, err
	}
	g.Accessors = accessors
	c.logger.Debug("compiled page",
		zap.String("page", page.Name),
		zap.Int("accessors", len(accessors)))
	return g, nil
}

// effectivePlural follows the alias to the definition that actually carries
// the form; an alias delegates plurality along with its type.
func effectivePlural(d *descriptor.Definition) bool {
	if d.Ref != nil {
		return effectivePlural(d.Ref)
	}
	return d.Plural
}

// effectiveLocator keeps the alias's own locator when it has one and falls
// back to the referenced definition's otherwise.
func effectiveLocator(d *descriptor.Definition) locator.Spec {
	if d.Locator.Expression == "" && d.Ref != nil {
		return effectiveLocator(d.Ref)
	}
	return d.Locator
}
