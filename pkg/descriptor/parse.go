package descriptor

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/pagewright/pkg/locator"
)

// rawPage and rawComponent mirror the YAML authoring format:
//
//	page: checkout
//	namespace: shop
//	components:
//	  - name: SubmitButton
//	    locator: "#submit"
//	  - name: Packages
//	    singular: Package
//	    plural: true
//	    locator: ".package-row"
//	    components:
//	      - name: Title
//	        locator: ".title"
//	  - name: ConfirmButton
//	    ref: shop.checkout.SubmitButton
type rawPage struct {
	Page       string         `yaml:"page"`
	Namespace  string         `yaml:"namespace"`
	Components []rawComponent `yaml:"components"`
}

type rawComponent struct {
	Name       string         `yaml:"name"`
	Singular   string         `yaml:"singular"`
	Plural     bool           `yaml:"plural"`
	Locator    string         `yaml:"locator"`
	Dialect    string         `yaml:"dialect"`
	Ref        string         `yaml:"ref"`
	Components []rawComponent `yaml:"components"`
}

// Parse reads one YAML descriptor document and links it into an immutable
// Definition graph. References are resolved by qualified name in a second
// pass, so a component may alias one declared later in the document.
func Parse(r io.Reader) (*Page, error) {
	var raw rawPage
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("descriptor: decoding document: %w", err)
	}
	if raw.Page == "" {
		return nil, fmt.Errorf("descriptor: document has no page name")
	}

	page := &Page{
		Name:      raw.Page,
		Namespace: raw.Namespace,
		index:     make(map[string]*Definition),
	}
	ns := raw.Namespace
	if ns != "" {
		ns += "."
	}
	ns += raw.Page

	// First pass: build definitions and the name index.
	type pendingRef struct {
		def    *Definition
		target string
	}
	var refs []pendingRef

	var build func(rc rawComponent, namespace string) (*Definition, error)
	build = func(rc rawComponent, namespace string) (*Definition, error) {
		if rc.Name == "" {
			return nil, fmt.Errorf("descriptor: component in %q has no name", namespace)
		}
		if rc.Ref == "" && rc.Locator == "" {
			return nil, fmt.Errorf("descriptor: component %s.%s has neither locator nor ref", namespace, rc.Name)
		}
		if rc.Plural && rc.Singular == "" {
			return nil, fmt.Errorf("descriptor: plural component %s.%s has no singular name", namespace, rc.Name)
		}

		d := &Definition{
			Name:         rc.Name,
			SingularName: rc.Singular,
			Namespace:    namespace,
			Plural:       rc.Plural,
			Locator:      specFor(rc),
		}
		if prev, dup := page.index[d.QualifiedName()]; dup {
			return nil, fmt.Errorf("descriptor: duplicate component %s (first declared with locator %s)",
				d.QualifiedName(), prev.Locator)
		}
		page.index[d.QualifiedName()] = d

		if rc.Ref != "" {
			refs = append(refs, pendingRef{def: d, target: rc.Ref})
		}
		for _, child := range rc.Components {
			cd, err := build(child, d.QualifiedName())
			if err != nil {
				return nil, err
			}
			d.Children = append(d.Children, cd)
		}
		return d, nil
	}

	for _, rc := range raw.Components {
		d, err := build(rc, ns)
		if err != nil {
			return nil, err
		}
		page.Components = append(page.Components, d)
	}

	// Second pass: link references.
	for _, pr := range refs {
		target, ok := page.index[pr.target]
		if !ok {
			return nil, fmt.Errorf("descriptor: component %s references unknown component %q",
				pr.def.QualifiedName(), pr.target)
		}
		if target == pr.def {
			return nil, fmt.Errorf("descriptor: component %s references itself", pr.def.QualifiedName())
		}
		pr.def.Ref = target
	}

	return page, nil
}

func specFor(rc rawComponent) locator.Spec {
	switch rc.Dialect {
	case "path":
		return locator.Path(rc.Locator)
	case "style":
		return locator.Style(rc.Locator)
	default:
		return locator.New(rc.Locator)
	}
}
