package camera

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Property is one camera setting as described by get_camprop's desclist.
type Property struct {
	Name      string
	Attribute string   // "get", "set" or "getset"
	Value     string   // current value
	Enum      []string // allowed values, empty if unconstrained
}

// Readable reports whether the camera allows reading the property
func (p *Property) Readable() bool {
	return strings.Contains(p.Attribute, "get")
}

// Writable reports whether the camera allows changing the property
func (p *Property) Writable() bool {
	return strings.Contains(p.Attribute, "set")
}

// Allows reports whether value is acceptable for the property. Properties
// without an enum accept anything.
func (p *Property) Allows(value string) bool {
	return len(p.Enum) == 0 || slices.Contains(p.Enum, value)
}

// Properties is the set of camera settings known to the client.
type Properties struct {
	byName map[string]*Property
}

// NewProperties returns an empty property set
func NewProperties() *Properties {
	return &Properties{byName: make(map[string]*Property)}
}

// Parse merges the <desc> children of a <desclist> element into the set.
// A desc without a propname is an error; the set is left unchanged then.
func (ps *Properties) Parse(desclist *etree.Element) error {
	if desclist == nil {
		return fmt.Errorf("missing desclist element")
	}

	parsed := make([]*Property, 0)
	for _, desc := range desclist.SelectElements("desc") {
		name := childText(desc, "propname")
		if name == "" {
			return fmt.Errorf("desc element without propname")
		}

		p := &Property{
			Name:      name,
			Attribute: childText(desc, "attribute"),
			Value:     childText(desc, "value"),
		}
		if enum := childText(desc, "enum"); enum != "" {
			p.Enum = strings.Fields(enum)
		}
		parsed = append(parsed, p)
	}

	for _, p := range parsed {
		ps.byName[p.Name] = p
	}
	return nil
}

// Get returns the named property
func (ps *Properties) Get(name string) (*Property, bool) {
	p, ok := ps.byName[name]
	return p, ok
}

// Names returns the property names in sorted order
func (ps *Properties) Names() []string {
	names := make([]string, 0, len(ps.byName))
	for name := range ps.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of known properties
func (ps *Properties) Len() int {
	return len(ps.byName)
}

// Clone returns a deep copy
func (ps *Properties) Clone() *Properties {
	out := NewProperties()
	for name, p := range ps.byName {
		cp := *p
		cp.Enum = slices.Clone(p.Enum)
		out.byName[name] = &cp
	}
	return out
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

// setPropertyBody builds <set><value>v</value></set> for set_camprop.
func setPropertyBody(value string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0"`)
	doc.CreateElement("set").CreateElement("value").SetText(value)
	return doc
}
