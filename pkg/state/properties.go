package state

import "sort"

// Properties is a set of named string properties of some object.
type Properties struct {
	m map[string]string
}

// Get returns the value of a property.
func (p *Properties) Get(name string) (string, bool) {
	v, ok := p.m[name]
	return v, ok
}

// Set sets a property.
func (p *Properties) Set(name, value string) {
	if p.m == nil {
		p.m = make(map[string]string)
	}
	p.m[name] = value
}

// Append appends a value to a property as a list element.
func (p *Properties) Append(name, value string) {
	if old, ok := p.Get(name); ok && old != "" {
		if value == "" {
			return
		}
		value = old + ";" + value
	}
	p.Set(name, value)
}

// AppendString appends a value to a property as a string.
func (p *Properties) AppendString(name, value string) {
	old, _ := p.Get(name)
	p.Set(name, old+value)
}

// Remove removes a property.
func (p *Properties) Remove(name string) {
	delete(p.m, name)
}

// Names returns the names of all properties, sorted.
func (p *Properties) Names() []string {
	names := make([]string, 0, len(p.m))
	for name := range p.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
