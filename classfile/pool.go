package classfile

import "fmt"

// Requires is one requires directive of a module descriptor.
type Requires struct {
	Module     string `cbor:"1,keyasint"`
	Transitive bool   `cbor:"2,keyasint,omitempty"`
}

// Exports is one exports directive. An empty To exports to everyone.
type Exports struct {
	Package string   `cbor:"1,keyasint"`
	To      []string `cbor:"2,keyasint,omitempty"`
}

// ModuleDescriptor is the decoded content of a module-info class.
type ModuleDescriptor struct {
	Name     string     `cbor:"1,keyasint"`
	Open     bool       `cbor:"2,keyasint,omitempty"`
	Requires []Requires `cbor:"3,keyasint,omitempty"`
	Exports  []Exports  `cbor:"4,keyasint,omitempty"`
}

// Entry is one class of the pool together with its owning module.
type Entry struct {
	Module string `cbor:"1,keyasint"`
	Class  *Class `cbor:"2,keyasint"`
}

// Pool is the set of classes and module descriptors being linked. Entries
// keep insertion order so every walk over the pool is deterministic.
type Pool struct {
	entries []Entry
	modules []*ModuleDescriptor
	byName  map[string]int
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{byName: make(map[string]int)}
}

// Add appends a class owned by module. A class with the same internal
// name in the same module is replaced.
func (p *Pool) Add(module string, c *Class) {
	key := module + "/" + c.Name
	if i, ok := p.byName[key]; ok {
		p.entries[i].Class = c
		return
	}
	p.byName[key] = len(p.entries)
	p.entries = append(p.entries, Entry{Module: module, Class: c})
}

// AddModule registers a module descriptor.
func (p *Pool) AddModule(d *ModuleDescriptor) {
	for i, m := range p.modules {
		if m.Name == d.Name {
			p.modules[i] = d
			return
		}
	}
	p.modules = append(p.modules, d)
}

// Entries returns every class in insertion order. The slice must not be modified.
func (p *Pool) Entries() []Entry {
	return p.entries
}

// Classes returns every class in insertion order.
func (p *Pool) Classes() []*Class {
	out := make([]*Class, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Class
	}
	return out
}

// Modules returns every module descriptor.
func (p *Pool) Modules() []*ModuleDescriptor {
	return p.modules
}

// Len returns the number of classes.
func (p *Pool) Len() int {
	return len(p.entries)
}

// FindInModule looks up a class by module and internal name.
func (p *Pool) FindInModule(module, name string) *Class {
	if i, ok := p.byName[module+"/"+name]; ok {
		return p.entries[i].Class
	}
	return nil
}

// Find looks up a class by internal name in any module. The first match in
// insertion order wins.
func (p *Pool) Find(name string) (*Class, string, bool) {
	for _, e := range p.entries {
		if e.Class.Name == name {
			return e.Class, e.Module, true
		}
	}
	return nil, "", false
}

// ModuleOf returns the module that owns the named class.
func (p *Pool) ModuleOf(name string) (string, bool) {
	_, m, ok := p.Find(name)
	return m, ok
}

// Replace returns a new pool in which the class of the same module and name
// is swapped for c. The receiver is not modified.
func (p *Pool) Replace(module string, c *Class) (*Pool, error) {
	i, ok := p.byName[module+"/"+c.Name]
	if !ok {
		return nil, fmt.Errorf("class %s not found in module %s", c.Name, module)
	}
	out := p.copy()
	out.entries[i].Class = c
	return out, nil
}

func (p *Pool) copy() *Pool {
	out := &Pool{
		entries: append([]Entry(nil), p.entries...),
		modules: append([]*ModuleDescriptor(nil), p.modules...),
		byName:  make(map[string]int, len(p.byName)),
	}
	for k, v := range p.byName {
		out.byName[k] = v
	}
	return out
}
