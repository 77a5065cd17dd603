// Package modgraph answers module accessibility questions for a class pool.
//
// A Graph is built once from every module descriptor in the pool and is
// read-only afterwards. It knows which packages each module exports (to
// everyone or to a list of friends) and which modules each module reads,
// including readability implied by "requires transitive".
package modgraph

import (
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/linkopt/classfile"
)

var log = commonlog.GetLogger("linkopt.modgraph")

// Module is a named module. Modules compare by name.
type Module struct {
	Name string
	Open bool

	desc  *classfile.ModuleDescriptor
	reads map[string]*Module
}

// Reads reports whether m has a read edge to other.
func (m *Module) Reads(other *Module) bool {
	if m == nil || other == nil {
		return false
	}
	_, ok := m.reads[other.Name]
	return ok
}

// ReadNames returns the names of every module m reads, sorted.
func (m *Module) ReadNames() []string {
	out := make([]string, 0, len(m.reads))
	for name := range m.reads {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Package is a package exported by a module.
type Package struct {
	Name          string // dotted
	Module        *Module
	ExportedToAll bool

	exportedTo map[string]bool
}

// ExportedTo reports whether p is exported to m, either to everyone or by
// a qualified export naming m.
func (p *Package) ExportedTo(m *Module) bool {
	if p.ExportedToAll {
		return true
	}
	return m != nil && p.exportedTo[m.Name]
}

// Graph is the module accessibility graph.
type Graph struct {
	modules  map[string]*Module
	packages map[packageKey]*Package
}

type packageKey struct {
	module string
	pkg    string
}

// Build creates the graph from module descriptors. Export targets and
// requirements naming modules outside the set are ignored.
func Build(descs []*classfile.ModuleDescriptor) *Graph {
	g := &Graph{
		modules:  make(map[string]*Module, len(descs)),
		packages: make(map[packageKey]*Package),
	}
	for _, d := range descs {
		g.modules[d.Name] = &Module{Name: d.Name, Open: d.Open, desc: d, reads: make(map[string]*Module)}
	}
	for _, m := range g.modules {
		g.addExports(m)
		g.addReads(m)
	}
	g.closeTransitive()
	return g
}

// FromPool builds the graph from the module descriptors of a pool.
func FromPool(p *classfile.Pool) *Graph {
	return Build(p.Modules())
}

func (g *Graph) addExports(m *Module) {
	for _, e := range m.desc.Exports {
		name := packageName(e.Package)
		key := packageKey{module: m.Name, pkg: name}
		p, ok := g.packages[key]
		if !ok {
			p = &Package{Name: name, Module: m, exportedTo: make(map[string]bool)}
			g.packages[key] = p
		}
		if len(e.To) == 0 {
			p.ExportedToAll = true
			continue
		}
		for _, target := range e.To {
			if _, ok := g.modules[target]; !ok {
				log.Debugf("module %s exports %s to unknown module %s", m.Name, name, target)
				continue
			}
			p.exportedTo[target] = true
		}
	}
}

func (g *Graph) addReads(m *Module) {
	for _, r := range m.desc.Requires {
		if dep, ok := g.modules[r.Module]; ok {
			m.reads[dep.Name] = dep
		}
	}
}

// closeTransitive adds implied readability: a module that reads N also
// reads every module N requires transitively, repeated to a fixed point.
func (g *Graph) closeTransitive() {
	for changed := true; changed; {
		changed = false
		for _, m := range g.modules {
			for _, n := range m.reads {
				for _, r := range n.desc.Requires {
					if !r.Transitive {
						continue
					}
					t, ok := g.modules[r.Module]
					if !ok || t == m {
						continue
					}
					if _, seen := m.reads[t.Name]; !seen {
						m.reads[t.Name] = t
						changed = true
					}
				}
			}
		}
	}
}

// Module looks up a module by name.
func (g *Graph) Module(name string) (*Module, bool) {
	m, ok := g.modules[name]
	return m, ok
}

// Modules returns every module sorted by name.
func (g *Graph) Modules() []*Module {
	out := make([]*Module, 0, len(g.modules))
	for _, m := range g.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Package looks up a package exported by module. pkg may be dotted or
// slash separated.
func (g *Graph) Package(module, pkg string) (*Package, bool) {
	p, ok := g.packages[packageKey{module: module, pkg: packageName(pkg)}]
	return p, ok
}

// Reads reports whether module from reads module to.
func (g *Graph) Reads(from, to string) bool {
	f, ok1 := g.modules[from]
	t, ok2 := g.modules[to]
	return ok1 && ok2 && f.Reads(t)
}

// IsAccessible reports whether class (an internal name) living in module
// to can be referenced from module from. The class's package must be
// exported by to, to everyone or to from, and from must read to. Unknown
// modules and packages are not accessible.
func (g *Graph) IsAccessible(class, from, to string) bool {
	p, ok := g.Package(to, classfile.PackageOf(class))
	if !ok {
		return false
	}
	cur, ok := g.modules[from]
	if !ok || !p.ExportedTo(cur) {
		return false
	}
	return cur.Reads(p.Module)
}

func packageName(pkg string) string {
	return classfile.BinaryName(pkg)
}
