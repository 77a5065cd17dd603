package constprop

import (
	"fmt"
	"sort"

	"github.com/chazu/linkopt/classfile"
)

// TargetKind distinguishes local-variable and operand-stack observation points.
type TargetKind uint8

const (
	LocalTarget TargetKind = iota
	StackTarget
)

func (k TargetKind) String() string {
	if k == StackTarget {
		return "stack"
	}
	return "local"
}

// Target is an observation point: a local slot or a stack position
// (counted from the top) just before instruction Insn executes. An empty
// Method scopes the target to every method of Owner.
type Target struct {
	Kind   TargetKind
	Owner  string
	Method string
	Desc   string
	Insn   int
	Slot   int

	// Name and Line are set for locals declared by source name.
	Name string
	Line int
}

// ClassScoped reports whether the target applies to every method of its class.
func (t Target) ClassScoped() bool {
	return t.Method == ""
}

func (t Target) String() string {
	where := t.Owner
	if !t.ClassScoped() {
		where = classfile.MethodRef(t.Owner, t.Method, t.Desc)
	}
	if t.Name != "" {
		return fmt.Sprintf("%s %s (line %d, insn %d, slot %d)", where, t.Name, t.Line, t.Insn, t.Slot)
	}
	return fmt.Sprintf("%s @%d %s %d", where, t.Insn, t.Kind, t.Slot)
}

func (t Target) sameSlot(o Target) bool {
	return t.Kind == o.Kind && t.Owner == o.Owner && t.Method == o.Method && t.Desc == o.Desc &&
		t.Insn == o.Insn && t.Slot == o.Slot
}

// Registry holds the observation points declared before an analysis.
// Re-declaring a local-variable target for the same slot replaces it;
// stack-value targets accumulate.
type Registry struct {
	classes map[string][]Target
	methods map[string][]Target
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string][]Target),
		methods: make(map[string][]Target),
	}
}

// DeclareClassTarget registers a target that applies to every method of owner.
func (r *Registry) DeclareClassTarget(owner string, kind TargetKind, insn, slot int) {
	r.classes[owner] = r.add(r.classes[owner], Target{Kind: kind, Owner: owner, Insn: insn, Slot: slot})
}

// DeclareLocalVariable observes local slot before instruction insn of owner.name desc.
func (r *Registry) DeclareLocalVariable(owner, name, desc string, insn, slot int) {
	r.declare(Target{Kind: LocalTarget, Owner: owner, Method: name, Desc: desc, Insn: insn, Slot: slot})
}

// DeclareStackValue observes the stack entry slot positions below the top
// before instruction insn of owner.name desc.
func (r *Registry) DeclareStackValue(owner, name, desc string, insn, slot int) {
	r.declare(Target{Kind: StackTarget, Owner: owner, Method: name, Desc: desc, Insn: insn, Slot: slot})
}

// DeclareNamedLocal observes the local variable called variable at the
// line-number marker of line. It fails if the method, the line or a
// variable of that name live at the line cannot be found.
func (r *Registry) DeclareNamedLocal(c *classfile.Class, name, desc, variable string, line int) error {
	m := c.Method(name, desc)
	if m == nil {
		return &ConfigError{Owner: c.Name, Method: name + desc, Msg: "method not found"}
	}
	insn := m.LineIndex(line)
	if insn < 0 {
		return &ConfigError{Owner: c.Name, Method: name + desc, Msg: fmt.Sprintf("line %d not found", line)}
	}
	lv, ok := m.LocalAt(variable, insn)
	if !ok {
		return &ConfigError{Owner: c.Name, Method: name + desc,
			Msg: fmt.Sprintf("no variable %q in scope at line %d", variable, line)}
	}
	r.declare(Target{
		Kind:   LocalTarget,
		Owner:  c.Name,
		Method: name,
		Desc:   desc,
		Insn:   insn,
		Slot:   lv.Index,
		Name:   variable,
		Line:   line,
	})
	return nil
}

func (r *Registry) declare(t Target) {
	key := methodKey(t.Owner, t.Method, t.Desc)
	r.methods[key] = r.add(r.methods[key], t)
}

func (r *Registry) add(list []Target, t Target) []Target {
	for i, old := range list {
		if old.sameSlot(t) {
			if t.Kind == LocalTarget {
				list[i] = t
			}
			return list
		}
	}
	return append(list, t)
}

// Targets returns the targets that apply to method m of owner, class-scoped
// ones first. Class-scoped targets outside m's instruction range are skipped.
func (r *Registry) Targets(owner string, m *classfile.Method) []Target {
	var out []Target
	for _, t := range r.classes[owner] {
		if t.Insn >= 0 && t.Insn < len(m.Instructions) {
			t.Method, t.Desc = m.Name, m.Desc
			out = append(out, t)
		}
	}
	return append(out, r.methods[methodKey(owner, m.Name, m.Desc)]...)
}

// Methods returns one target per method that has method-scoped targets,
// sorted by owner, name and descriptor.
func (r *Registry) Methods() []Target {
	keys := make([]string, 0, len(r.methods))
	for k, list := range r.methods {
		if len(list) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]Target, len(keys))
	for i, k := range keys {
		out[i] = r.methods[k][0]
	}
	return out
}

// Classes returns the owners that have class-scoped targets, sorted.
func (r *Registry) Classes() []string {
	out := make([]string, 0, len(r.classes))
	for owner, list := range r.classes {
		if len(list) > 0 {
			out = append(out, owner)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of declared targets.
func (r *Registry) Len() int {
	n := 0
	for _, l := range r.classes {
		n += len(l)
	}
	for _, l := range r.methods {
		n += len(l)
	}
	return n
}

func methodKey(owner, name, desc string) string {
	return owner + "." + name + desc
}
