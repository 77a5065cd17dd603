package manifest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/linkopt/classfile"
	"github.com/chazu/linkopt/constprop"
)

// Target is one [[target]] entry. A target names a local either by source
// name and line or by explicit instruction index and slot. Without Method
// an indexed target applies to every method of Class.
type Target struct {
	Class       string `toml:"class"`
	Method      string `toml:"method"`
	Descriptor  string `toml:"descriptor"`
	Local       string `toml:"local"`
	Line        int    `toml:"line"`
	Instruction *int   `toml:"instruction"`
	Slot        int    `toml:"slot"`
	Kind        string `toml:"kind"`
}

func (t *Target) kind() (constprop.TargetKind, error) {
	switch strings.ToLower(t.Kind) {
	case "", "local":
		return constprop.LocalTarget, nil
	case "stack":
		return constprop.StackTarget, nil
	}
	return 0, fmt.Errorf("unknown target kind %q (want local or stack)", t.Kind)
}

// Apply declares the target in reg, resolving names against pool.
func (t *Target) Apply(reg *constprop.Registry, pool *classfile.Pool) error {
	if t.Class == "" {
		return errors.New("class is required")
	}
	owner := classfile.InternalName(t.Class)
	kind, err := t.kind()
	if err != nil {
		return err
	}

	if t.Local != "" {
		if t.Method == "" || t.Descriptor == "" || t.Line <= 0 {
			return fmt.Errorf("local %q needs method, descriptor and line", t.Local)
		}
		c, _, ok := pool.Find(owner)
		if !ok {
			return fmt.Errorf("class %s not in pool", owner)
		}
		return reg.DeclareNamedLocal(c, t.Method, t.Descriptor, t.Local, t.Line)
	}

	if t.Instruction == nil {
		return errors.New("either local or instruction is required")
	}
	insn := *t.Instruction
	if insn < 0 || t.Slot < 0 {
		return errors.New("instruction and slot must not be negative")
	}
	switch {
	case t.Method == "":
		reg.DeclareClassTarget(owner, kind, insn, t.Slot)
	case kind == constprop.StackTarget:
		reg.DeclareStackValue(owner, t.Method, t.Descriptor, insn, t.Slot)
	default:
		reg.DeclareLocalVariable(owner, t.Method, t.Descriptor, insn, t.Slot)
	}
	return nil
}

// ParseTarget parses the command-line form
//
//	class.method(desc):insn:slot[:stack]
//
// e.g. "com/example/Test.test(I)V:12:4".
func ParseTarget(s string) (Target, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return Target{}, fmt.Errorf("target %q: missing method descriptor", s)
	}
	dot := strings.LastIndexByte(s[:open], '.')
	if dot <= 0 || dot == open-1 {
		return Target{}, fmt.Errorf("target %q: want class.method(desc)", s)
	}
	rest := s[open:]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return Target{}, fmt.Errorf("target %q: missing instruction and slot", s)
	}
	t := Target{
		Class:      s[:dot],
		Method:     s[dot+1 : open],
		Descriptor: rest[:colon],
	}

	parts := strings.Split(rest[colon+1:], ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Target{}, fmt.Errorf("target %q: want insn:slot[:stack]", s)
	}
	insn, err := strconv.Atoi(parts[0])
	if err != nil {
		return Target{}, fmt.Errorf("target %q: bad instruction: %w", s, err)
	}
	t.Instruction = &insn
	if t.Slot, err = strconv.Atoi(parts[1]); err != nil {
		return Target{}, fmt.Errorf("target %q: bad slot: %w", s, err)
	}
	if len(parts) == 3 {
		t.Kind = parts[2]
		if _, err := t.kind(); err != nil {
			return Target{}, fmt.Errorf("target %q: %w", s, err)
		}
	}
	return t, nil
}
