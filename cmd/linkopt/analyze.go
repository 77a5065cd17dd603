package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/linkopt/classfile"
	"github.com/chazu/linkopt/constprop"
	"github.com/chazu/linkopt/manifest"
)

// targetList collects repeated -target flags.
type targetList []manifest.Target

func (l *targetList) String() string {
	return fmt.Sprintf("%d target(s)", len(*l))
}

func (l *targetList) Set(s string) error {
	t, err := manifest.ParseTarget(s)
	if err != nil {
		return err
	}
	*l = append(*l, t)
	return nil
}

type methodRef struct {
	owner, name, desc string
}

func handleAnalyzeCommand(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	var targets targetList
	fs.Var(&targets, "target", "Target as class.method(desc):insn:slot[:stack] (repeatable)")
	local := fs.Bool("local", false, "Analyze each method alone, without constants from its callers")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: linkopt analyze [options] <pool.cbor>\n\n")
		fmt.Fprintf(os.Stderr, "Prints the constant reaching each target declared with -target or in linkopt.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	common.apply()

	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("analyze needs a pool")
	}
	mf, err := common.loadManifest()
	if err != nil {
		return err
	}
	pool, err := classfile.ReadPoolFile(fs.Arg(0))
	if err != nil {
		return err
	}

	opts := mf.EngineOptions()
	if *local {
		opts = append(opts, constprop.WithInterprocedural(false))
	}
	engine := constprop.NewEngine(pool, opts...)
	reg := engine.Registry()
	if err := mf.ApplyTargets(reg, pool); err != nil {
		return err
	}
	for i := range targets {
		if err := targets[i].Apply(reg, pool); err != nil {
			return fmt.Errorf("-target: %w", err)
		}
	}
	if reg.Len() == 0 {
		return errors.New("no targets: use -target or [[target]] in linkopt.toml")
	}

	for _, ref := range analysisMethods(reg, pool) {
		a, err := engine.Resolve(ref.owner, ref.name, ref.desc)
		if err != nil {
			return err
		}
		printAbstraction(os.Stdout, a)
	}
	return nil
}

// analysisMethods lists the methods with targets: method-scoped ones first,
// then every method with code of classes that have class-scoped targets.
func analysisMethods(reg *constprop.Registry, pool *classfile.Pool) []methodRef {
	var out []methodRef
	seen := make(map[methodRef]bool)
	add := func(r methodRef) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, t := range reg.Methods() {
		add(methodRef{t.Owner, t.Method, t.Desc})
	}
	for _, owner := range reg.Classes() {
		c, _, ok := pool.Find(owner)
		if !ok {
			continue
		}
		for _, m := range c.Methods {
			if m.HasCode() {
				add(methodRef{owner, m.Name, m.Desc})
			}
		}
	}
	return out
}

func printAbstraction(w io.Writer, a *constprop.MethodAbstraction) {
	fmt.Fprintf(w, "%s\n", bold(classfile.MethodRef(a.Owner, a.Name, a.Desc)))
	for _, o := range a.Outputs {
		fmt.Fprintf(w, "  %s = %s\n", o.Target, describe(o.Value))
	}
}

// describe renders a value as "<Kind> <constant>" or UNRESOLVED.
func describe(v *constprop.Value) string {
	if c, ok := v.Describe(); ok {
		return fmt.Sprintf("%s %s", c.Kind(), green(c.String()))
	}
	s := red("UNRESOLVED")
	if params := v.Parameters(); len(params) > 0 {
		names := make([]string, len(params))
		for i, p := range params {
			names[i] = fmt.Sprintf("%d", p)
		}
		s += yellow(fmt.Sprintf(" (depends on parameter slot %s)", strings.Join(names, ", ")))
	}
	return s
}
