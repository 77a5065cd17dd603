package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/chazu/linkopt/classfile"
	"github.com/chazu/linkopt/constprop"
	"github.com/chazu/linkopt/rewrite"
)

func noColor(t *testing.T) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

// testPool holds com/example/Main.run()V, which loads com.example.Plugin
// inside a ClassNotFoundException handler.
func testPool() *classfile.Pool {
	b := classfile.NewMethodBuilder(classfile.AccPublic|classfile.AccStatic, "run", "()V")
	start, end, handler, done := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Mark(start).
		Line(7).
		LdcString("com.example.Plugin").
		Invoke(classfile.OpInvokestatic, "java/lang/Class", "forName", "(Ljava/lang/String;)Ljava/lang/Class;").
		Op(classfile.OpPop).
		Mark(end).
		Jump(classfile.OpGoto, done).
		Mark(handler).
		Var(classfile.OpAstore, 0).
		Op(classfile.OpAconstNull).
		Op(classfile.OpAthrow).
		Mark(done).
		Op(classfile.OpReturn).
		TryCatch(start, end, handler, rewrite.ClassNotFound)

	pool := classfile.NewPool()
	pool.Add("app", classfile.NewClass(classfile.AccPublic, "com/example/Main", b.Build()))
	pool.Add("app", classfile.NewClass(classfile.AccPublic, "com/example/Plugin"))
	return pool
}

func TestDescribe(t *testing.T) {
	noColor(t)
	if got := describe(constprop.Known(constprop.Int(41))); got != "Integer 41" {
		t.Errorf("describe(41) = %q, want %q", got, "Integer 41")
	}
	if got := describe(constprop.Unknown(1)); got != "UNRESOLVED" {
		t.Errorf("describe(unknown) = %q, want UNRESOLVED", got)
	}
	got := describe(constprop.Parameter(1, 2))
	if !strings.HasPrefix(got, "UNRESOLVED") || !strings.Contains(got, "slot 2") {
		t.Errorf("describe(param) = %q, want UNRESOLVED with slot 2", got)
	}
}

func TestTargetListFlag(t *testing.T) {
	var l targetList
	if err := l.Set("com/example/Main.run()V:3:0:stack"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := l.Set("bogus"); err == nil {
		t.Error("Set(bogus) should fail")
	}
	if len(l) != 1 || l[0].Method != "run" || l[0].Kind != "stack" {
		t.Errorf("targets = %+v", l)
	}
}

func TestAnalysisMethods(t *testing.T) {
	pool := testPool()
	reg := constprop.NewRegistry()
	reg.DeclareStackValue("com/example/Main", "run", "()V", 3, 0)
	reg.DeclareClassTarget("com/example/Main", constprop.LocalTarget, 0, 0)
	reg.DeclareClassTarget("com/example/Gone", constprop.LocalTarget, 0, 0)

	refs := analysisMethods(reg, pool)
	if len(refs) != 1 {
		t.Fatalf("analysisMethods = %v, want one method", refs)
	}
	if refs[0] != (methodRef{"com/example/Main", "run", "()V"}) {
		t.Errorf("refs[0] = %v", refs[0])
	}
}

func TestPrintAbstraction(t *testing.T) {
	noColor(t)
	pool := testPool()
	engine := constprop.NewEngine(pool)
	engine.Registry().DeclareStackValue("com/example/Main", "run", "()V", 4, 0)

	a, err := engine.Resolve("com/example/Main", "run", "()V")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	var buf bytes.Buffer
	printAbstraction(&buf, a)
	out := buf.String()
	if !strings.Contains(out, "String com.example.Plugin") {
		t.Errorf("output = %q, want the class name constant", out)
	}
}

func TestDisassemble(t *testing.T) {
	pool := testPool()
	var buf bytes.Buffer
	if err := disassemble(&buf, pool, []string{"com.example.Main"}); err != nil {
		t.Fatalf("disassemble failed: %v", err)
	}
	if !strings.Contains(buf.String(), "; module app") {
		t.Errorf("output = %q, want module header", buf.String())
	}
	if err := disassemble(&buf, pool, []string{"com.example.Nope"}); err == nil {
		t.Error("unknown class should fail")
	}
}

func TestRewriteCommand(t *testing.T) {
	noColor(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.cbor")
	out := filepath.Join(dir, "out.cbor")
	db := filepath.Join(dir, "report.db")
	if err := classfile.WritePoolFile(in, testPool()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "linkopt.toml"), []byte("[rewrite]\nmode = \"module\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := handleRewriteCommand([]string{"-config", dir, "-report", db, in, out}); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	pool, err := classfile.ReadPoolFile(out)
	if err != nil {
		t.Fatal(err)
	}
	c, _, ok := pool.Find("com/example/Main")
	if !ok {
		t.Fatal("Main missing from output")
	}
	m := c.Method("run", "()V")
	for i := range m.Instructions {
		if m.Instructions[i].Matches(classfile.OpInvokestatic, "java/lang/Class", "forName", "(Ljava/lang/String;)Ljava/lang/Class;") {
			t.Errorf("forName still present at %d", i)
		}
	}
	if len(m.TryCatch) != 0 {
		t.Errorf("TryCatch = %v, want none", m.TryCatch)
	}
	if _, err := os.Stat(db); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

func TestPrintSummary(t *testing.T) {
	noColor(t)
	res := &rewrite.Result{Decisions: []rewrite.Decision{
		{Class: "a/A", Method: "m()V", Insn: 2, Line: 9, Target: "x.Y", Outcome: rewrite.Rewritten, Reason: "same module"},
		{Class: "a/A", Method: "n()V", Insn: 1, Outcome: rewrite.Unresolved, Reason: "class name is not a constant string"},
	}}
	var buf bytes.Buffer
	printSummary(&buf, res, rewrite.ModeGlobal)
	out := buf.String()
	for _, want := range []string{
		"a/A.m()V @2 (line 9): rewritten x.Y (same module)",
		"a/A.n()V @1: unresolved ?",
		"global mode: 1 of 2 call site(s) rewritten",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
