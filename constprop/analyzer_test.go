package constprop

import (
	"errors"
	"testing"

	"github.com/chazu/linkopt/classfile"
)

func analyze(t *testing.T, m *classfile.Method, facts Facts) Frames {
	t.Helper()
	frames, err := Analyze(fixtureOwner, m, facts, NewEmulationTable())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return frames
}

func localAt(t *testing.T, frames Frames, insn, slot int) *Value {
	t.Helper()
	f, _ := frames.NearestAt(insn)
	if f == nil {
		t.Fatalf("no frame at or before %d", insn)
	}
	v, err := f.Local(slot)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// ============ Control Flow Tests ============

func TestAnalyzeLoop(t *testing.T) {
	// static int count(int n) { int i = 0; while (i < n) i++; return i; }
	b := classfile.NewMethodBuilder(classfile.AccStatic, "count", "(I)I")
	loop, done := b.NewLabel(), b.NewLabel()
	b.Op(classfile.OpIconst0).Var(classfile.OpIstore, 1)
	b.Mark(loop)
	b.Var(classfile.OpIload, 1).Var(classfile.OpIload, 0).Jump(classfile.OpIfIcmpge, done)
	b.Iinc(1, 1).Jump(classfile.OpGoto, loop)
	ret := b.Len()
	b.Mark(done)
	b.Var(classfile.OpIload, 1).Op(classfile.OpIreturn)
	m := b.Build()

	frames := analyze(t, m, nil)
	if v := localAt(t, frames, ret, 1); v.Resolved() {
		t.Errorf("loop counter = %v, want unresolved", v)
	}
	if v := localAt(t, frames, 2, 1); v.Resolved() {
		t.Errorf("counter at loop head = %v, want unresolved", v)
	}

	frames = analyze(t, m, Facts{0: Int(0)})
	if v := localAt(t, frames, ret, 0); !v.Resolved() {
		t.Error("fact for n should resolve the parameter")
	}
}

func TestAnalyzeBranchJoin(t *testing.T) {
	build := func(x, y int32) (*classfile.Method, int) {
		b := classfile.NewMethodBuilder(classfile.AccStatic, "pick", "(I)I")
		other, join := b.NewLabel(), b.NewLabel()
		b.Var(classfile.OpIload, 0).Jump(classfile.OpIfne, other)
		b.Int(classfile.OpBipush, x).Var(classfile.OpIstore, 1).Jump(classfile.OpGoto, join)
		b.Mark(other)
		b.Int(classfile.OpBipush, y).Var(classfile.OpIstore, 1)
		at := b.Len()
		b.Mark(join)
		b.Var(classfile.OpIload, 1).Op(classfile.OpIreturn)
		return b.Build(), at
	}

	m, at := build(5, 5)
	if v := localAt(t, analyze(t, m, nil), at, 1); !v.Resolved() {
		t.Errorf("equal constants on both branches = %v, want 5", v)
	} else if c, _ := v.Describe(); c != Int(5) {
		t.Errorf("join = %v, want 5", c)
	}

	m, at = build(5, 6)
	if v := localAt(t, analyze(t, m, nil), at, 1); v.Resolved() {
		t.Errorf("different constants on both branches = %v, want unresolved", v)
	}
}

func TestAnalyzeTableSwitch(t *testing.T) {
	b := classfile.NewMethodBuilder(classfile.AccStatic, "sw", "(I)I")
	c0, c1, dflt, join := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Var(classfile.OpIload, 0).TableSwitch(0, dflt, c0, c1)
	b.Mark(c0).Op(classfile.OpIconst3).Var(classfile.OpIstore, 1).Jump(classfile.OpGoto, join)
	b.Mark(c1).Op(classfile.OpIconst3).Var(classfile.OpIstore, 1).Jump(classfile.OpGoto, join)
	b.Mark(dflt).Op(classfile.OpIconst3).Var(classfile.OpIstore, 1)
	at := b.Len()
	b.Mark(join).Var(classfile.OpIload, 1).Op(classfile.OpIreturn)
	m := b.Build()

	frames := analyze(t, m, nil)
	if c, ok := localAt(t, frames, at, 1).Describe(); !ok || c != Int(3) {
		t.Errorf("switch join = %v, want 3", c)
	}
	for _, l := range []classfile.Label{c0, c1, dflt} {
		if !frames.Reachable(m.LabelIndex(l)) {
			t.Errorf("switch target L%d unreachable", l)
		}
	}
}

func TestAnalyzeUnreachable(t *testing.T) {
	b := classfile.NewMethodBuilder(classfile.AccStatic, "dead", "()V")
	skip := b.NewLabel()
	b.Jump(classfile.OpGoto, skip)
	b.Op(classfile.OpIconst1).Op(classfile.OpPop)
	b.Mark(skip).Op(classfile.OpReturn)
	frames := analyze(t, b.Build(), nil)

	if frames.Reachable(1) || frames.Reachable(2) {
		t.Error("instructions after goto should have no frame")
	}
	if !frames.Reachable(3) {
		t.Error("goto target should be reachable")
	}
}

func TestAnalyzeExceptionHandler(t *testing.T) {
	b := classfile.NewMethodBuilder(classfile.AccStatic, "guarded", "()V")
	start, end, handler, done := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Op(classfile.OpIconst2).Var(classfile.OpIstore, 0)
	b.Mark(start)
	b.LdcString("com.example.A").
		Invoke(classfile.OpInvokestatic, "java/lang/Class", "forName", "(Ljava/lang/String;)Ljava/lang/Class;").
		Op(classfile.OpPop)
	b.Mark(end).Jump(classfile.OpGoto, done)
	b.Mark(handler).Var(classfile.OpAstore, 1)
	b.Mark(done).Op(classfile.OpReturn)
	b.TryCatch(start, end, handler, "java/lang/ClassNotFoundException")
	m := b.Build()

	frames := analyze(t, m, nil)
	hi := m.LabelIndex(handler)
	f := frames.At(hi)
	if f == nil {
		t.Fatal("handler should be reachable through the exception edge")
	}
	if f.StackSize() != 1 {
		t.Errorf("handler stack size = %d, want 1", f.StackSize())
	}
	if c, ok := localAt(t, frames, hi, 0).Describe(); !ok || c != Int(2) {
		t.Errorf("local 0 in handler = %v, want 2", c)
	}
}

// ============ Transfer Function Tests ============

func TestAnalyzeStackOps(t *testing.T) {
	b := classfile.NewMethodBuilder(classfile.AccStatic, "stack", "()V")
	b.LdcLong(3).Op(classfile.OpDup2).Op(classfile.OpLadd).Var(classfile.OpLstore, 0) // 6L
	b.Op(classfile.OpIconst1).Op(classfile.OpIconst2).Op(classfile.OpDupX1)           // 2 1 2
	b.Op(classfile.OpIsub).Op(classfile.OpIadd).Var(classfile.OpIstore, 2)            // 2 + (1-2)
	b.Op(classfile.OpIconst4).Op(classfile.OpIconst5).Op(classfile.OpSwap).Op(classfile.OpIsub).
		Var(classfile.OpIstore, 3) // 5 - 4
	at := b.Len()
	b.Op(classfile.OpReturn)
	frames := analyze(t, b.Build(), nil)

	tests := []struct {
		slot int
		want Constant
	}{
		{0, Long(6)},
		{2, Int(1)},
		{3, Int(1)},
	}
	for _, tt := range tests {
		c, ok := localAt(t, frames, at, tt.slot).Describe()
		if !ok || !Equal(c, tt.want) {
			t.Errorf("local %d = %v, want %v", tt.slot, c, tt.want)
		}
	}
}

func TestAnalyzeIinc(t *testing.T) {
	b := classfile.NewMethodBuilder(classfile.AccStatic, "inc", "()V")
	b.Int(classfile.OpBipush, 40).Var(classfile.OpIstore, 0).Iinc(0, 2)
	at := b.Len()
	b.Op(classfile.OpReturn)
	if c, _ := localAt(t, analyze(t, b.Build(), nil), at, 0).Describe(); c != Int(42) {
		t.Errorf("iinc = %v, want 42", c)
	}
}

func TestAnalyzeConstructor(t *testing.T) {
	b := classfile.NewMethodBuilder(classfile.AccStatic, "ctor", "()V")
	b.Type(classfile.OpNew, "java/lang/String").Op(classfile.OpDup).LdcString("x").
		Invoke(classfile.OpInvokespecial, "java/lang/String", "<init>", "(Ljava/lang/String;)V").
		Var(classfile.OpAstore, 0)
	b.Type(classfile.OpNew, "java/lang/Object").Op(classfile.OpDup).
		Invoke(classfile.OpInvokespecial, "java/lang/Object", "<init>", "()V").
		Var(classfile.OpAstore, 1)
	at := b.Len()
	b.Op(classfile.OpReturn)
	frames := analyze(t, b.Build(), nil)

	if c, ok := localAt(t, frames, at, 0).Describe(); !ok || c != String("x") {
		t.Errorf("new String(\"x\") = %v, want x", c)
	}
	if localAt(t, frames, at, 1).Resolved() {
		t.Error("new Object() should be unresolved")
	}
	if f := frames.At(at); f.StackSize() != 0 {
		t.Errorf("stack size = %d, want 0", f.StackSize())
	}
}

func TestAnalyzeUnknownValues(t *testing.T) {
	b := classfile.NewMethodBuilder(classfile.AccStatic, "heap", "()V")
	b.Field(classfile.OpGetstatic, "com/example/C", "J", "J").Var(classfile.OpLstore, 0)
	b.Op(classfile.OpIconst2).Int(classfile.OpNewarray, 10).Op(classfile.OpArraylength).Var(classfile.OpIstore, 2)
	b.Invoke(classfile.OpInvokestatic, "com/example/C", "now", "()D").Var(classfile.OpDstore, 3)
	at := b.Len()
	b.Op(classfile.OpReturn)
	frames := analyze(t, b.Build(), nil)

	for _, slot := range []int{0, 2, 3} {
		v := localAt(t, frames, at, slot)
		if v.Resolved() || v.IsUninitialized() {
			t.Errorf("local %d = %v, want an unresolved value", slot, v)
		}
	}
	if localAt(t, frames, at, 0).Width() != 2 || localAt(t, frames, at, 3).Width() != 2 {
		t.Error("long and double unknowns should be two slots wide")
	}
}

// ============ Error Tests ============

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name        string
		build       func(b *classfile.MethodBuilder)
		unsupported bool
	}{
		{"empty type literal", func(b *classfile.MethodBuilder) {
			b.LdcType("").Op(classfile.OpPop).Op(classfile.OpReturn)
		}, true},
		{"subroutine", func(b *classfile.MethodBuilder) {
			l := b.NewLabel()
			b.Jump(classfile.OpJsr, l).Op(classfile.OpReturn)
			b.Mark(l).Var(classfile.OpAstore, 0).Var(classfile.OpRet, 0)
		}, true},
		{"stack underflow", func(b *classfile.MethodBuilder) {
			b.Op(classfile.OpPop).Op(classfile.OpReturn)
		}, false},
		{"falls off the end", func(b *classfile.MethodBuilder) {
			b.Op(classfile.OpNop)
		}, false},
		{"missing label", func(b *classfile.MethodBuilder) {
			b.Jump(classfile.OpGoto, classfile.Label(99))
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := classfile.NewMethodBuilder(classfile.AccStatic, "bad", "()V")
			tt.build(b)
			_, err := Analyze(fixtureOwner, b.Build(), nil, NewEmulationTable())
			if err == nil {
				t.Fatal("expected an error")
			}
			var aerr *AnalyzerError
			if !errors.As(err, &aerr) {
				t.Fatalf("error %v is not an *AnalyzerError", err)
			}
			if aerr.Owner != fixtureOwner || aerr.Method != "bad()V" {
				t.Errorf("error location = %s.%s", aerr.Owner, aerr.Method)
			}
			if got := errors.Is(err, ErrUnsupported); got != tt.unsupported {
				t.Errorf("errors.Is(ErrUnsupported) = %v, want %v", got, tt.unsupported)
			}
		})
	}
}

func TestAnalyzeEmptyMethod(t *testing.T) {
	m := &classfile.Method{Access: classfile.AccAbstract, Name: "abs", Desc: "()V"}
	frames := analyze(t, m, nil)
	if len(frames) != 0 {
		t.Errorf("len(frames) = %d, want 0", len(frames))
	}
}
