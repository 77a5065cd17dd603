package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/linkopt/classfile"
)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeModule, "module": ModeModule, "GLOBAL": ModeGlobal, " Global ": ModeGlobal} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("everywhere")
	assert.Error(t, err)
	assert.Equal(t, "global", ModeGlobal.String())
	assert.Equal(t, "module", Mode(0).String())
}

func TestTightestHandler(t *testing.T) {
	m := buildNested("nested", targetName, targetName)
	h := newHandlerTable(m)
	calls := forNameCalls(m)
	require.Len(t, calls, 2)

	assert.Equal(t, 1, h.tightest(calls[0]), "outer call only has the outer handler")
	assert.Equal(t, 0, h.tightest(calls[1]), "inner handler is tighter")
	assert.Equal(t, -1, h.tightest(len(m.Instructions)-1))
}

func TestHandlerStates(t *testing.T) {
	m := buildNested("nested", targetName, targetName)
	calls := forNameCalls(m)

	h := newHandlerTable(m)
	assert.Empty(t, h.removable(), "untouched handlers stay")

	h.mark(calls[0], true)
	h.mark(calls[1], false)
	assert.Equal(t, []int{1}, h.removable())

	h.mark(calls[1], true)
	assert.Equal(t, []int{1}, h.removable(), "one skipped call pins the handler")
}

func TestTightestIgnoresOtherTypes(t *testing.T) {
	m := buildMultiple()
	h := newHandlerTable(m)
	calls := forNameCalls(m)
	require.Len(t, calls, 1)
	assert.Equal(t, 0, h.tightest(calls[0]))
}

func TestHandlerRegion(t *testing.T) {
	m := buildMultiple()
	// 0 L, 1 ldc, 2 forName, 3 pop, 4 L, 5 goto, 6 L cnfe, 7-12 body,
	// 13 L other, 14-19 body, 20 L done, 21 return
	start, end := HandlerRegion(m, m.TryCatch[0])
	assert.Equal(t, 6, start)
	assert.Equal(t, 13, end, "stops at the next handler")

	start, end = HandlerRegion(m, m.TryCatch[1])
	assert.Equal(t, 13, start)
	assert.Equal(t, 20, end, "stops at the goto target")

	start, end = HandlerRegion(m, classfile.TryCatchBlock{Handler: 99})
	assert.Equal(t, -1, start)
	assert.Equal(t, -1, end)
}

func TestHandlerRegionRunsToEnd(t *testing.T) {
	b := static("tail")
	start, end, handler := b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Mark(start)
	callForName(b, targetName)
	b.Mark(end).Op(classfile.OpReturn)
	b.Mark(handler)
	rethrow(b, 0)
	b.TryCatch(start, end, handler, ClassNotFound)
	m := b.Build()

	s, e := HandlerRegion(m, m.TryCatch[0])
	assert.Equal(t, 6, s)
	assert.Equal(t, len(m.Instructions), e)
}

func TestSweep(t *testing.T) {
	m := buildSimple(targetName)
	m.TryCatch = nil
	n, err := sweep(callerClass, m, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	for _, in := range m.Instructions {
		assert.NotEqual(t, classfile.OpAthrow, in.Op)
	}
	// labels survive so the goto still resolves
	assert.GreaterOrEqual(t, m.LabelIndex(m.Instructions[5].Label), 0)
}

func TestLiveTryCatch(t *testing.T) {
	b := static("empty")
	start, end, handler := b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Mark(start).Mark(end).Op(classfile.OpReturn)
	b.Mark(handler).Op(classfile.OpAthrow)
	b.TryCatch(start, end, handler, ClassNotFound)
	m := b.Build()
	assert.Empty(t, liveTryCatch(m))

	m = buildSimple(targetName)
	assert.Len(t, liveTryCatch(m), 1)
}

func TestDropEntries(t *testing.T) {
	tcs := []classfile.TryCatchBlock{{Type: "a"}, {Type: "b"}, {Type: "c"}}
	assert.Equal(t, []classfile.TryCatchBlock{{Type: "b"}}, dropEntries(tcs, []int{2, 0}))
	assert.Equal(t, tcs, dropEntries(tcs, nil))
}
