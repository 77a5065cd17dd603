package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/linkopt/classfile"
	"github.com/chazu/linkopt/constprop"
	"github.com/chazu/linkopt/rewrite"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[rewrite]
mode = "global"

[analysis]
max-depth = 3
interprocedural = false

[report]
path = "out/report.db"

[[target]]
class = "com/example/Test"
method = "test"
descriptor = "(I)V"
local = "a"
line = 10

[[target]]
class = "com.example.Test"
instruction = 12
slot = 4
kind = "stack"
`)

	m, err := Load(dir)
	require.NoError(t, err)

	mode, err := m.Mode()
	require.NoError(t, err)
	assert.Equal(t, rewrite.ModeGlobal, mode)
	assert.Equal(t, 3, m.Analysis.MaxDepth)
	assert.False(t, m.Analysis.Interprocedural)
	assert.Equal(t, filepath.Join(m.Dir, "out", "report.db"), m.ReportPath())

	require.Len(t, m.Targets, 2)
	assert.Equal(t, "a", m.Targets[0].Local)
	assert.Equal(t, 10, m.Targets[0].Line)
	assert.Nil(t, m.Targets[0].Instruction)
	require.NotNil(t, m.Targets[1].Instruction)
	assert.Equal(t, 12, *m.Targets[1].Instruction)
	assert.Equal(t, "stack", m.Targets[1].Kind)
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[report]\npath = \"/tmp/r.db\"\n")

	m, err := Load(dir)
	require.NoError(t, err)
	mode, err := m.Mode()
	require.NoError(t, err)
	assert.Equal(t, rewrite.ModeModule, mode)
	assert.Equal(t, constprop.DefaultMaxDepth, m.Analysis.MaxDepth)
	assert.True(t, m.Analysis.Interprocedural)
	assert.Equal(t, "/tmp/r.db", m.ReportPath())
	assert.Len(t, m.EngineOptions(), 2)
}

func TestLoadManifestErrors(t *testing.T) {
	tests := map[string]string{
		"bad mode":  "[rewrite]\nmode = \"sometimes\"\n",
		"negative":  "[analysis]\nmax-depth = -1\n",
		"bad toml":  "[rewrite\n",
		"bad types": "[analysis]\nmax-depth = \"deep\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, content)
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}

	_, err := Load(t.TempDir())
	assert.Error(t, err, "missing file")
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(subDir, 0755))
	writeManifest(t, dir, "[rewrite]\nmode = \"global\"\n")

	m, err := FindAndLoad(subDir)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "global", m.Rewrite.Mode)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, m.Dir)
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestDefault(t *testing.T) {
	m := Default()
	mode, err := m.Mode()
	require.NoError(t, err)
	assert.Equal(t, rewrite.ModeModule, mode)
	assert.Empty(t, m.ReportPath())
}

// targetPool holds com/example/Test with static test(I)V whose parameter
// a is live at line 10.
func targetPool() (*classfile.Pool, *classfile.Method) {
	b := classfile.NewMethodBuilder(classfile.AccStatic, "test", "(I)V")
	start, end := b.NewLabel(), b.NewLabel()
	b.Mark(start).
		Line(10).
		Var(classfile.OpIload, 0).
		Op(classfile.OpPop).
		Line(11).
		Op(classfile.OpReturn).
		Mark(end).
		Local("a", "I", start, end, 0)
	m := b.Build()

	pool := classfile.NewPool()
	pool.Add("app", classfile.NewClass(classfile.AccPublic, "com/example/Test", m))
	return pool, m
}

func intp(i int) *int { return &i }

func TestApplyTargets(t *testing.T) {
	pool, m := targetPool()
	mf := &Manifest{Targets: []Target{
		{Class: "com/example/Test", Method: "test", Descriptor: "(I)V", Local: "a", Line: 10},
		{Class: "com/example/Test", Method: "test", Descriptor: "(I)V", Instruction: intp(3), Slot: 0, Kind: "stack"},
		{Class: "com.example.Test", Instruction: intp(1), Slot: 0},
	}}

	reg := constprop.NewRegistry()
	require.NoError(t, mf.ApplyTargets(reg, pool))

	targets := reg.Targets("com/example/Test", m)
	require.Len(t, targets, 3)

	var named, stack, class bool
	for _, tg := range targets {
		switch {
		case tg.Name == "a":
			named = tg.Insn == m.LineIndex(10) && tg.Slot == 0
		case tg.Kind == constprop.StackTarget:
			stack = tg.Insn == 3
		case tg.ClassScoped():
			class = tg.Insn == 1
		}
	}
	assert.True(t, named, "named local")
	assert.True(t, stack, "stack value")
	assert.True(t, class, "class target")
}

func TestApplyTargetsErrors(t *testing.T) {
	pool, _ := targetPool()
	mf := &Manifest{Targets: []Target{
		{Method: "test"},
		{Class: "com/example/Test", Method: "test", Descriptor: "(I)V", Local: "zz", Line: 10},
		{Class: "com/example/Missing", Method: "test", Descriptor: "(I)V", Local: "a", Line: 10},
		{Class: "com/example/Test", Method: "test", Descriptor: "(I)V"},
		{Class: "com/example/Test", Instruction: intp(1), Kind: "heap"},
		{Class: "com/example/Test", Local: "a"},
	}}

	err := mf.ApplyTargets(constprop.NewRegistry(), pool)
	require.Error(t, err)
	for i := 1; i <= len(mf.Targets); i++ {
		assert.Contains(t, err.Error(), "target "+string(rune('0'+i))+":")
	}

	var cfg *constprop.ConfigError
	assert.ErrorAs(t, err, &cfg, "unknown variable surfaces as a config error")
}

func TestParseTarget(t *testing.T) {
	tg, err := ParseTarget("com/example/Test.test(I)V:12:4")
	require.NoError(t, err)
	assert.Equal(t, "com/example/Test", tg.Class)
	assert.Equal(t, "test", tg.Method)
	assert.Equal(t, "(I)V", tg.Descriptor)
	require.NotNil(t, tg.Instruction)
	assert.Equal(t, 12, *tg.Instruction)
	assert.Equal(t, 4, tg.Slot)
	assert.Empty(t, tg.Kind)

	tg, err = ParseTarget("com/example/Test.<init>(Ljava/lang/String;J)V:3:0:stack")
	require.NoError(t, err)
	assert.Equal(t, "<init>", tg.Method)
	assert.Equal(t, "(Ljava/lang/String;J)V", tg.Descriptor)
	assert.Equal(t, "stack", tg.Kind)

	for _, bad := range []string{
		"com/example/Test.test",
		"test(I)V:1:2",
		"com/example/Test.(I)V:1:2",
		"com/example/Test.test(I)V",
		"com/example/Test.test(I)V:1",
		"com/example/Test.test(I)V:x:1",
		"com/example/Test.test(I)V:1:y",
		"com/example/Test.test(I)V:1:2:heap",
		"com/example/Test.test(I)V:1:2:stack:extra",
	} {
		_, err := ParseTarget(bad)
		assert.Error(t, err, bad)
	}
}
