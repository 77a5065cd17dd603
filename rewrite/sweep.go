package rewrite

import (
	"github.com/chazu/linkopt/classfile"
	"github.com/chazu/linkopt/constprop"
)

// sweep removes every instruction the analyzer cannot reach, keeping labels
// so branches, exception entries and local-variable ranges stay valid, then
// drops exception entries whose range no longer covers a real instruction.
// It returns the number of instructions removed.
func sweep(owner string, m *classfile.Method, emulations *constprop.EmulationTable) (int, error) {
	if !m.HasCode() {
		return 0, nil
	}
	frames, err := constprop.Analyze(owner, m, nil, emulations)
	if err != nil {
		return 0, err
	}

	kept := make([]classfile.Instruction, 0, len(m.Instructions))
	removed := 0
	for i, in := range m.Instructions {
		if frames.At(i) == nil && !in.IsLabel() {
			if !in.IsPseudo() {
				removed++
			}
			continue
		}
		kept = append(kept, in)
	}
	m.Instructions = kept
	m.TryCatch = liveTryCatch(m)
	return removed, nil
}

// liveTryCatch keeps the exception entries that still guard at least one
// non-pseudo instruction.
func liveTryCatch(m *classfile.Method) []classfile.TryCatchBlock {
	labels := m.Labels()
	var out []classfile.TryCatchBlock
	for _, tc := range m.TryCatch {
		start, ok1 := labels[tc.Start]
		end, ok2 := labels[tc.End]
		if !ok1 || !ok2 {
			continue
		}
		for i := start; i < end; i++ {
			if !m.Instructions[i].IsPseudo() {
				out = append(out, tc)
				break
			}
		}
	}
	return out
}
