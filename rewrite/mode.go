package rewrite

import (
	"fmt"
	"strings"
)

// Mode selects which Class.forName call sites may be rewritten.
type Mode uint8

const (
	// ModeModule rewrites only when the target class is visible from the
	// caller's module: in the same module with suitable access, or exported
	// to and read by the caller's module.
	ModeModule Mode = iota
	// ModeGlobal rewrites every call site with a constant class name.
	ModeGlobal
)

var modeNames = [...]string{
	ModeModule: "module",
	ModeGlobal: "global",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// ParseMode parses "global" or "module", ignoring case. The empty string
// selects the default, ModeModule.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "module":
		return ModeModule, nil
	case "global":
		return ModeGlobal, nil
	}
	return ModeModule, fmt.Errorf("unknown rewrite mode %q (want global or module)", s)
}
