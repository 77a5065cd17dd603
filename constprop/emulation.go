package constprop

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/chazu/linkopt/classfile"
)

// Emulation models a side-effect free library method. receiver is nil
// for static methods and constructors.
type Emulation func(receiver Constant, args []Constant) (Constant, bool)

// EmulationTable maps exact owner.name+descriptor keys to emulations.
// It is filled before analysis and only read afterwards.
type EmulationTable struct {
	entries map[string]Emulation
}

// NewEmulationTable returns a table holding the built-in emulations.
func NewEmulationTable() *EmulationTable {
	t := &EmulationTable{entries: make(map[string]Emulation)}
	registerBuiltins(t)
	return t
}

// Register adds or replaces the emulation for owner.name desc.
func (t *EmulationTable) Register(owner, name, desc string, fn Emulation) {
	t.entries[emulationKey(owner, name, desc)] = fn
}

// Lookup finds the emulation for owner.name desc. A nil table has none.
func (t *EmulationTable) Lookup(owner, name, desc string) (Emulation, bool) {
	if t == nil {
		return nil, false
	}
	fn, ok := t.entries[emulationKey(owner, name, desc)]
	return fn, ok
}

// Len returns the number of registered emulations.
func (t *EmulationTable) Len() int {
	return len(t.entries)
}

func emulationKey(owner, name, desc string) string {
	return owner + "." + name + desc
}

func registerBuiltins(t *EmulationTable) {
	// String -> ClassDesc
	t.Register("java/lang/Class", "forName", "(Ljava/lang/String;)Ljava/lang/Class;",
		func(_ Constant, args []Constant) (Constant, bool) {
			s, ok := args[0].(String)
			if !ok {
				return nil, false
			}
			return ClassForName(string(s))
		})

	// ClassDesc -> String
	t.Register("java/lang/Class", "getName", "()Ljava/lang/String;",
		func(recv Constant, _ []Constant) (Constant, bool) {
			c, ok := recv.(ClassDesc)
			if !ok {
				return nil, false
			}
			return String(DisplayName(string(c))), true
		})

	t.Register("java/lang/Integer", "parseInt", "(Ljava/lang/String;)I",
		func(_ Constant, args []Constant) (Constant, bool) {
			s, ok := args[0].(String)
			if !ok {
				return nil, false
			}
			n, err := strconv.ParseInt(string(s), 10, 32)
			if err != nil {
				return nil, false
			}
			return Int(n), true
		})

	t.Register("java/lang/Long", "parseLong", "(Ljava/lang/String;)J",
		func(_ Constant, args []Constant) (Constant, bool) {
			s, ok := args[0].(String)
			if !ok {
				return nil, false
			}
			n, err := strconv.ParseInt(string(s), 10, 64)
			if err != nil {
				return nil, false
			}
			return Long(n), true
		})

	t.Register("java/lang/Float", "parseFloat", "(Ljava/lang/String;)F",
		func(_ Constant, args []Constant) (Constant, bool) {
			s, ok := args[0].(String)
			if !ok {
				return nil, false
			}
			f, ok := parseJavaFloat(string(s), 32)
			if !ok {
				return nil, false
			}
			return Float(float32(f)), true
		})

	t.Register("java/lang/Double", "parseDouble", "(Ljava/lang/String;)D",
		func(_ Constant, args []Constant) (Constant, bool) {
			s, ok := args[0].(String)
			if !ok {
				return nil, false
			}
			f, ok := parseJavaFloat(string(s), 64)
			if !ok {
				return nil, false
			}
			return Double(f), true
		})

	// new String(String) yields its argument
	t.Register("java/lang/String", "<init>", "(Ljava/lang/String;)V",
		func(_ Constant, args []Constant) (Constant, bool) {
			s, ok := args[0].(String)
			return s, ok
		})

	t.Register("java/lang/String", "length", "()I",
		func(recv Constant, _ []Constant) (Constant, bool) {
			s, ok := recv.(String)
			if !ok {
				return nil, false
			}
			return Int(len(utf16.Encode([]rune(string(s))))), true
		})

	t.Register("java/lang/String", "concat", "(Ljava/lang/String;)Ljava/lang/String;",
		func(recv Constant, args []Constant) (Constant, bool) {
			s, ok1 := recv.(String)
			o, ok2 := args[0].(String)
			if !ok1 || !ok2 {
				return nil, false
			}
			return s + o, true
		})

	t.Register("java/lang/String", "valueOf", "(I)Ljava/lang/String;",
		func(_ Constant, args []Constant) (Constant, bool) {
			n, ok := args[0].(Int)
			if !ok {
				return nil, false
			}
			return String(n.String()), true
		})
}

// ClassForName turns a binary class name into its class descriptor. It
// rejects names Class.forName could never load by that spelling.
func ClassForName(name string) (ClassDesc, bool) {
	if !ValidBinaryName(name) {
		return "", false
	}
	return ClassDesc(classfile.ObjectType(classfile.InternalName(name))), true
}

// ValidBinaryName reports whether name is a dotted binary class name such
// as "com.example.Outer$Inner".
func ValidBinaryName(name string) bool {
	if name == "" {
		return false
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return false
		}
		for _, r := range seg {
			if r == '/' || r == ';' || r == '[' || unicode.IsSpace(r) {
				return false
			}
		}
	}
	return true
}

// parseJavaFloat follows Float.parseFloat / Double.parseDouble: leading
// and trailing control characters and spaces are ignored, NaN and Infinity
// are case sensitive, and an f/F/d/D suffix is allowed.
func parseJavaFloat(s string, bits int) (float64, bool) {
	s = strings.TrimFunc(s, func(r rune) bool { return r <= ' ' })
	sign := ""
	body := s
	if strings.HasPrefix(body, "+") || strings.HasPrefix(body, "-") {
		sign, body = body[:1], body[1:]
	}
	switch body {
	case "NaN":
		return math.NaN(), true
	case "Infinity":
		if sign == "-" {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	case "":
		return 0, false
	}
	if strings.ContainsAny(body, "iInN_") {
		return 0, false
	}
	if last := body[len(body)-1]; last == 'f' || last == 'F' || last == 'd' || last == 'D' {
		isHex := strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X")
		if !isHex || strings.ContainsAny(body, "pP") {
			body = body[:len(body)-1]
		}
	}
	f, err := strconv.ParseFloat(sign+body, bits)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}
