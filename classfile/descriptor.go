package classfile

import (
	"fmt"
	"strings"
)

// ArgumentTypes splits a method descriptor into its parameter field
// descriptors: "(IJLjava/lang/String;)V" -> ["I", "J", "Ljava/lang/String;"].
func ArgumentTypes(desc string) ([]string, error) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, fmt.Errorf("malformed method descriptor %q", desc)
	}
	var args []string
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescLen(desc[i:])
		if err != nil {
			return nil, fmt.Errorf("malformed method descriptor %q: %w", desc, err)
		}
		args = append(args, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, fmt.Errorf("malformed method descriptor %q", desc)
	}
	return args, nil
}

// ReturnType returns the return descriptor of a method descriptor.
func ReturnType(desc string) string {
	if i := strings.LastIndexByte(desc, ')'); i >= 0 {
		return desc[i+1:]
	}
	return ""
}

// TypeSize returns the slot width of a field descriptor: 2 for long and
// double, 0 for void, 1 otherwise.
func TypeSize(desc string) int {
	if desc == "" {
		return 0
	}
	switch desc[0] {
	case 'J', 'D':
		return 2
	case 'V':
		return 0
	}
	return 1
}

// ArgumentSlots returns the number of local slots taken by the parameters,
// excluding the receiver.
func ArgumentSlots(desc string) (int, error) {
	args, err := ArgumentTypes(desc)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range args {
		n += TypeSize(a)
	}
	return n, nil
}

// ObjectType returns the field descriptor for an internal class name.
// Array descriptors are returned unchanged.
func ObjectType(internal string) string {
	if strings.HasPrefix(internal, "[") {
		return internal
	}
	return "L" + internal + ";"
}

// ClassOf returns the internal name referenced by a reference descriptor,
// or the empty string for primitive and array descriptors.
func ClassOf(desc string) string {
	if len(desc) > 2 && desc[0] == 'L' && desc[len(desc)-1] == ';' {
		return desc[1 : len(desc)-1]
	}
	return ""
}

func fieldDescLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, fmt.Errorf("truncated type")
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return 0, fmt.Errorf("unterminated class type")
		}
		return i + end + 1, nil
	}
	return 0, fmt.Errorf("bad type character %q", s[i])
}
