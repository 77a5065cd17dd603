package classfile

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// WireVersion is the current pool encoding version.
// Increment when making incompatible changes to the format.
const WireVersion uint16 = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("classfile: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wirePool is the encoded form of a Pool.
type wirePool struct {
	Version uint16              `cbor:"1,keyasint"`
	Entries []Entry             `cbor:"2,keyasint,omitempty"`
	Modules []*ModuleDescriptor `cbor:"3,keyasint,omitempty"`
}

// MarshalPool serializes a Pool to CBOR bytes.
func MarshalPool(p *Pool) ([]byte, error) {
	return cborEncMode.Marshal(&wirePool{Version: WireVersion, Entries: p.entries, Modules: p.modules})
}

// UnmarshalPool deserializes a Pool from CBOR bytes.
func UnmarshalPool(data []byte) (*Pool, error) {
	var w wirePool
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("classfile: unmarshal pool: %w", err)
	}
	if w.Version != WireVersion {
		return nil, fmt.Errorf("classfile: unsupported pool version %d (want %d)", w.Version, WireVersion)
	}
	p := NewPool()
	for _, e := range w.Entries {
		if e.Class == nil {
			return nil, fmt.Errorf("classfile: unmarshal pool: entry in module %q has no class", e.Module)
		}
		p.Add(e.Module, e.Class)
	}
	for _, m := range w.Modules {
		p.AddModule(m)
	}
	return p, nil
}

// MarshalClass serializes a single Class to CBOR bytes.
func MarshalClass(c *Class) ([]byte, error) {
	return cborEncMode.Marshal(c)
}

// UnmarshalClass deserializes a Class from CBOR bytes.
func UnmarshalClass(data []byte) (*Class, error) {
	var c Class
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("classfile: unmarshal class: %w", err)
	}
	return &c, nil
}

// ReadPoolFile loads a CBOR-encoded pool from disk.
func ReadPoolFile(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	p, err := UnmarshalPool(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// WritePoolFile stores a pool on disk.
func WritePoolFile(path string, p *Pool) error {
	data, err := MarshalPool(p)
	if err != nil {
		return fmt.Errorf("classfile: marshal pool: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
