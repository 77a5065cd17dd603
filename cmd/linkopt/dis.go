package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chazu/linkopt/classfile"
)

func handleDisCommand(args []string) error {
	fs := flag.NewFlagSet("dis", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: linkopt dis [options] <pool.cbor> [class...]\n\n")
		fmt.Fprintf(os.Stderr, "Disassembles the named classes, or every class of the pool.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	common.apply()

	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("dis needs a pool")
	}
	pool, err := classfile.ReadPoolFile(fs.Arg(0))
	if err != nil {
		return err
	}
	return disassemble(os.Stdout, pool, fs.Args()[1:])
}

// disassemble prints the named classes (internal or binary names), or all
// of them when names is empty.
func disassemble(w io.Writer, pool *classfile.Pool, names []string) error {
	if len(names) == 0 {
		for _, e := range pool.Entries() {
			fmt.Fprintf(w, "; module %s\n%s\n", e.Module, classfile.DisassembleClass(e.Class))
		}
		return nil
	}
	for _, name := range names {
		c, module, ok := pool.Find(classfile.InternalName(name))
		if !ok {
			return fmt.Errorf("class %s not in pool", name)
		}
		fmt.Fprintf(w, "; module %s\n%s\n", module, classfile.DisassembleClass(c))
	}
	return nil
}
