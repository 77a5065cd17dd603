// linkopt CLI - constant propagation and Class.forName rewriting for class pools
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/linkopt/manifest"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "rewrite":
		err = handleRewriteCommand(os.Args[2:])
	case "analyze":
		err = handleAnalyzeCommand(os.Args[2:])
	case "dis":
		err = handleDisCommand(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: linkopt <command> [options] [args...]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  rewrite   Rewrite Class.forName calls on constant names and drop dead handlers\n")
	fmt.Fprintf(os.Stderr, "  analyze   Print the constants reaching declared targets\n")
	fmt.Fprintf(os.Stderr, "  dis       Disassemble classes of a pool\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  linkopt rewrite -mode global in.cbor out.cbor\n")
	fmt.Fprintf(os.Stderr, "  linkopt analyze -target 'com/example/Test.test(I)V:12:4' app.cbor\n")
	fmt.Fprintf(os.Stderr, "  linkopt dis app.cbor com/example/Test\n")
	fmt.Fprintf(os.Stderr, "\nRun 'linkopt <command> -h' for command options.\n")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", red(err.Error()))
	os.Exit(1)
}

// commonFlags are shared by every command.
type commonFlags struct {
	verbose   bool
	noColor   bool
	configDir string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "Verbose output (debug logging)")
	fs.BoolVar(&c.noColor, "no-color", false, "Disable colored output")
	fs.StringVar(&c.configDir, "config", "", "Directory holding linkopt.toml (default: search upward from .)")
}

// apply configures logging and color from the flags.
func (c *commonFlags) apply() {
	verbosity := 0
	if c.verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
	if c.noColor {
		color.NoColor = true
	}
}

// loadManifest reads linkopt.toml from the -config directory, or the
// nearest one above the working directory, or falls back to defaults.
func (c *commonFlags) loadManifest() (*manifest.Manifest, error) {
	if c.configDir != "" {
		return manifest.Load(c.configDir)
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}
