package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chazu/linkopt/classfile"
	"github.com/chazu/linkopt/constprop"
	"github.com/chazu/linkopt/report"
	"github.com/chazu/linkopt/rewrite"
)

func handleRewriteCommand(args []string) error {
	fs := flag.NewFlagSet("rewrite", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	mode := fs.String("mode", "", "Rewrite mode: module or global (default from linkopt.toml, else module)")
	reportPath := fs.String("report", "", "Record decisions in this SQLite database")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: linkopt rewrite [options] <in.cbor> <out.cbor>\n\n")
		fmt.Fprintf(os.Stderr, "Rewrites Class.forName calls whose class name is a known constant.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	common.apply()

	if fs.NArg() != 2 {
		fs.Usage()
		return errors.New("rewrite needs an input and an output pool")
	}
	mf, err := common.loadManifest()
	if err != nil {
		return err
	}
	if *mode != "" {
		mf.Rewrite.Mode = *mode
	}
	m, err := mf.Mode()
	if err != nil {
		return err
	}

	pool, err := classfile.ReadPoolFile(fs.Arg(0))
	if err != nil {
		return err
	}
	pass := &rewrite.Pass{Mode: m, Engine: constprop.NewEngine(pool, mf.EngineOptions()...)}
	res, runErr := pass.Run(pool)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", yellow(runErr.Error()))
	}
	if err := classfile.WritePoolFile(fs.Arg(1), res.Pool); err != nil {
		return err
	}
	printSummary(os.Stdout, res, m)

	path := mf.ReportPath()
	if *reportPath != "" {
		path = *reportPath
	}
	if path != "" {
		store, err := report.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.Record(context.Background(), res, m)
		if err != nil {
			return err
		}
		fmt.Printf("Recorded run %s in %s\n", id, path)
	}
	return runErr
}

// printSummary writes one line per call site followed by the totals.
func printSummary(w io.Writer, res *rewrite.Result, mode rewrite.Mode) {
	for _, d := range res.Decisions {
		where := fmt.Sprintf("%s.%s @%d", d.Class, d.Method, d.Insn)
		if d.Line > 0 {
			where = fmt.Sprintf("%s (line %d)", where, d.Line)
		}
		outcome := d.Outcome.String()
		if d.Outcome == rewrite.Rewritten {
			outcome = green(outcome)
		} else {
			outcome = yellow(outcome)
		}
		target := d.Target
		if target == "" {
			target = "?"
		}
		fmt.Fprintf(w, "%s: %s %s (%s)\n", where, outcome, target, d.Reason)
	}
	fmt.Fprintf(w, "%s mode: %s of %d call site(s) rewritten, %d handler(s) and %d instruction(s) removed\n",
		mode, bold(res.Count(rewrite.Rewritten)), len(res.Decisions), len(res.Handlers), res.RemovedInsns)
}
