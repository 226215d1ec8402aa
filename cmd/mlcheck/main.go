// Command mlcheck type-checks an SML program.
//
// Usage:
//
//	mlcheck [-dump] [-trace] [dir | file...]
//
// With a directory (the current one by default), the files are taken from
// its mlcheck.yaml, or failing that, every SML source directly inside it in
// name order. mlcheck prints OK if the program checks, and otherwise the
// first error, exiting with status 1.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/sanity-io/litter"
	"github.com/smasher164/mlcheck/diagnostic"
	"github.com/smasher164/mlcheck/project"
	"github.com/smasher164/mlcheck/statics"
)

var (
	dump  = flag.Bool("dump", false, "print the top-level bindings after checking")
	trace = flag.Bool("trace", false, "trace parsing and elaboration to stderr")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("mlcheck: ")
	flag.Parse()

	fsys, m, err := manifest(flag.Args())
	if err != nil {
		log.Fatal(err)
	}
	var w io.Writer
	if *trace || m.Trace {
		w = os.Stderr
	}
	res, err := project.Check(fsys, m, w)
	var d diagnostic.Diagnostic
	switch {
	case errors.As(err, &d):
		fmt.Println(d)
		os.Exit(1)
	case err != nil:
		log.Fatal(err)
	}
	if *dump {
		litter.Dump(bindings(res))
	}
	fmt.Println("OK")
}

func manifest(args []string) (fs.FS, project.Manifest, error) {
	dir := "."
	if len(args) == 1 {
		if fi, err := os.Stat(args[0]); err == nil && fi.IsDir() {
			dir = args[0]
			args = nil
		}
	}
	if len(args) > 0 {
		return project.FromPaths(args...)
	}
	fsys := os.DirFS(dir)
	m, err := project.Load(fsys, ".")
	return fsys, m, err
}

type structure struct {
	Types      map[string]string
	Values     map[string]string
	Structures map[string]structure
}

func bindings(res project.Result) structure {
	return render(res, res.Basis.Env)
}

func render(res project.Result, env statics.Env) structure {
	out := structure{
		Types:      make(map[string]string),
		Values:     make(map[string]string),
		Structures: make(map[string]structure),
	}
	for name, ref := range env.TyEnv {
		out.Types[res.Names.Get(name)] = res.Names.Get(ref.Sym.Name())
	}
	for name, vi := range env.ValEnv {
		out.Values[res.Names.Get(name)] = diagnostic.ShowScheme(res.Names, vi.Scheme)
	}
	for name, si := range env.StrEnv {
		out.Structures[res.Names.Get(name)] = render(res, si.Env)
	}
	return out
}
