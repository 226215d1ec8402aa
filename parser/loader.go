package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/samber/lo"
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
	"golang.org/x/exp/slices"
)

// Unit is one parsed source file.
type Unit struct {
	Name string
	Tops []ast.TopDec
	fix  Fixities
}

// FileError is the failure to load one file.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string { return e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }

// Loader parses a sequence of files that share one interner. Fixity
// declarations at the top level of a file stay in effect for the files
// after it.
type Loader struct {
	root  fs.FS
	store *intern.StoreMut
	opts  []Option
	Cache map[string]Unit
}

func NewLoader(root fs.FS, store *intern.StoreMut, opts ...Option) *Loader {
	return &Loader{
		root:  root,
		store: store,
		opts:  opts,
		Cache: make(map[string]Unit),
	}
}

// SourceFiles lists the SML source files directly inside dir, sorted by name.
func SourceFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	filenames := lo.FilterMap(entries, func(entry fs.DirEntry, i int) (string, bool) {
		name := entry.Name()
		if entry.IsDir() || !slices.Contains(lexer.SourceExts, path.Ext(name)) {
			return "", false
		}
		return path.Join(dir, name), true
	})
	if len(filenames) == 0 {
		return nil, fmt.Errorf("%w found in %s", errNoFiles, dir)
	}
	sort.Strings(filenames)
	return filenames, nil
}

// Load parses names in order. A file that fails to parse does not stop the
// others from being parsed; all failures are joined into the returned error,
// each as a *FileError.
func (ld *Loader) Load(names ...string) ([]Unit, error) {
	if len(names) == 0 {
		return nil, errNoFiles
	}
	var units []Unit
	var errs []error
	var fix Fixities
	for _, name := range names {
		if u, ok := ld.Cache[name]; ok {
			units = append(units, u)
			fix = u.fix
			continue
		}
		opts := append(slices.Clone(ld.opts), WithFixities(fix))
		tops, next, err := ParseFileFixities(ld.root, name, ld.store, opts...)
		if err != nil {
			errs = append(errs, &FileError{Name: name, Err: err})
			continue
		}
		fix = next
		u := Unit{Name: name, Tops: tops, fix: next}
		ld.Cache[name] = u
		units = append(units, u)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return units, nil
}
