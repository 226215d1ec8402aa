// Package project finds the source files of an SML program and checks them
// in order, each file seeing the bindings of the files before it.
package project

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"github.com/samber/lo"
	"github.com/smasher164/mlcheck/diagnostic"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/parser"
	"github.com/smasher164/mlcheck/statics"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file that lists a program's sources.
const ManifestName = "mlcheck.yaml"

// Manifest describes a program. Files are relative to the directory
// holding the manifest and are checked in the order given.
type Manifest struct {
	Files []string `yaml:"files"`
	Trace bool     `yaml:"trace,omitempty"`

	dir string
}

// ValidationError lists everything wrong with a manifest.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// NewManifest returns a manifest for files in dir. Unlike the entries of
// an mlcheck.yaml, files may be any valid fs.FS path.
func NewManifest(dir string, files ...string) (Manifest, error) {
	m := Manifest{Files: files, dir: dir}
	if err := m.validate(validPath); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// FromPaths returns a manifest for files named by operating system paths,
// relative or absolute, together with a file system rooted at the deepest
// directory containing all of them.
func FromPaths(files ...string) (fs.FS, Manifest, error) {
	abs := make([]string, len(files))
	for i, file := range files {
		var err error
		if abs[i], err = filepath.Abs(file); err != nil {
			return nil, Manifest{}, err
		}
	}
	root := commonDir(abs)
	rel := make([]string, len(abs))
	for i, file := range abs {
		r, err := filepath.Rel(root, file)
		if err != nil {
			return nil, Manifest{}, err
		}
		rel[i] = filepath.ToSlash(r)
	}
	m, err := NewManifest(".", rel...)
	if err != nil {
		return nil, Manifest{}, err
	}
	return os.DirFS(root), m, nil
}

func commonDir(paths []string) string {
	if len(paths) == 0 {
		return "."
	}
	root := filepath.Dir(paths[0])
	for _, p := range paths[1:] {
		for !within(root, p) {
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}
	return root
}

func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Load reads the manifest in dir. Without one, the SML sources directly
// inside dir are taken in name order.
func Load(fsys fs.FS, dir string) (Manifest, error) {
	name := path.Join(dir, ManifestName)
	f, err := fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		files, err := parser.SourceFiles(fsys, dir)
		if err != nil {
			return Manifest{}, err
		}
		rel := lo.Map(files, func(file string, _ int) string {
			return strings.TrimPrefix(file, dir+"/")
		})
		return Manifest{Files: rel, dir: dir}, nil
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: open %s: %w", name, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	m := Manifest{dir: dir}
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return Manifest{}, fmt.Errorf("manifest: %s is empty", name)
		}
		return Manifest{}, fmt.Errorf("manifest: parse %s: %w", name, err)
	}
	if err := m.validate(module.CheckFilePath); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func validPath(file string) error {
	if !fs.ValidPath(path.Clean(file)) {
		return fmt.Errorf("invalid path %q", file)
	}
	return nil
}

// validate checks every file with check and rejects duplicates.
func (m *Manifest) validate(check func(string) error) error {
	var errs ValidationError
	if len(m.Files) == 0 {
		errs.Issues = append(errs.Issues, "files must list at least one source file")
	}
	seen := set.New[string](len(m.Files))
	for i, file := range m.Files {
		if err := check(file); err != nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("files[%d]: %v", i, err))
			continue
		}
		if !seen.Insert(path.Clean(file)) {
			errs.Issues = append(errs.Issues, fmt.Sprintf("files[%d]: %s is listed twice", i, file))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// Paths returns the manifest's files as paths in the file system it was
// loaded from.
func (m Manifest) Paths() []string {
	return lo.Map(m.Files, func(file string, _ int) string {
		return path.Join(m.dir, file)
	})
}

// Result is a checked program.
type Result struct {
	Names intern.Getter
	Basis statics.Basis
	Files []string
}

// Check parses and checks the files of m. A syntax or static error is
// returned as a diagnostic.Diagnostic naming the offending file. If trace
// is not nil it receives the parser's and the checker's traces.
//
// The interner is sealed once parsing and the standard basis are done, so
// elaboration and diagnostics only read it.
func Check(fsys fs.FS, m Manifest, trace io.Writer) (Result, error) {
	store := intern.NewStoreMut()
	var opts []parser.Option
	if trace != nil {
		opts = append(opts, parser.WithTrace(trace))
	}
	paths := m.Paths()
	units, err := parser.NewLoader(fsys, store, opts...).Load(paths...)
	if err != nil {
		var ferr *parser.FileError
		if errors.As(err, &ferr) {
			if d, ok := diagnostic.Parse(ferr.Name, ferr.Err); ok {
				return Result{}, d
			}
		}
		return Result{}, err
	}

	st := statics.NewState()
	st.Trace = trace
	bs := statics.StdBasis(st, store)
	names := store.Finish()
	st.SetNames(names)
	for _, u := range units {
		var err error
		if bs, err = statics.CheckWith(st, bs, u.Tops); err != nil {
			var serr statics.Error
			if errors.As(err, &serr) {
				return Result{}, diagnostic.Statics(names, u.Name, serr)
			}
			return Result{}, fmt.Errorf("%s: %w", u.Name, err)
		}
	}
	return Result{Names: names, Basis: bs, Files: paths}, nil
}
