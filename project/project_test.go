package project_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/kr/pretty"
	"github.com/smasher164/mlcheck/diagnostic"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/project"
)

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"prog/mlcheck.yaml": {Data: []byte("files:\n  - util.sml\n  - main.sml\ntrace: true\n")},
		"prog/main.sml":     {Data: []byte("val y = x")},
		"prog/util.sml":     {Data: []byte("val x = 1")},
		"loose/b.sml":       {Data: []byte("val b = a")},
		"loose/a.sig":       {Data: []byte("val a = 1")},
		"loose/notes.txt":   {Data: []byte("")},
	}
	tests := []struct {
		dir   string
		paths []string
		trace bool
	}{
		{"prog", []string{"prog/util.sml", "prog/main.sml"}, true},
		{"loose", []string{"loose/a.sig", "loose/b.sml"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			m, err := project.Load(fsys, tt.dir)
			if err != nil {
				t.Fatal(err)
			}
			if diff := pretty.Diff(m.Paths(), tt.paths); len(diff) > 0 {
				t.Errorf("paths differ: %v", diff)
			}
			if m.Trace != tt.trace {
				t.Errorf("trace = %v, want %v", m.Trace, tt.trace)
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, manifest, want string
	}{
		{"unknown field", "files: [a.sml]\nmain: a.sml\n", "field main not found"},
		{"empty", "", "is empty"},
		{"no files", "trace: true\n", "at least one source file"},
		{"escapes", "files: [../a.sml]\n", "files[0]"},
		{"duplicate", "files: [a.sml, a.sml]\n", "listed twice"},
		{"reserved name", "files: [con.sml]\n", "files[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"mlcheck.yaml": {Data: []byte(tt.manifest)}}
			_, err := project.Load(fsys, ".")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want an error containing %q", err, tt.want)
			}
		})
	}
	if _, err := project.Load(fstest.MapFS{"x/readme": {}}, "x"); err == nil {
		t.Error("expected an error for a directory without sources")
	}
}

func TestCheck(t *testing.T) {
	fsys := fstest.MapFS{
		"ops.sml":  {Data: []byte("infixr 5 ++ fun xs ++ ys = xs @ ys")},
		"main.sml": {Data: []byte("structure M = struct val l = [1] ++ [2] end")},
	}
	m, err := project.NewManifest(".", "ops.sml", "main.sml")
	if err != nil {
		t.Fatal(err)
	}
	var trace bytes.Buffer
	res, err := project.Check(fsys, m, &trace)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for name := range res.Basis.Env.StrEnv {
		names = append(names, res.Names.Get(name))
	}
	if diff := pretty.Diff(names, []string{"M"}); len(diff) > 0 {
		t.Errorf("structures differ: %v", diff)
	}
	if !strings.Contains(trace.String(), "topdec") {
		t.Errorf("checker trace missing:\n%s", trace.String())
	}
	if _, ok := res.Names.(*intern.Store); !ok {
		t.Errorf("names are %T, want a sealed *intern.Store", res.Names)
	}
}

func TestNewManifest(t *testing.T) {
	tests := []struct {
		files []string
		ok    bool
	}{
		{[]string{"con.sml", "lib/a.sml"}, true},
		{[]string{"./a.sml"}, true},
		{[]string{"a.sml", "./a.sml"}, false},
		{[]string{"../a.sml"}, false},
		{[]string{"/tmp/a.sml"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		_, err := project.NewManifest(".", tt.files...)
		if (err == nil) != tt.ok {
			t.Errorf("%q: got error %v, want ok = %v", tt.files, err, tt.ok)
		}
	}
}

func TestFromPaths(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		file := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(file, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		return file
	}
	lib := write("lib/a.sml", "val a = 1")
	app := write("app/b.sml", "val b = a + 1")

	fsys, m, err := project.FromPaths(lib, filepath.Join(dir, "app", "..", "app", "b.sml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(m.Paths(), []string{"lib/a.sml", "app/b.sml"}); len(diff) > 0 {
		t.Errorf("paths differ: %v", diff)
	}
	if _, err := project.Check(fsys, m, nil); err != nil {
		t.Fatal(err)
	}

	fsys, m, err = project.FromPaths(app)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(m.Paths(), []string{"b.sml"}); len(diff) > 0 {
		t.Errorf("paths differ: %v", diff)
	}
	_, err = project.Check(fsys, m, nil)
	var d diagnostic.Diagnostic
	if !errors.As(err, &d) || d.File != "b.sml" {
		t.Errorf("got %v, want a diagnostic in b.sml", err)
	}
}

func TestCheckDiagnostics(t *testing.T) {
	fsys := fstest.MapFS{
		"ok.sml":     {Data: []byte("val n = 1")},
		"syntax.sml": {Data: []byte("val = n")},
		"types.sml":  {Data: []byte("val s = n ^ \"!\"")},
	}
	tests := []struct {
		files []string
		want  string
	}{
		{[]string{"ok.sml", "types.sml"}, "types.sml:1:9: mismatched types: string vs int"},
		{[]string{"ok.sml", "syntax.sml"}, "syntax.sml:1:5: "},
		{[]string{"ok.sml", "syntax.sml", "types.sml"}, "syntax.sml:1:5: "},
	}
	for _, tt := range tests {
		m, err := project.NewManifest(".", tt.files...)
		if err != nil {
			t.Fatal(err)
		}
		_, err = project.Check(fsys, m, nil)
		var d diagnostic.Diagnostic
		if !errors.As(err, &d) {
			t.Fatalf("%v: got %v, want a diagnostic", tt.files, err)
		}
		if !strings.HasPrefix(d.String(), tt.want) {
			t.Errorf("%v: got %q, want prefix %q", tt.files, d.String(), tt.want)
		}
	}
	m, err := project.NewManifest(".", "missing.sml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := project.Check(fsys, m, nil); err == nil {
		t.Error("expected an error for a missing file")
	}
}
