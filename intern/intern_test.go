package intern_test

import (
	"testing"

	"github.com/smasher164/mlcheck/intern"
)

func TestBuiltin(t *testing.T) {
	s := intern.NewStoreMut()
	cases := []struct {
		text string
		want intern.StrRef
	}{
		{"*", intern.Star},
		{"int", intern.Int},
		{"real", intern.Real},
		{"word", intern.Word},
		{"char", intern.Char},
		{"string", intern.String},
		{"list", intern.List},
		{"nil", intern.Nil},
		{"::", intern.Cons},
		{"true", intern.True},
		{"false", intern.False},
		{"bool", intern.Bool},
		{"ref", intern.Ref},
		{"=", intern.Eq},
	}
	for _, c := range cases {
		if got := s.Insert(c.text); got != c.want {
			t.Errorf("Insert(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestInsertIdempotent(t *testing.T) {
	s := intern.NewStoreMut()
	texts := []string{"x", "foo", "x", "Bar.baz", "", "foo", "'a"}
	seen := map[string]intern.StrRef{}
	for _, text := range texts {
		id := s.Insert(text)
		if prev, ok := seen[text]; ok && prev != id {
			t.Fatalf("Insert(%q) returned %d then %d", text, prev, id)
		}
		seen[text] = id
		if got := s.Get(id); got != text {
			t.Fatalf("Get(Insert(%q)) = %q", text, got)
		}
	}
	n := s.Len()
	store := s.Finish()
	for text, id := range seen {
		if got := store.Get(id); got != text {
			t.Errorf("sealed Get(%d) = %q, want %q", id, got, text)
		}
	}
	if n != int(intern.It)+1+5 {
		t.Errorf("Len() = %d, want %d", n, int(intern.It)+1+5)
	}
}

func TestUnknownPanics(t *testing.T) {
	store := intern.NewStoreMut().Finish()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown StrRef")
		}
	}()
	store.Get(intern.StrRef(1000))
}
