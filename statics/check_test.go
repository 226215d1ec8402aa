package statics_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/smasher164/mlcheck/diagnostic"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/parser"
	"github.com/smasher164/mlcheck/statics"
)

func checkSrc(t *testing.T, src string) (*intern.StoreMut, statics.Basis, error) {
	t.Helper()
	store := intern.NewStoreMut()
	tops, err := parser.Parse("test.sml", src, store)
	if err != nil {
		t.Fatal(err)
	}
	bs, err := statics.Check(statics.NewState(), store, tops)
	return store, bs, err
}

func TestInfer(t *testing.T) {
	tests := []struct {
		src, name, want string
	}{
		{"val x = 1", "x", "int"},
		{"fun id x = x", "id", "('a) -> ('a)"},
		{`val p = (1, "a")`, "p", "{ 1 : int, 2 : string }"},
		{"fun add (x, y) = x + y", "add", "({ 1 : int, 2 : int }) -> (int)"},
		{"val r = 1.0 + 2.0", "r", "real"},
		{"fun len [] = 0 | len (_ :: xs) = 1 + len xs", "len", "(('a) list) -> (int)"},
		{"datatype 'a tree = Leaf | Node of 'a tree * 'a * 'a tree val t = Node (Leaf, 1, Leaf)", "t", "(int) tree"},
		{"val get = #a", "get", "({ a : 'a, ... }) -> ('a)"},
		{"val k = #2 (1, \"s\")", "k", "string"},
		{"val c = not o not", "c", "(bool) -> (bool)"},
		{"structure S = struct val x = 1 end val y = S.x", "y", "int"},
		{"val r = ref nil", "r", "(('a) list) ref"},
		{"exception E of int val e = E 3", "e", "exn"},
		{`val x = let val id = fn x => x in (id 1, id "s") end`, "x", "{ 1 : int, 2 : string }"},
		{"fun 'a f (x : 'a) = x", "f", "('a) -> ('a)"},
		{`val s = case 1 of 1 => "one" | _ => "other"`, "s", "string"},
		{`val h = (raise Fail "x") handle Fail s => s`, "h", "string"},
		{"type 'a pair = 'a * 'a val p : int pair = (1, 2)", "p", "{ 1 : int, 2 : int }"},
		{"val l = [1, 2] @ [3]", "l", "(int) list"},
		{"val lt = 1 < 2", "lt", "bool"},
		{"fun cat {a, b} = a ^ b", "cat", "({ a : string, b : string }) -> (string)"},
		{"structure S = struct val x = 1 val y = true end open S val z = y", "z", "bool"},
		{"local val a = 1 in val b = a end", "b", "int"},
		{"val w = while false do ()", "w", "{}"},
		{`val (a, b) = (1, "x")`, "b", "string"},
		{"datatype b = datatype bool val v : b = false", "v", "bool"},
		{"val f = fn x => fn y => (x, y)", "f", "('a) -> (('b) -> ({ 1 : 'a, 2 : 'b }))"},
		{"fun fact 0 = 1 | fact n = n * fact (n - 1)", "fact", "(int) -> (int)"},
		{"val rec loop = fn n => if n = 0 then 0 else loop (n - 1)", "loop", "(int) -> (int)"},
		{"fun even 0 = true | even n = odd (n - 1) and odd 0 = false | odd n = even (n - 1)", "odd", "(int) -> (bool)"},
		{"structure S : sig type t val x : t end = struct type t = int val x = 1 end val y = S.x + 1", "y", "int"},
		{"structure S = struct datatype t = A | B of int end val v = S.B 2", "v", "t"},
		{"signature SIG = sig type t end structure S :> SIG = struct type t = int end val n = 1", "n", "int"},
		{"val n = let datatype t = T in case T of T => 1 end", "n", "int"},
		{"val n = let type t = int in (1 : t) end", "n", "int"},
		{"structure M : sig datatype t = A | B end = struct datatype t = A | B end val v = M.B", "v", "t"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			store, bs, err := checkSrc(t, tt.src)
			if err != nil {
				t.Fatalf("%s", diagnostic.Statics(store, "test.sml", err.(statics.Error)))
			}
			vi, ok := bs.Env.ValEnv[store.Insert(tt.name)]
			if !ok {
				t.Fatalf("%s not bound", tt.name)
			}
			if got := diagnostic.ShowScheme(store, vi.Scheme); got != tt.want {
				t.Errorf("%s : %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{"val x = y", "undefined value identifier: y"},
		{"val x = S.y", "undefined structure identifier: S"},
		{"val x : foo = 1", "undefined type identifier: foo"},
		{"datatype t = A of 'a", "undefined type variable identifier: 'a"},
		{"exception E = Nope", "undefined exception identifier: Nope"},
		{"val x = 1 + \"a\"", "mismatched types: int vs string"},
		{"val _ = 1 andalso true", "mismatched types: bool vs int"},
		{"fun f (x : 'a) = x + 1", "mismatched types: 'a vs int"},
		{"fun f x = x x", "circularity: 'a in ('a) -> ('b)"},
		{"val r = {a = 1, a = 2}", "duplicate label: a"},
		{"val x = #b {a = 1}", "type is missing label b"},
		{"fun f (print x) = x", "value binding used as pattern"},
		{"val x : (int, int) list = []", "wrong number of type arguments: expected 1, found 2"},
		{"val nil as y = []", "pattern to left of `as` is not a variable: nil"},
		{"datatype t = true | B", "forbidden identifier in binding: true"},
		{"fun nil x = x", "forbidden identifier in binding: nil"},
		{"val (x, x) = (1, 2)", "redefined identifier: x"},
		{"datatype t = A and u = A", "redefined identifier: A"},
		{"signature S = sig val x : int val x : bool end", "redefined identifier: x"},
		{`val x = "a" + "b"`, "no suitable overload found"},
		{"functor F (X : sig end) = struct end", "unimplemented language construct"},
		{"abstype t = T with val x = 1 end", "unimplemented language construct"},
		{"structure S : sig val x : int end = struct val y = 1 end", "undefined value identifier: x"},
		{"structure S : sig val x : string end = struct val x = 1 end", "mismatched types: int vs string"},
		{"structure S : sig type t end = struct end", "undefined type identifier: t"},
		{"structure S : sig exception E end = struct val E = 1 end", "undefined exception identifier: E"},
		{"structure S : sig type 'a t end = struct type t = int end", "wrong number of type arguments: expected 1, found 0"},
		{"structure S :> sig type t val x : t end = struct type t = int val x = 1 end val y = S.x + 1", "mismatched types: t vs int"},
		{"val x = let val r = ref (fn y => y) in r := (fn z => z + 1); !r true end", "mismatched types: int vs bool"},
		{"structure M : sig datatype t = A end = struct datatype t = A | B end", "undefined constructor identifier: B"},
		{"structure M :> sig datatype t = A end = struct datatype t = A | B end", "undefined constructor identifier: B"},
		{"structure M : sig datatype t = A | B end = struct datatype t = A end", "undefined constructor identifier: B"},
		{"val x = let datatype t = T in T end", "undefined type identifier: t"},
		{"fun f () = let datatype t = T in [T] end", "undefined type identifier: t"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			store, _, err := checkSrc(t, tt.src)
			if err == nil {
				t.Fatal("no error")
			}
			serr, ok := err.(statics.Error)
			if !ok {
				t.Fatalf("got %T, want a statics.Error", err)
			}
			if got := diagnostic.Message(store, serr); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorLocation(t *testing.T) {
	store, _, err := checkSrc(t, "val a = 1\nval x = y")
	if err == nil {
		t.Fatal("no error")
	}
	got := diagnostic.Statics(store, "test.sml", err.(statics.Error)).String()
	if want := "test.sml:2:9: undefined value identifier: y"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCheckWith(t *testing.T) {
	store := intern.NewStoreMut()
	st := statics.NewState()
	bs := statics.StdBasis(st, store)
	for _, src := range []string{"val a = 1", "val b = a + 1", "structure S = struct val c = b end"} {
		tops, err := parser.Parse("test.sml", src, store)
		if err != nil {
			t.Fatal(err)
		}
		if bs, err = statics.CheckWith(st, bs, tops); err != nil {
			t.Fatal(err)
		}
	}
	s := bs.Env.StrEnv[store.Insert("S")].Env
	if got := diagnostic.ShowScheme(store, s.ValEnv[store.Insert("c")].Scheme); got != "int" {
		t.Errorf("S.c : %s", got)
	}

	tops, err := parser.Parse("test.sml", "val d = nope", store)
	if err != nil {
		t.Fatal(err)
	}
	failed, err := statics.CheckWith(st, bs, tops)
	if err == nil {
		t.Fatal("no error")
	}
	if failed.Env.ValEnv != nil {
		t.Error("basis returned alongside an error")
	}
}

func TestStdBasis(t *testing.T) {
	store := intern.NewStoreMut()
	bs := statics.StdBasis(statics.NewState(), store)
	for _, name := range strings.Fields("true false nil :: ref ! := = <> + - * / div mod ~ abs < > <= >= ^ not print size @ o ignore Match Bind Div Fail") {
		if _, ok := bs.Env.ValEnv[store.Insert(name)]; !ok {
			t.Errorf("value %s missing", name)
		}
	}
	for _, name := range strings.Fields("int real word char string bool list ref exn unit") {
		if _, ok := bs.Env.TyEnv[store.Insert(name)]; !ok {
			t.Errorf("type %s missing", name)
		}
	}
	if bs.Env.ValEnv[store.Insert("Fail")].Status != statics.StatusExn {
		t.Error("Fail is not an exception")
	}
}

func TestNewSym(t *testing.T) {
	st := statics.NewState()
	a, b := st.NewSym(intern.Int), st.NewSym(intern.Int)
	if a == b || a.Compare(b) >= 0 {
		t.Errorf("symbols %v and %v are not fresh and increasing", a, b)
	}
	for _, builtin := range []statics.Sym{statics.SymInt, statics.SymExn, statics.SymList} {
		if a == builtin || b == builtin {
			t.Errorf("new symbol collides with %v", builtin)
		}
	}
	st.Reset()
	if c := st.NewSym(intern.Int); c != a {
		t.Errorf("after Reset got %v, want %v", c, a)
	}
}

func TestTrace(t *testing.T) {
	store := intern.NewStoreMut()
	tops, err := parser.Parse("test.sml", "val x = 1 structure S : sig end = struct end", store)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	st := statics.NewState()
	st.Trace = &buf
	if _, err := statics.Check(st, store, tops); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"topdec", "val x", "match signature"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("trace missing %q:\n%s", want, buf.String())
		}
	}
}
