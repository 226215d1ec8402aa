// Package intern maps identifier text to small, stable handles.
//
// A StoreMut hands out StrRefs while source text is being parsed and the
// standard basis is being built. Finish seals it into a Store, an immutable
// lookup table that may be shared for the rest of checking and for rendering
// diagnostics.
package intern

import "fmt"

// StrRef is a handle to a string. Only the store that issued it knows its text.
type StrRef int

// Handles bound before any user text is inserted. The checker compares
// against these directly instead of looking text up again.
const (
	Star StrRef = iota
	Int
	Real
	Word
	Char
	String
	List
	Nil
	Cons
	True
	False
	Bool
	Unit
	Ref
	Exn
	Eq
	It
	numBuiltin
)

var builtin = [numBuiltin]string{
	Star:   "*",
	Int:    "int",
	Real:   "real",
	Word:   "word",
	Char:   "char",
	String: "string",
	List:   "list",
	Nil:    "nil",
	Cons:   "::",
	True:   "true",
	False:  "false",
	Bool:   "bool",
	Unit:   "unit",
	Ref:    "ref",
	Exn:    "exn",
	Eq:     "=",
	It:     "it",
}

// StoreMut creates StrRefs from strings.
type StoreMut struct {
	ids  map[string]StrRef
	strs []string
}

// NewStoreMut returns a StoreMut containing only the builtin handles.
func NewStoreMut() *StoreMut {
	s := &StoreMut{
		ids:  make(map[string]StrRef, len(builtin)),
		strs: make([]string, 0, len(builtin)),
	}
	for _, name := range builtin {
		s.Insert(name)
	}
	return s
}

// Insert returns the StrRef for name, allocating one the first time name is seen.
func (s *StoreMut) Insert(name string) StrRef {
	if id, ok := s.ids[name]; ok {
		return id
	}
	id := StrRef(len(s.strs))
	s.ids[name] = id
	s.strs = append(s.strs, name)
	return id
}

// Get returns the text of id. It panics if id was not issued by s.
func (s *StoreMut) Get(id StrRef) string {
	return get(s.strs, id)
}

// Len reports how many handles have been issued.
func (s *StoreMut) Len() int {
	return len(s.strs)
}

// Finish seals s. s must not be used afterwards.
func (s *StoreMut) Finish() *Store {
	strs := s.strs
	s.strs = nil
	s.ids = nil
	return &Store{strs: strs}
}

// Store is an immutable table of interned strings.
type Store struct {
	strs []string
}

// Get returns the text of id. It panics if id was not issued by the
// StoreMut this Store was finished from.
func (s *Store) Get(id StrRef) string {
	return get(s.strs, id)
}

func get(strs []string, id StrRef) string {
	if id < 0 || int(id) >= len(strs) {
		panic(fmt.Sprintf("intern: unknown StrRef %d", id))
	}
	return strs[id]
}

// Getter is satisfied by both StoreMut and Store.
type Getter interface {
	Get(StrRef) string
}
