package resolve

// State is an immutable key/value bag threaded through a resolution walk.
// Outer callers use it to hand context (generic bindings, the file being
// resolved) to processors; the walk itself only forwards it. The zero State
// is empty and ready to use.
type State struct {
	head *stateEntry
}

type stateEntry struct {
	key, val any
	next     *stateEntry
}

// With returns a copy of s in which key maps to val. Keys must be
// comparable. s itself is unchanged.
func (s State) With(key, val any) State {
	return State{head: &stateEntry{key: key, val: val, next: s.head}}
}

// Value returns the value bound to key, or nil.
func (s State) Value(key any) any {
	for e := s.head; e != nil; e = e.next {
		if e.key == key {
			return e.val
		}
	}
	return nil
}

// Len reports how many bindings are visible, shadowed ones excluded.
func (s State) Len() int {
	seen := make(map[any]struct{})
	for e := s.head; e != nil; e = e.next {
		seen[e.key] = struct{}{}
	}
	return len(seen)
}

type keyID struct{ name string }

// Key is a typed State key. Two keys are equal only if one was copied from
// the other, so independent packages cannot collide by name.
type Key[T any] struct {
	id *keyID
}

// NewKey returns a fresh key. The name is for debugging only.
func NewKey[T any](name string) Key[T] {
	return Key[T]{id: &keyID{name: name}}
}

func (k Key[T]) String() string {
	if k.id == nil {
		return "<nil key>"
	}
	return k.id.name
}

// Put binds k to v in a copy of s.
func Put[T any](s State, k Key[T], v T) State {
	return s.With(k, v)
}

// Lookup returns the value bound to k in s.
func Lookup[T any](s State, k Key[T]) (T, bool) {
	for e := s.head; e != nil; e = e.next {
		if e.key == any(k) {
			v, ok := e.val.(T)
			return v, ok
		}
	}
	var zero T
	return zero, false
}

// FileKey carries the path of the file being resolved, when known.
var FileKey = NewKey[string]("file")
