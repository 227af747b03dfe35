package quarks

import (
	"reflect"
	"unsafe"
)

// DefaultArenaCapacity is the number of bytes an arena may hand out before it
// reports exhaustion.
const DefaultArenaCapacity = 4 * 1024 * 1024

const (
	arenaAlign     = 8
	firstSlabItems = 16
)

// Arena is a bump allocator that owns every AST node of one compilation.
// Nodes are never freed individually; Reset drops all of them at once.
//
// Every allocation is charged against a byte budget. A fixed arena fails with
// a *CapacityError when the budget runs out, a growing arena doubles the
// budget and retries.
//
// An Arena is not safe for concurrent use.
type Arena struct {
	capacity int
	used     int
	grow     bool
	slabs    map[reflect.Type]any // *slab[T]
}

// slab hands out consecutive elements of a backing slice. Once the slice is
// full a larger one replaces it; the old one stays alive through the
// pointers already handed out.
type slab[T any] struct {
	items []T
}

type ArenaOption func(*Arena)

// WithGrowth makes the arena grow instead of failing when it runs out.
func WithGrowth() ArenaOption {
	return func(a *Arena) {
		a.grow = true
	}
}

func NewArena(capacity int, opts ...ArenaOption) *Arena {
	if capacity <= 0 {
		capacity = DefaultArenaCapacity
	}
	a := &Arena{
		capacity: capacity,
		slabs:    make(map[reflect.Type]any),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Alloc returns zeroed storage for one T carved from the arena.
func Alloc[T any](a *Arena) (*T, error) {
	size := alignUp(int(unsafe.Sizeof(*new(T))))
	if err := a.reserve(size); err != nil {
		return nil, err
	}

	key := reflect.TypeFor[T]()
	s, ok := a.slabs[key].(*slab[T])
	if !ok {
		s = &slab[T]{items: make([]T, 0, firstSlabItems)}
		a.slabs[key] = s
	}
	if len(s.items) == cap(s.items) {
		s.items = make([]T, 0, 2*cap(s.items))
	}
	s.items = s.items[:len(s.items)+1]
	return &s.items[len(s.items)-1], nil
}

func (a *Arena) reserve(size int) error {
	for a.used+size > a.capacity {
		if !a.grow {
			return &CapacityError{
				Requested: size,
				Remaining: a.capacity - a.used,
				Capacity:  a.capacity,
			}
		}
		a.capacity *= 2
	}
	a.used += size
	return nil
}

// Used returns the number of bytes handed out since creation or the last
// Reset.
func (a *Arena) Used() int { return a.used }

func (a *Arena) Cap() int { return a.capacity }

func (a *Arena) Remaining() int { return a.capacity - a.used }

// Reset releases every node at once. Pointers obtained before the reset must
// not be used afterwards.
func (a *Arena) Reset() {
	a.used = 0
	clear(a.slabs)
}

func alignUp(n int) int {
	if n == 0 {
		return arenaAlign
	}
	return (n + arenaAlign - 1) &^ (arenaAlign - 1)
}
