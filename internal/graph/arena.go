package graph

import "fmt"

// handle is a generation-checked arena index. The zero handle is never valid,
// since generations start at 1.
type handle struct {
	index uint32
	gen   uint32
}

func (h handle) valid() bool { return h.gen != 0 }

func (h handle) format(prefix string) string {
	return fmt.Sprintf("%s%dv%d", prefix, h.index, h.gen)
}

type slot[T any] struct {
	gen   uint32
	live  bool
	value T
}

// arena stores values in reusable slots. Slots are individually allocated so
// pointers returned by get stay valid until the value is removed.
type arena[T any] struct {
	slots []*slot[T]
	free  []uint32
	count int
}

func (a *arena[T]) insert(v T) handle {
	a.count++
	if n := len(a.free); n > 0 {
		index := a.free[n-1]
		a.free = a.free[:n-1]
		s := a.slots[index]
		s.gen++
		s.live = true
		s.value = v
		return handle{index: index, gen: s.gen}
	}
	s := &slot[T]{gen: 1, live: true, value: v}
	a.slots = append(a.slots, s)
	return handle{index: uint32(len(a.slots) - 1), gen: 1}
}

func (a *arena[T]) get(h handle) (*T, bool) {
	if !h.valid() || int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil, false
	}
	return &s.value, true
}

func (a *arena[T]) remove(h handle) (T, bool) {
	var zero T
	if _, ok := a.get(h); !ok {
		return zero, false
	}
	s := a.slots[h.index]
	v := s.value
	s.value = zero
	s.live = false
	a.free = append(a.free, h.index)
	a.count--
	return v, true
}

func (a *arena[T]) len() int { return a.count }
