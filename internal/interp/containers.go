package interp

import (
	"fmt"
	"math/big"
)

var bigOne = big.NewInt(1)

// Dict preserves insertion order (spec.md §3) by keeping a parallel
// slice of keys alongside a hash-key index, the same "ordered map over a
// slice" trick the teacher uses for its ident.Map (internal/interp/
// runtime/environment.go) adapted for arbitrary hashable keys rather
// than case-insensitive strings.
type DictValue struct {
	keys   []Value
	values []Value
	index  map[string]int // HashKey(key) -> position in keys/values
}

func NewDict() *DictValue {
	return &DictValue{index: make(map[string]int)}
}

func (*DictValue) Type() string { return "dict" }

func (d *DictValue) Len() int { return len(d.keys) }

func (d *DictValue) getByKey(k Value) (Value, bool) {
	hk, err := HashKey(k)
	if err != nil {
		return nil, false
	}
	i, ok := d.index[hk]
	if !ok {
		return nil, false
	}
	return d.values[i], true
}

// Get looks up a key, returning ok=false on a miss (used by `in`, `get`,
// `__getitem__`'s KeyError path).
func (d *DictValue) Get(k Value) (Value, bool, error) {
	if !Hashable(k) {
		return nil, false, fmt.Errorf("unhashable type: '%s'", TypeName(k))
	}
	v, ok := d.getByKey(k)
	return v, ok, nil
}

// Set inserts or updates k->v, preserving k's original insertion
// position on update (spec.md §3 dict ordering).
func (d *DictValue) Set(k, v Value) error {
	if !Hashable(k) {
		return fmt.Errorf("unhashable type: '%s'", TypeName(k))
	}
	hk, _ := HashKey(k)
	if i, ok := d.index[hk]; ok {
		d.values[i] = v
		return nil
	}
	d.index[hk] = len(d.keys)
	d.keys = append(d.keys, k)
	d.values = append(d.values, v)
	return nil
}

// Delete removes k, ok=false if absent. Rebuilds the index for every key
// after the removed one since their slice positions shift.
func (d *DictValue) Delete(k Value) (ok bool, err error) {
	if !Hashable(k) {
		return false, fmt.Errorf("unhashable type: '%s'", TypeName(k))
	}
	hk, _ := HashKey(k)
	i, found := d.index[hk]
	if !found {
		return false, nil
	}
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.values = append(d.values[:i], d.values[i+1:]...)
	delete(d.index, hk)
	for j := i; j < len(d.keys); j++ {
		nk, _ := HashKey(d.keys[j])
		d.index[nk] = j
	}
	return true, nil
}

func (d *DictValue) Keys() []Value   { return d.keys }
func (d *DictValue) Values() []Value { return d.values }

// Set is an unordered collection of unique hashable values, implemented
// with the same slice+index shape as Dict so iteration order is at
// least insertion-stable even though spec.md doesn't mandate it.
type SetValue struct {
	keys  []Value
	index map[string]int
}

func NewSet() *SetValue { return &SetValue{index: make(map[string]int)} }

func (*SetValue) Type() string { return "set" }

func (s *SetValue) Len() int { return len(s.keys) }

func (s *SetValue) hasKey(k Value) bool {
	hk, err := HashKey(k)
	if err != nil {
		return false
	}
	_, ok := s.index[hk]
	return ok
}

func (s *SetValue) Contains(k Value) (bool, error) {
	if !Hashable(k) {
		return false, fmt.Errorf("unhashable type: '%s'", TypeName(k))
	}
	return s.hasKey(k), nil
}

func (s *SetValue) Add(k Value) error {
	if !Hashable(k) {
		return fmt.Errorf("unhashable type: '%s'", TypeName(k))
	}
	hk, _ := HashKey(k)
	if _, ok := s.index[hk]; ok {
		return nil
	}
	s.index[hk] = len(s.keys)
	s.keys = append(s.keys, k)
	return nil
}

func (s *SetValue) Discard(k Value) {
	hk, err := HashKey(k)
	if err != nil {
		return
	}
	i, ok := s.index[hk]
	if !ok {
		return
	}
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
	delete(s.index, hk)
	for j := i; j < len(s.keys); j++ {
		nk, _ := HashKey(s.keys[j])
		s.index[nk] = j
	}
}

func (s *SetValue) Elements() []Value { return s.keys }

// Union/Intersection/Difference/SymmetricDifference implement the `|`,
// `&`, `-`, `^` operators on Set values (spec.md §4.3: "Bitwise operators
// ... defined on ... Set (|,&,^) with set semantics").
func (s *SetValue) Union(o *SetValue) *SetValue {
	r := NewSet()
	for _, k := range s.keys {
		_ = r.Add(k)
	}
	for _, k := range o.keys {
		_ = r.Add(k)
	}
	return r
}

func (s *SetValue) Intersection(o *SetValue) *SetValue {
	r := NewSet()
	for _, k := range s.keys {
		if o.hasKey(k) {
			_ = r.Add(k)
		}
	}
	return r
}

func (s *SetValue) Difference(o *SetValue) *SetValue {
	r := NewSet()
	for _, k := range s.keys {
		if !o.hasKey(k) {
			_ = r.Add(k)
		}
	}
	return r
}

func (s *SetValue) SymmetricDifference(o *SetValue) *SetValue {
	r := s.Difference(o)
	for _, k := range o.Difference(s).keys {
		_ = r.Add(k)
	}
	return r
}

// Range is a lazy start/stop/step sequence with O(1) length, membership,
// and indexing (spec.md §3/§4.6).
type RangeValue struct {
	Start, Stop, Step *big.Int
}

func (*RangeValue) Type() string { return "range" }

func NewRange(start, stop, step *big.Int) (*RangeValue, error) {
	if step.Sign() == 0 {
		return nil, fmt.Errorf("range() arg 3 must not be zero")
	}
	return &RangeValue{start, stop, step}, nil
}

// Len computes the O(1) element count of the range.
func (r *RangeValue) Len() int {
	diff := new(big.Int).Sub(r.Stop, r.Start)
	if r.Step.Sign() > 0 {
		if diff.Sign() <= 0 {
			return 0
		}
	} else {
		if diff.Sign() >= 0 {
			return 0
		}
		diff.Neg(diff)
	}
	step := new(big.Int).Abs(r.Step)
	q, m := new(big.Int).QuoRem(diff, step, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() {
		return int(^uint(0) >> 1) // best-effort clamp; genuinely huge ranges aren't materialized anyway
	}
	return int(q.Int64())
}

// At returns the i-th element (0-based), O(1).
func (r *RangeValue) At(i int) *big.Int {
	off := new(big.Int).Mul(big.NewInt(int64(i)), r.Step)
	return off.Add(off, r.Start)
}

// Contains is O(1) membership test for integers under step.
func (r *RangeValue) Contains(n *big.Int) bool {
	diff := new(big.Int).Sub(n, r.Start)
	q, m := new(big.Int).QuoRem(diff, r.Step, new(big.Int))
	if m.Sign() != 0 || q.Sign() < 0 {
		return false
	}
	return q.Int64() < int64(r.Len())
}
