package interp

import "fmt"

// Class is a runtime class value: name, base list, MRO, attribute table
// (spec.md §3). The MRO is computed once, at class-definition time, via
// C3 linearisation (spec.md §3 invariant) and cached here.
type Class struct {
	Name  string
	Bases []*Class
	MRO   []*Class // first element is always the class itself
	Attrs map[string]Value
}

func (*Class) Type() string { return "type" }

// NewClass builds a Class from its declared bases and computes its MRO.
// bases == nil means "no explicit bases": the MRO is then just [c], with
// no implicit root class added (exception classes get their base from
// the caller passing it explicitly).
func NewClass(name string, bases []*Class, attrs map[string]Value) (*Class, error) {
	c := &Class{Name: name, Bases: bases, Attrs: attrs}
	mro, err := c3Linearize(c)
	if err != nil {
		return nil, err
	}
	c.MRO = mro
	return c, nil
}

// c3Linearize implements the C3 linearisation algorithm (spec.md §8
// property 9 / GLOSSARY): L[C] = C + merge(L[B1], ..., L[Bn], [B1..Bn]).
func c3Linearize(c *Class) ([]*Class, error) {
	if len(c.Bases) == 0 {
		return []*Class{c}, nil
	}
	sequences := make([][]*Class, 0, len(c.Bases)+1)
	for _, b := range c.Bases {
		sequences = append(sequences, append([]*Class{}, b.MRO...))
	}
	sequences = append(sequences, append([]*Class{}, c.Bases...))
	merged, err := c3Merge(sequences)
	if err != nil {
		return nil, err
	}
	return append([]*Class{c}, merged...), nil
}

func c3Merge(sequences [][]*Class) ([]*Class, error) {
	var result []*Class
	for {
		sequences = dropEmpty(sequences)
		if len(sequences) == 0 {
			return result, nil
		}
		var head *Class
		for _, seq := range sequences {
			candidate := seq[0]
			if !appearsInTail(sequences, candidate) {
				head = candidate
				break
			}
		}
		if head == nil {
			return nil, fmt.Errorf("cannot create a consistent method resolution order")
		}
		result = append(result, head)
		for i := range sequences {
			sequences[i] = removeHead(sequences[i], head)
		}
	}
}

func dropEmpty(seqs [][]*Class) [][]*Class {
	out := seqs[:0]
	for _, s := range seqs {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func appearsInTail(sequences [][]*Class, c *Class) bool {
	for _, seq := range sequences {
		for _, x := range seq[1:] {
			if x == c {
				return true
			}
		}
	}
	return false
}

func removeHead(seq []*Class, head *Class) []*Class {
	if len(seq) > 0 && seq[0] == head {
		return seq[1:]
	}
	return seq
}

// Instance is a class pointer + attribute table (spec.md §3).
type Instance struct {
	Class *Class
	Attrs map[string]Value
}

func NewInstance(c *Class) *Instance {
	return &Instance{Class: c, Attrs: make(map[string]Value)}
}

func (*Instance) Type() string { return "instance" }

// IsInstance walks the instance's MRO, per spec.md §4.4. It takes a
// single *Class; a tuple of classes is not accepted here.
func IsInstance(v Value, c *Class) bool {
	inst, ok := v.(*Instance)
	if !ok {
		return false
	}
	return classIsSubclass(inst.Class, c)
}

func classIsSubclass(c, of *Class) bool {
	for _, m := range c.MRO {
		if m == of {
			return true
		}
	}
	return false
}

// lookupAttr performs instance-then-MRO attribute lookup, the shared
// core of `Attr` expression evaluation and `getattr`/`hasattr`. It does
// NOT bind BoundMethods — that happens one layer up, where the
// evaluator knows whether the lookup is happening through an instance
// (bind) or through the class itself (don't bind).
func lookupAttr(inst *Instance, name string) (Value, bool) {
	if v, ok := inst.Attrs[name]; ok {
		return v, true
	}
	return lookupClassAttr(inst.Class, name)
}

func lookupClassAttr(c *Class, name string) (Value, bool) {
	for _, m := range c.MRO {
		if v, ok := m.Attrs[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// lookupMethod finds a dunder/method by walking the MRO only (not the
// instance dict), per spec.md §4.4's dunder dispatch: operators bind to
// class-level methods, never to an instance attribute that happens to
// share the dunder's name.
func lookupMethod(c *Class, name string) (Value, bool) {
	return lookupClassAttr(c, name)
}

// SuperProxy is the object a zero- or two-argument `super()` call
// produces: attribute lookups resolve starting just after StartClass in
// Instance's dynamic MRO, the mechanism spec.md §4.4/GLOSSARY describes
// for cooperative multiple inheritance.
type SuperProxy struct {
	Instance   *Instance
	StartClass *Class
}

func (*SuperProxy) Type() string { return "super" }

// mroAfter returns the tail of c's MRO that comes strictly after
// `current` in the MRO of `self`'s *dynamic* class — the next class
// `super()` should resolve into per spec.md §4.4 ("the next class in
// the current method's MRO").
func mroAfter(selfClass *Class, current *Class) []*Class {
	for i, m := range selfClass.MRO {
		if m == current {
			if i+1 < len(selfClass.MRO) {
				return selfClass.MRO[i+1:]
			}
			return nil
		}
	}
	return nil
}
