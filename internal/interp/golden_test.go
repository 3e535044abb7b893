package interp

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// TestReprGoldenOutputs snapshots repr() output for representative values
// from each kind in spec.md §3's closed Value set, using go-snaps the same
// way the teacher's own fixture tests snapshot program output — these are
// the values the differential-oracle scenario (spec.md §8) checks for
// exact repr agreement against a reference interpreter.
func TestReprGoldenOutputs(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"ints_and_floats", "print([1, -2, 3.5, float('inf'), float('-inf')])\n"},
		{"strings_and_none", "print(['hi', \"it's\", None, True, False])\n"},
		{"nested_containers", "print({'a': [1, 2], 'b': (3, 4)})\n"},
		{"set_literal", "print(sorted({3, 1, 2}))\n"},
		{"range_repr", "print(range(1, 10, 2))\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := run(t, c.src)
			snaps.MatchSnapshot(t, c.name, out)
		})
	}
}

// TestFizzBuzzGoldenOutput snapshots the canonical FizzBuzz(16) scenario
// spec.md §8 names verbatim, as an end-to-end golden-output check
// alongside the exact-match assertion in TestFizzBuzz16.
func TestFizzBuzzGoldenOutput(t *testing.T) {
	src := `
for i in range(1, 17):
    if i % 15 == 0:
        print("FizzBuzz")
    elif i % 3 == 0:
        print("Fizz")
    elif i % 5 == 0:
        print("Buzz")
    else:
        print(i)
`
	out := run(t, src)
	snaps.MatchSnapshot(t, "fizzbuzz_16", out)
}
