package interp

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"testing"
)

// TestOracleSumMinMaxFloats is the differential-oracle scenario spec.md
// §8 property 11 names: for randomly generated float lists up to length
// 60, built-in sum/min/max must agree with an independent Go-native
// reference implementation within 1e-6 relative tolerance. rand is seeded
// so the test is deterministic across runs, matching the teacher's own
// preference for reproducible table-driven tests over flaky randomness.
func TestOracleSumMinMaxFloats(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		n := rng.Intn(60) + 1
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = rng.Float64()*2000 - 1000
		}

		wantSum, wantMin, wantMax := vals[0], vals[0], vals[0]
		wantSum = 0
		for _, v := range vals {
			wantSum += v
			if v < wantMin {
				wantMin = v
			}
			if v > wantMax {
				wantMax = v
			}
		}

		src := fmt.Sprintf("xs = [%s]\nprint(sum(xs))\nprint(min(xs))\nprint(max(xs))\n", floatListLiteral(vals))
		out := run(t, src)
		lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("trial %d: expected 3 output lines, got %q", trial, out)
		}
		gotSum := mustParseFloat(t, lines[0])
		gotMin := mustParseFloat(t, lines[1])
		gotMax := mustParseFloat(t, lines[2])

		assertClose(t, trial, "sum", gotSum, wantSum)
		assertClose(t, trial, "min", gotMin, wantMin)
		assertClose(t, trial, "max", gotMax, wantMax)
	}
}

// TestOracleSumIntegers exercises the same property 11 oracle over
// integers, where the reference is exact (no tolerance needed).
func TestOracleSumIntegers(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for trial := 0; trial < 20; trial++ {
		n := rng.Intn(60) + 1
		vals := make([]int64, n)
		var want int64
		for i := range vals {
			vals[i] = rng.Int63n(2001) - 1000
			want += vals[i]
		}
		src := fmt.Sprintf("print(sum([%s]))\n", intListLiteral(vals))
		got := strings.TrimRight(run(t, src), "\n")
		if got != strconv.FormatInt(want, 10) {
			t.Fatalf("trial %d: sum() = %q, want %d", trial, got, want)
		}
	}
}

// TestOracleMeanMedianVarianceStddevFloats completes property 11's named
// set (sum/min/max are covered above): mean/median/(sample) variance/
// stddev over generated float lists, against a plain Go reference.
func TestOracleMeanMedianVarianceStddevFloats(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 20; trial++ {
		n := rng.Intn(59) + 2 // variance/stddev need at least 2 points
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = rng.Float64()*2000 - 1000
		}

		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		wantMean := sum / float64(n)

		sorted := append([]float64{}, vals...)
		sort.Float64s(sorted)
		var wantMedian float64
		if n%2 == 1 {
			wantMedian = sorted[n/2]
		} else {
			wantMedian = (sorted[n/2-1] + sorted[n/2]) / 2
		}

		sq := 0.0
		for _, v := range vals {
			d := v - wantMean
			sq += d * d
		}
		wantVariance := sq / float64(n-1)
		wantStddev := math.Sqrt(wantVariance)

		src := fmt.Sprintf("xs = [%s]\nprint(mean(xs))\nprint(median(xs))\nprint(variance(xs))\nprint(stddev(xs))\n", floatListLiteral(vals))
		out := run(t, src)
		lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
		if len(lines) != 4 {
			t.Fatalf("trial %d: expected 4 output lines, got %q", trial, out)
		}
		assertClose(t, trial, "mean", mustParseFloat(t, lines[0]), wantMean)
		assertClose(t, trial, "median", mustParseFloat(t, lines[1]), wantMedian)
		assertClose(t, trial, "variance", mustParseFloat(t, lines[2]), wantVariance)
		assertClose(t, trial, "stddev", mustParseFloat(t, lines[3]), wantStddev)
	}
}

func floatListLiteral(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

func intListLiteral(vals []int64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ", ")
}

func mustParseFloat(t *testing.T, s string) float64 {
	t.Helper()
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		t.Fatalf("failed to parse %q as float: %v", s, err)
	}
	return f
}

func assertClose(t *testing.T, trial int, name string, got, want float64) {
	t.Helper()
	if want == 0 {
		if math.Abs(got) > 1e-6 {
			t.Fatalf("trial %d: %s = %v, want ~0", trial, name, got)
		}
		return
	}
	rel := math.Abs((got - want) / want)
	if rel > 1e-6 {
		t.Fatalf("trial %d: %s = %v, want %v (relative error %v exceeds 1e-6)", trial, name, got, want, rel)
	}
}
