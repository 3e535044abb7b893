package stdlib

import (
	"testing"

	"github.com/quill-lang/quill/internal/interp"
)

func TestParseJSONScalars(t *testing.T) {
	cases := []struct {
		text string
		want interp.Value
	}{
		{"null", interp.None},
		{"true", interp.Bool(true)},
		{"false", interp.Bool(false)},
		{"42", interp.NewInt(42)},
		{"3.5", interp.NewFloat(3.5)},
		{`"hi"`, interp.NewStr("hi")},
	}
	for _, c := range cases {
		got, err := ParseJSON(c.text)
		if err != nil {
			t.Fatalf("ParseJSON(%q): unexpected error: %v", c.text, err)
		}
		gotRepr := interp.Repr(got, nil)
		wantRepr := interp.Repr(c.want, nil)
		if gotRepr != wantRepr {
			t.Fatalf("ParseJSON(%q) = %s, want %s", c.text, gotRepr, wantRepr)
		}
	}
}

func TestParseJSONIntVsFloatDistinction(t *testing.T) {
	got, err := ParseJSON("1.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.(interp.FloatValue); !ok {
		t.Fatalf("ParseJSON(\"1.0\") = %T, want interp.FloatValue (decimal point marks a float)", got)
	}

	got, err = ParseJSON("1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.(interp.IntValue); !ok {
		t.Fatalf("ParseJSON(\"1\") = %T, want interp.IntValue", got)
	}
}

func TestParseJSONArrayAndObject(t *testing.T) {
	got, err := ParseJSON(`{"a": [1, 2, "three"], "b": null}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, ok := got.(*interp.DictValue)
	if !ok {
		t.Fatalf("expected *interp.DictValue, got %T", got)
	}
	if len(d.Keys()) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(d.Keys()))
	}
}

func TestParseJSONInvalidErrors(t *testing.T) {
	_, err := ParseJSON("{not valid")
	if err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}

func TestDumpJSONRoundTripsScalarsAndContainers(t *testing.T) {
	lst := interp.NewList(interp.NewInt(1), interp.NewStr("x"), interp.Bool(true))
	raw, err := DumpJSON(lst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := ParseJSON(raw)
	if err != nil {
		t.Fatalf("re-parsing dumped JSON failed: %v (raw=%q)", err, raw)
	}
	if interp.Repr(back, nil) != interp.Repr(interp.NewList(interp.NewInt(1), interp.NewStr("x"), interp.Bool(true)), nil) {
		t.Fatalf("round-trip mismatch: %s", interp.Repr(back, nil))
	}
}

func TestDumpJSONDict(t *testing.T) {
	d := interp.NewDict()
	_ = d.Set(interp.NewStr("k"), interp.NewInt(7))
	raw, err := DumpJSON(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := ParseJSON(raw)
	if err != nil {
		t.Fatalf("re-parsing dumped dict failed: %v (raw=%q)", err, raw)
	}
	backDict, ok := back.(*interp.DictValue)
	if !ok {
		t.Fatalf("expected *interp.DictValue after round-trip, got %T", back)
	}
	if len(backDict.Keys()) != 1 {
		t.Fatalf("expected 1 key after round-trip, got %d", len(backDict.Keys()))
	}
}

func TestDumpJSONRejectsUnsupportedType(t *testing.T) {
	set := interp.NewSet()
	_, err := DumpJSON(set)
	if err == nil {
		t.Fatalf("expected an error serialising a set (not JSON serializable)")
	}
}
