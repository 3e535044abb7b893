package interp

// ctrlKind distinguishes the four ways executing a statement can unwind
// normal top-to-bottom flow, per spec.md §3's control-flow statements.
type ctrlKind int

const (
	ctrlNone ctrlKind = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
)

// control is returned alongside an error by every statement-executing
// method, the Go-native stand-in for "non-local return" (spec.md §9):
// break/continue/return propagate upward through execBlock without a
// panic, and every caller that owns a loop/function boundary intercepts
// the kind it's responsible for and passes the rest through untouched.
type control struct {
	kind  ctrlKind
	value Value // set only for ctrlReturn
}

var ctrlFallthrough = control{kind: ctrlNone}

func ctrlReturnValue(v Value) control { return control{kind: ctrlReturn, value: v} }
