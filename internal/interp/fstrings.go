package interp

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/quill-lang/quill/internal/ast"
)

// evalFString implements f-string interpolation (spec.md §4.2): literal
// chunks pass through unchanged, interpolated chunks are evaluated,
// optionally converted (!s/!r/!a) and formatted against a format spec
// that may itself interpolate nested expressions.
func (ip *Interp) evalFString(env *Environment, f *ast.FString) (Value, error) {
	var sb strings.Builder
	for _, part := range f.Parts {
		if !part.IsExpr {
			sb.WriteString(part.Literal)
			continue
		}
		v, err := ip.evalExpr(env, part.Expr)
		if err != nil {
			return nil, err
		}
		line := part.Expr.Pos().Line
		spec, err := ip.renderSpecParts(env, part.FormatSpec)
		if err != nil {
			return nil, err
		}
		s, err := ip.formatValue(v, part.Conversion, spec, line)
		if err != nil {
			return nil, err
		}
		sb.WriteString(s)
	}
	return NewStr(sb.String()), nil
}

func (ip *Interp) renderSpecParts(env *Environment, parts []ast.FStringPart) (string, error) {
	if len(parts) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, p := range parts {
		if !p.IsExpr {
			sb.WriteString(p.Literal)
			continue
		}
		v, err := ip.evalExpr(env, p.Expr)
		if err != nil {
			return "", err
		}
		s, err := ip.formatValue(v, p.Conversion, "", p.Expr.Pos().Line)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// strOf renders v via a user __str__ if the class defines one, falling
// back to __repr__ and finally the builtin Str.
func (ip *Interp) strOf(v Value, line int) (string, error) {
	if inst, ok := v.(*Instance); ok {
		if m, ok := lookupMethod(inst.Class, "__str__"); ok {
			return ip.callDunderStr(inst, m, line)
		}
		if m, ok := lookupMethod(inst.Class, "__repr__"); ok {
			return ip.callDunderStr(inst, m, line)
		}
	}
	return Str(v), nil
}

// reprOf renders v via a user __repr__ if the class defines one.
func (ip *Interp) reprOf(v Value, line int) (string, error) {
	if inst, ok := v.(*Instance); ok {
		if m, ok := lookupMethod(inst.Class, "__repr__"); ok {
			return ip.callDunderStr(inst, m, line)
		}
	}
	return Repr(v, nil), nil
}

func (ip *Interp) callDunderStr(inst *Instance, m Value, line int) (string, error) {
	r, err := ip.Call(bindMethod(inst, m), nil, nil, line)
	if err != nil {
		return "", err
	}
	s, ok := r.(StrValue)
	if !ok {
		return "", raise(ip.Classes, line, "TypeError", "__str__ returned non-string")
	}
	return string(s.Runes), nil
}

// formatValue applies a conversion (!s/!r/!a) then a format spec to v,
// matching the interaction between f-string conversions/specs and
// str.format's "{!r:>10}" syntax.
func (ip *Interp) formatValue(v Value, conv byte, spec string, line int) (string, error) {
	switch conv {
	case 's':
		s, err := ip.strOf(v, line)
		if err != nil {
			return "", err
		}
		v = NewStr(s)
	case 'r', 'a':
		s, err := ip.reprOf(v, line)
		if err != nil {
			return "", err
		}
		v = NewStr(s)
	}
	if spec == "" {
		if conv != 0 {
			return Str(v), nil
		}
		return ip.strOf(v, line)
	}
	return ip.applySpec(v, spec, line)
}

type formatSpec struct {
	fill         rune
	align        byte
	sign         byte
	alt          bool
	comma        bool
	width        int
	hasPrecision bool
	precision    int
	typ          byte
}

func isAlignChar(r rune) bool {
	return r == '<' || r == '>' || r == '^' || r == '='
}

func parseFormatSpec(spec string) formatSpec {
	fs := formatSpec{fill: ' ', sign: '-'}
	r := []rune(spec)
	i := 0
	if len(r) >= 2 && isAlignChar(r[1]) {
		fs.fill, fs.align = r[0], byte(r[1])
		i = 2
	} else if len(r) >= 1 && isAlignChar(r[0]) {
		fs.align = byte(r[0])
		i = 1
	}
	if i < len(r) && (r[i] == '+' || r[i] == '-' || r[i] == ' ') {
		fs.sign = byte(r[i])
		i++
	}
	if i < len(r) && r[i] == '#' {
		fs.alt = true
		i++
	}
	if i < len(r) && r[i] == '0' {
		if fs.align == 0 {
			fs.align, fs.fill = '=', '0'
		}
		i++
	}
	start := i
	for i < len(r) && r[i] >= '0' && r[i] <= '9' {
		i++
	}
	if i > start {
		fs.width, _ = strconv.Atoi(string(r[start:i]))
	}
	if i < len(r) && (r[i] == ',' || r[i] == '_') {
		fs.comma = true
		i++
	}
	if i < len(r) && r[i] == '.' {
		i++
		start = i
		for i < len(r) && r[i] >= '0' && r[i] <= '9' {
			i++
		}
		fs.precision, _ = strconv.Atoi(string(r[start:i]))
		fs.hasPrecision = true
	}
	if i < len(r) {
		fs.typ = byte(r[i])
	}
	return fs
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := n % 3
	if lead == 0 {
		lead = 3
	}
	sb.WriteString(digits[:lead])
	for i := lead; i < n; i += 3 {
		sb.WriteByte(',')
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}

func pad(body string, negative bool, signStr string, fs formatSpec) string {
	total := len([]rune(body)) + len(signStr)
	if total >= fs.width {
		return signStr + body
	}
	fillCount := fs.width - total
	fill := string(fs.fill)
	switch fs.align {
	case '<':
		return signStr + body + strings.Repeat(fill, fillCount)
	case '^':
		left := fillCount / 2
		right := fillCount - left
		return strings.Repeat(fill, left) + signStr + body + strings.Repeat(fill, right)
	case '=':
		return signStr + strings.Repeat(fill, fillCount) + body
	default:
		return strings.Repeat(fill, fillCount) + signStr + body
	}
}

// applySpec implements the `[[fill]align][sign][#][0][width][,][.prec][type]`
// mini-language shared by f-strings and str.format.
func (ip *Interp) applySpec(v Value, spec string, line int) (string, error) {
	fs := parseFormatSpec(spec)
	switch x := v.(type) {
	case IntValue:
		return formatInt(x.Value, fs, ip, line)
	case FloatValue:
		return formatFloatSpec(x.Value, fs), nil
	case BoolValue:
		var i int64
		if x.Value {
			i = 1
		}
		if fs.typ == 0 {
			fs.align = orDefault(fs.align, '<')
			return pad(Str(x), false, "", fs), nil
		}
		return formatInt(big.NewInt(i), fs, ip, line)
	case StrValue:
		body := string(x.Runes)
		if fs.hasPrecision && fs.precision < len([]rune(body)) {
			body = string(x.Runes[:fs.precision])
		}
		fs.align = orDefault(fs.align, '<')
		return pad(body, false, "", fs), nil
	default:
		s, err := ip.strOf(v, line)
		if err != nil {
			return "", err
		}
		fs.align = orDefault(fs.align, '<')
		return pad(s, false, "", fs), nil
	}
}

func orDefault(b, def byte) byte {
	if b == 0 {
		return def
	}
	return b
}

func formatInt(val *big.Int, fs formatSpec, ip *Interp, line int) (string, error) {
	neg := val.Sign() < 0
	abs := new(big.Int).Abs(val)
	switch fs.typ {
	case 'f', 'F', 'e', 'E', 'g', 'G', '%':
		f := new(big.Float).SetInt(abs)
		fv, _ := f.Float64()
		if neg {
			fv = -fv
		}
		return formatFloatSpec(fv, fs), nil
	case 'x':
		body := abs.Text(16)
		if fs.alt {
			body = "0x" + body
		}
		return signAndPad(body, neg, fs), nil
	case 'X':
		body := strings.ToUpper(abs.Text(16))
		if fs.alt {
			body = "0X" + body
		}
		return signAndPad(body, neg, fs), nil
	case 'o':
		body := abs.Text(8)
		if fs.alt {
			body = "0o" + body
		}
		return signAndPad(body, neg, fs), nil
	case 'b':
		body := abs.Text(2)
		if fs.alt {
			body = "0b" + body
		}
		return signAndPad(body, neg, fs), nil
	case 'c':
		return string(rune(val.Int64())), nil
	case 0, 'd', 'n':
		body := abs.Text(10)
		if fs.comma {
			body = groupThousands(body)
		}
		return signAndPad(body, neg, fs), nil
	}
	return "", raise(ip.Classes, line, "ValueError", "unknown format code '%c' for object of type 'int'", fs.typ)
}

func signAndPad(body string, neg bool, fs formatSpec) string {
	sign := ""
	switch {
	case neg:
		sign = "-"
	case fs.sign == '+':
		sign = "+"
	case fs.sign == ' ':
		sign = " "
	}
	return pad(body, neg, sign, fs)
}

func formatFloatSpec(f float64, fs formatSpec) string {
	prec := 6
	if fs.hasPrecision {
		prec = fs.precision
	}
	typ := fs.typ
	if typ == 0 {
		typ = 'g'
		if !fs.hasPrecision {
			prec = -1
		}
	}
	val := f
	suffix := ""
	if typ == '%' {
		val *= 100
		typ = 'f'
		suffix = "%"
	}
	body := strconv.FormatFloat(val, byte(typ), prec, 64)
	neg := strings.HasPrefix(body, "-")
	if neg {
		body = body[1:]
	}
	if fs.comma {
		if dot := strings.IndexByte(body, '.'); dot >= 0 {
			body = groupThousands(body[:dot]) + body[dot:]
		} else {
			body = groupThousands(body)
		}
	}
	body += suffix
	return signAndPad(body, neg, fs)
}

// formatTemplate implements str.format(*args, **kw): "{}"/"{0}"/"{name}"
// placeholders, each with an optional "!conv" and ":spec" suffix.
func (ip *Interp) formatTemplate(text string, args []Value, kw map[string]Value) (string, error) {
	var sb strings.Builder
	r := []rune(text)
	auto := 0
	for i := 0; i < len(r); i++ {
		switch r[i] {
		case '{':
			if i+1 < len(r) && r[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			j := i + 1
			depth := 1
			for j < len(r) && depth > 0 {
				if r[j] == '{' {
					depth++
				} else if r[j] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			if j >= len(r) {
				return "", raise(ip.Classes, 0, "ValueError", "Single '{' encountered in format string")
			}
			field := string(r[i+1 : j])
			s, err := ip.formatField(field, args, kw, &auto)
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
			i = j
		case '}':
			if i+1 < len(r) && r[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return "", raise(ip.Classes, 0, "ValueError", "Single '}' encountered in format string")
		default:
			sb.WriteRune(r[i])
		}
	}
	return sb.String(), nil
}

func (ip *Interp) formatField(field string, args []Value, kw map[string]Value, auto *int) (string, error) {
	name := field
	spec := ""
	conv := byte(0)
	if idx := strings.IndexByte(field, ':'); idx >= 0 {
		name, spec = field[:idx], field[idx+1:]
	}
	if idx := strings.IndexByte(name, '!'); idx >= 0 {
		if idx+1 < len(name) {
			conv = name[idx+1]
		}
		name = name[:idx]
	}
	var v Value
	switch {
	case name == "":
		if *auto >= len(args) {
			return "", raise(ip.Classes, 0, "IndexError", "Replacement index %d out of range for positional args tuple", *auto)
		}
		v = args[*auto]
		*auto++
	case name[0] >= '0' && name[0] <= '9':
		n, err := strconv.Atoi(name)
		if err != nil || n >= len(args) {
			return "", raise(ip.Classes, 0, "IndexError", "Replacement index %s out of range for positional args tuple", name)
		}
		v = args[n]
	default:
		base, rest := name, ""
		if i := strings.IndexAny(name, ".["); i >= 0 {
			base, rest = name[:i], name[i:]
		}
		kv, ok := kw[base]
		if !ok {
			return "", raise(ip.Classes, 0, "KeyError", "%s", base)
		}
		v = kv
		for len(rest) > 0 {
			if rest[0] == '.' {
				end := strings.IndexAny(rest[1:], ".[")
				var attr string
				if end < 0 {
					attr, rest = rest[1:], ""
				} else {
					attr, rest = rest[1:end+1], rest[end+1:]
				}
				av, err := ip.getAttr(v, attr, 0)
				if err != nil {
					return "", err
				}
				v = av
			} else {
				end := strings.IndexByte(rest, ']')
				key := rest[1:end]
				rest = rest[end+1:]
				var idxVal Value
				if n, err := strconv.Atoi(key); err == nil {
					idxVal = NewInt(int64(n))
				} else {
					idxVal = NewStr(key)
				}
				iv, err := ip.getItem(v, idxVal, 0)
				if err != nil {
					return "", err
				}
				v = iv
			}
		}
	}
	return ip.formatValue(v, conv, spec, 0)
}
