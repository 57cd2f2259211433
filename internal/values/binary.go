package values

import "strconv"

// Kind tags the variant held by a Binary value.
type Kind uint8

const (
	KindNone Kind = iota
	KindFloat
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "none"
	}
}

// Binary is the decoded form of a metric value: a float64, int64 or bool.
type Binary struct {
	kind Kind
	bits uint64
	f    float64
}

// Float returns a Binary holding v.
func Float(v float64) Binary {
	return Binary{kind: KindFloat, f: v}
}

// Int returns a Binary holding v.
func Int(v int64) Binary {
	return Binary{kind: KindInt, bits: uint64(v)}
}

// Bool returns a Binary holding v.
func Bool(v bool) Binary {
	b := Binary{kind: KindBool}
	if v {
		b.bits = 1
	}
	return b
}

// Kind returns the held variant.
func (b Binary) Kind() Kind {
	return b.kind
}

// AsFloat returns the value when b holds a float64.
func (b Binary) AsFloat() (float64, bool) {
	return b.f, b.kind == KindFloat
}

// AsInt returns the value when b holds an int64.
func (b Binary) AsInt() (int64, bool) {
	return int64(b.bits), b.kind == KindInt
}

// AsBool returns the value when b holds a bool.
func (b Binary) AsBool() (bool, bool) {
	return b.bits != 0, b.kind == KindBool
}

// Number returns the value as float64 for the numeric variants. Bool and
// empty values are not numbers.
func (b Binary) Number() (float64, bool) {
	switch b.kind {
	case KindFloat:
		return b.f, true
	case KindInt:
		return float64(int64(b.bits)), true
	default:
		return 0, false
	}
}

func (b Binary) String() string {
	switch b.kind {
	case KindFloat:
		return strconv.FormatFloat(b.f, 'g', -1, 64)
	case KindInt:
		return strconv.FormatInt(int64(b.bits), 10)
	case KindBool:
		return strconv.FormatBool(b.bits != 0)
	default:
		return ""
	}
}
