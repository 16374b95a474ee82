package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/aidanlsb/nounverb/internal/commands"
)

// Get returns the value of the named argument converted to T.
//
// Supported T: string, commands.Path, int, int64, uint, float64, bool,
// []string, []int, []commands.Path. Asking for a T that does not fit the
// argument's kind is a TypeMismatch error. A scalar option that was neither
// supplied nor defaulted is MissingRequired; flags and repeatable arguments
// return their zero value instead.
func Get[T any](m *Matches, name string) (T, error) {
	v, ok, err := Lookup[T](m, name)
	if err != nil || ok {
		return v, err
	}
	a, _ := m.arg(name)
	if a.IsFlag || a.Multiple {
		return v, nil
	}
	return v, &Error{Kind: MissingRequired, Arg: label(a), Expected: a.Shape()}
}

// Lookup is Get for optional arguments: ok is false when the argument has no
// value, supplied or defaulted.
func Lookup[T any](m *Matches, name string) (value T, ok bool, err error) {
	a, known := m.arg(name)
	if !known {
		return value, false, &Error{Kind: UnknownArgument, Arg: name, Reason: "not declared by this command"}
	}
	vals, present := m.values[name]

	mismatch := func() error {
		return &Error{Kind: TypeMismatch, Arg: label(a), Expected: a.Shape(), Reason: fmt.Sprintf("cannot read as %T", value)}
	}

	switch p := any(&value).(type) {
	case *string:
		if a.Multiple || !stringKind(a.Kind) {
			return value, false, mismatch()
		}
		if present {
			*p = vals[0]
		}
	case *commands.Path:
		if a.Multiple || (a.Kind != commands.KindPath && a.Kind != commands.KindString) {
			return value, false, mismatch()
		}
		if present {
			*p = commands.Path(vals[0])
		}
	case *int:
		if a.Kind == commands.KindCount {
			*p = m.counts[name]
			return value, m.given[name], nil
		}
		if a.Multiple || a.Kind != commands.KindInt {
			return value, false, mismatch()
		}
		if present {
			n, err := parseInt(a, vals[0], strconv.IntSize)
			if err != nil {
				return value, false, err
			}
			*p = int(n)
		}
	case *int64:
		if a.Multiple || a.Kind != commands.KindInt {
			return value, false, mismatch()
		}
		if present {
			n, err := parseInt(a, vals[0], 64)
			if err != nil {
				return value, false, err
			}
			*p = n
		}
	case *uint:
		if a.Multiple || a.Kind != commands.KindInt {
			return value, false, mismatch()
		}
		if present {
			n, err := parseUint(a, vals[0], strconv.IntSize)
			if err != nil {
				return value, false, err
			}
			*p = uint(n)
		}
	case *float64:
		if a.Multiple || (a.Kind != commands.KindFloat && a.Kind != commands.KindInt) {
			return value, false, mismatch()
		}
		if present {
			f, err := parseFloat(a, vals[0], 64)
			if err != nil {
				return value, false, err
			}
			*p = f
		}
	case *bool:
		if a.Kind != commands.KindBool {
			return value, false, mismatch()
		}
		if present {
			*p = vals[0] == "true"
		}
	case *[]string:
		if !a.Multiple || !stringKind(a.Kind) {
			return value, false, mismatch()
		}
		if present {
			*p = append([]string(nil), vals...)
		}
	case *[]commands.Path:
		if !a.Multiple || (a.Kind != commands.KindPath && a.Kind != commands.KindString) {
			return value, false, mismatch()
		}
		for _, v := range vals {
			*p = append(*p, commands.Path(v))
		}
	case *[]int:
		if !a.Multiple || a.Kind != commands.KindInt {
			return value, false, mismatch()
		}
		for _, v := range vals {
			n, err := parseInt(a, v, strconv.IntSize)
			if err != nil {
				var zero T
				return zero, false, err
			}
			*p = append(*p, int(n))
		}
	default:
		return value, false, mismatch()
	}
	return value, present, nil
}

// GetCount returns how many times a flag or count argument was supplied.
// It is only valid for flag and count arguments; any other kind is a TypeMismatch.
func GetCount(m *Matches, name string) (int, error) {
	a, known := m.arg(name)
	if !known {
		return 0, &Error{Kind: UnknownArgument, Arg: name, Reason: "not declared by this command"}
	}
	if !a.IsFlag {
		return 0, &Error{Kind: TypeMismatch, Arg: label(a), Expected: a.Shape(), Reason: "not a flag or count argument"}
	}
	return m.counts[name], nil
}

// IsPresent reports whether a flag or count argument appeared on the command line.
// It is only valid for flag and count arguments; any other kind is a TypeMismatch.
func IsPresent(m *Matches, name string) (bool, error) {
	a, known := m.arg(name)
	if !known {
		return false, &Error{Kind: UnknownArgument, Arg: name, Reason: "not declared by this command"}
	}
	if !a.IsFlag {
		return false, &Error{Kind: TypeMismatch, Arg: label(a), Expected: a.Shape(), Reason: "not a flag or count argument"}
	}
	return m.given[name], nil
}

func stringKind(k commands.ValueKind) bool {
	return k == commands.KindString || k == commands.KindPath || k == commands.KindEnum
}

func parseInt(a commands.ArgMeta, v string, bits int) (int64, error) {
	n, err := strconv.ParseInt(v, 10, bits)
	if err != nil {
		return 0, numError(a, v, err)
	}
	return n, nil
}

func parseUint(a commands.ArgMeta, v string, bits int) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, bits)
	if err != nil {
		if len(v) > 0 && v[0] == '-' {
			return 0, &Error{Kind: OutOfRange, Arg: label(a), Expected: "non-negative " + a.Shape(), Value: v}
		}
		return 0, numError(a, v, err)
	}
	return n, nil
}

func parseFloat(a commands.ArgMeta, v string, bits int) (float64, error) {
	f, err := strconv.ParseFloat(v, bits)
	if err != nil {
		return 0, numError(a, v, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &Error{Kind: OutOfRange, Arg: label(a), Expected: "finite " + a.Shape(), Value: v}
	}
	return f, nil
}

func numError(a commands.ArgMeta, v string, err error) error {
	if errors.Is(err, strconv.ErrRange) {
		return &Error{Kind: OutOfRange, Arg: label(a), Expected: a.Shape(), Value: v}
	}
	return &Error{Kind: TypeMismatch, Arg: label(a), Expected: a.Shape(), Value: v}
}

// Bind copies parsed values into dst, a pointer to the struct schema was extracted from.
func Bind(m *Matches, schema *commands.Schema, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("bind: destination must be a non-nil pointer, got %T", dst)
	}
	rv = rv.Elem()
	if rv.Type() != schema.Type {
		return fmt.Errorf("bind: destination is %s, schema describes %s", rv.Type(), schema.Type)
	}

	for i, a := range schema.Args {
		field := rv.FieldByIndex(schema.FieldIndex(i))
		vals, present := m.values[a.Name]

		switch {
		case a.Kind == commands.KindCount:
			field.SetInt(int64(m.counts[a.Name]))
		case a.Kind == commands.KindBool:
			on := present && vals[0] == "true"
			if field.Kind() == reflect.Pointer {
				if m.given[a.Name] {
					field.Set(reflect.ValueOf(&on))
				}
				continue
			}
			field.SetBool(on)
		case !present:
			continue
		case field.Kind() == reflect.Pointer:
			elem := reflect.New(field.Type().Elem())
			if err := setScalar(elem.Elem(), a, vals[0]); err != nil {
				return err
			}
			field.Set(elem)
		case field.Kind() == reflect.Slice:
			slice := reflect.MakeSlice(field.Type(), len(vals), len(vals))
			for j, v := range vals {
				if err := setScalar(slice.Index(j), a, v); err != nil {
					return err
				}
			}
			field.Set(slice)
		default:
			if err := setScalar(field, a, vals[0]); err != nil {
				return err
			}
		}
	}
	return nil
}

func setScalar(v reflect.Value, a commands.ArgMeta, raw string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := parseInt(a, raw, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := parseUint(a, raw, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := parseFloat(a, raw, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return &Error{Kind: TypeMismatch, Arg: label(a), Expected: a.Shape(), Reason: "unsupported field type " + v.Type().String()}
	}
	return nil
}
