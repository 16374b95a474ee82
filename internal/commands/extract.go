package commands

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// ErrUnsupportedType is returned for parameter fields whose shape has no argument mapping.
	ErrUnsupportedType = errors.New("unsupported parameter type")
	// ErrFrameworkType is returned when a parameter struct exposes a CLI/parser type to the handler.
	ErrFrameworkType = errors.New("handler parameters must not use framework types")
	// ErrUnserializable is returned when a handler's result type cannot be serialized.
	ErrUnserializable = errors.New("handler result is not serializable")
	// ErrInvalidTag is returned for malformed struct tags.
	ErrInvalidTag = errors.New("invalid argument tag")
)

// ExtractOptions tunes metadata extraction.
type ExtractOptions struct {
	// OptionalSequences makes slice parameters optional by default.
	// Individual fields can still opt out with `required:"false"`.
	OptionalSequences bool
}

// Schema is the extracted argument metadata of a parameter struct, together with
// the struct field each argument binds to.
type Schema struct {
	Type   reflect.Type
	Args   []ArgMeta
	fields [][]int
}

// FieldIndex returns the struct field index path of argument i.
func (s *Schema) FieldIndex(i int) []int {
	return s.fields[i]
}

var (
	pathType  = reflect.TypeOf(Path(""))
	countType = reflect.TypeOf(Count(0))

	frameworkMu    sync.RWMutex
	frameworkTypes = map[reflect.Type]bool{
		reflect.TypeOf((*cobra.Command)(nil)).Elem(): true,
		reflect.TypeOf((*pflag.FlagSet)(nil)).Elem(): true,
		reflect.TypeOf((*pflag.Flag)(nil)).Elem():    true,
	}
)

// ForbidType marks t as a framework type that parameter structs may not contain.
// Packages that own parser state call this from init.
func ForbidType(t reflect.Type) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	frameworkMu.Lock()
	frameworkTypes[t] = true
	frameworkMu.Unlock()
}

func isFrameworkType(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	frameworkMu.RLock()
	defer frameworkMu.RUnlock()
	return frameworkTypes[t]
}

// Extract derives argument metadata from a parameter struct type.
//
// Field shapes map as follows:
//
//	T            required
//	*T           optional
//	bool         flag
//	[]T          repeatable, required unless OptionalSequences or `required:"false"`
//	Count        repeatable counter flag
//
// Supported tags: flag, short, help, default, pos, enum, required.
func Extract(t reflect.Type, opts ExtractOptions) (*Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil parameter type", ErrUnsupportedType)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: parameters must be a struct, got %s", ErrUnsupportedType, t)
	}

	s := &Schema{Type: t}
	var positional []posArg
	if err := extractFields(t, nil, opts, s, &positional); err != nil {
		return nil, err
	}

	// Positionals come first, ordered by their pos tag.
	sort.SliceStable(positional, func(i, j int) bool { return positional[i].pos < positional[j].pos })
	for i, p := range positional {
		if p.arg.Multiple && i != len(positional)-1 {
			return nil, fmt.Errorf("%w: repeatable positional %q must be last", ErrInvalidTag, p.arg.Name)
		}
		if p.arg.Required && i > 0 && !positional[i-1].arg.Required {
			return nil, fmt.Errorf("%w: required positional %q follows an optional one", ErrInvalidTag, p.arg.Name)
		}
	}
	args := make([]ArgMeta, 0, len(s.Args)+len(positional))
	fields := make([][]int, 0, len(s.Args)+len(positional))
	for _, p := range positional {
		args = append(args, p.arg)
		fields = append(fields, p.index)
	}
	s.Args = append(args, s.Args...)
	s.fields = append(fields, s.fields...)

	if err := checkUnique(s.Args); err != nil {
		return nil, err
	}
	return s, nil
}

type posArg struct {
	pos   int
	arg   ArgMeta
	index []int
}

func extractFields(t reflect.Type, parent []int, opts ExtractOptions, s *Schema, positional *[]posArg) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct && field.Tag.Get("flag") == "" {
			if err := extractFields(field.Type, index, opts, s, positional); err != nil {
				return err
			}
			continue
		}
		if !field.IsExported() || field.Tag.Get("flag") == "-" {
			continue
		}
		if isFrameworkType(field.Type) {
			return fmt.Errorf("field %s (%s): %w", field.Name, field.Type, ErrFrameworkType)
		}

		arg, err := fieldArg(field, opts)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}

		posTag := field.Tag.Get("pos")
		if posTag == "" {
			s.Args = append(s.Args, arg)
			s.fields = append(s.fields, index)
			continue
		}
		pos, err := strconv.Atoi(posTag)
		if err != nil || pos < 0 {
			return fmt.Errorf("field %s: %w: pos %q", field.Name, ErrInvalidTag, posTag)
		}
		if arg.IsFlag {
			return fmt.Errorf("field %s: %w: flags cannot be positional", field.Name, ErrInvalidTag)
		}
		arg.Positional = true
		*positional = append(*positional, posArg{pos: pos, arg: arg, index: index})
	}
	return nil
}

func fieldArg(field reflect.StructField, opts ExtractOptions) (ArgMeta, error) {
	arg := ArgMeta{
		Name:        field.Tag.Get("flag"),
		Description: field.Tag.Get("help"),
	}
	if arg.Name == "" {
		arg.Name = KebabCase(field.Name)
	}
	if arg.Name == "help" {
		return arg, fmt.Errorf("%w: %q is reserved", ErrInvalidTag, arg.Name)
	}

	if short := field.Tag.Get("short"); short != "" {
		r, size := utf8.DecodeRuneInString(short)
		if size != len(short) || r == 'h' {
			return arg, fmt.Errorf("%w: short %q", ErrInvalidTag, short)
		}
		arg.Short = r
	}

	ft := field.Type
	switch {
	case ft == countType:
		arg.Kind = KindCount
		arg.IsFlag = true
		arg.Multiple = true
	case ft.Kind() == reflect.Bool:
		arg.Kind = KindBool
		arg.IsFlag = true
	case ft.Kind() == reflect.Pointer:
		if ft.Elem().Kind() == reflect.Bool {
			arg.Kind = KindBool
			arg.IsFlag = true
			break
		}
		kind, err := scalarKind(ft.Elem())
		if err != nil {
			return arg, err
		}
		arg.Kind = kind
	case ft.Kind() == reflect.Slice:
		kind, err := scalarKind(ft.Elem())
		if err != nil {
			return arg, err
		}
		arg.Kind = kind
		arg.Multiple = true
		arg.Required = !opts.OptionalSequences
		if req := field.Tag.Get("required"); req != "" {
			v, err := strconv.ParseBool(req)
			if err != nil {
				return arg, fmt.Errorf("%w: required %q", ErrInvalidTag, req)
			}
			arg.Required = v
		}
	default:
		kind, err := scalarKind(ft)
		if err != nil {
			return arg, err
		}
		arg.Kind = kind
		arg.Required = true
	}

	if enum := field.Tag.Get("enum"); enum != "" {
		if arg.Kind != KindString {
			return arg, fmt.Errorf("%w: enum on %s parameter", ErrInvalidTag, arg.Kind)
		}
		for _, v := range strings.Split(enum, ",") {
			if v = strings.TrimSpace(v); v != "" {
				arg.Enum = append(arg.Enum, v)
			}
		}
		arg.Kind = KindEnum
		arg.Completions = arg.Enum
	}

	if def, ok := field.Tag.Lookup("default"); ok {
		if arg.IsFlag {
			return arg, fmt.Errorf("%w: flags cannot carry a default", ErrInvalidTag)
		}
		if err := CheckValue(arg, def); err != nil {
			return arg, fmt.Errorf("%w: default: %v", ErrInvalidTag, err)
		}
		arg.Default = def
		arg.HasDefault = true
		arg.Required = false
	}
	return arg, nil
}

func scalarKind(t reflect.Type) (ValueKind, error) {
	if t == pathType {
		return KindPath, nil
	}
	switch t.Kind() {
	case reflect.String:
		return KindString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// CheckValue reports whether raw is a valid value for arg's kind.
func CheckValue(arg ArgMeta, raw string) error {
	switch arg.Kind {
	case KindInt:
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			if _, uerr := strconv.ParseUint(raw, 10, 64); uerr != nil {
				return fmt.Errorf("%q is not an integer", raw)
			}
		}
	case KindFloat:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return fmt.Errorf("%q is not a number", raw)
		}
	case KindBool:
		if _, err := strconv.ParseBool(raw); err != nil {
			return fmt.Errorf("%q is not a boolean", raw)
		}
	case KindPath:
		if strings.TrimSpace(raw) == "" {
			return errors.New("path is empty")
		}
	case KindEnum:
		for _, v := range arg.Enum {
			if v == raw {
				return nil
			}
		}
		return fmt.Errorf("%q is not one of %s", raw, strings.Join(arg.Enum, ", "))
	}
	return nil
}

func checkUnique(args []ArgMeta) error {
	names := make(map[string]bool, len(args))
	shorts := make(map[rune]string)
	for _, a := range args {
		if names[a.Name] {
			return fmt.Errorf("%w: duplicate argument name %q", ErrInvalidTag, a.Name)
		}
		names[a.Name] = true
		if a.Short == 0 {
			continue
		}
		if other, ok := shorts[a.Short]; ok {
			return fmt.Errorf("%w: shorthand -%c used by %q and %q", ErrInvalidTag, a.Short, other, a.Name)
		}
		shorts[a.Short] = a.Name
	}
	return nil
}

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// CheckResult reports whether values of t can be serialized by the output layer.
func CheckResult(t reflect.Type) error {
	if t == nil {
		return nil
	}
	return checkSerializable(t, map[reflect.Type]bool{})
}

func checkSerializable(t reflect.Type, seen map[reflect.Type]bool) error {
	if seen[t] {
		return nil
	}
	seen[t] = true

	if t.Implements(jsonMarshalerType) || reflect.PointerTo(t).Implements(jsonMarshalerType) {
		return nil
	}

	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return fmt.Errorf("%w: %s", ErrUnserializable, t)
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return checkSerializable(t.Elem(), seen)
	case reflect.Map:
		key := t.Key()
		switch {
		case key.Kind() == reflect.String,
			key.Kind() >= reflect.Int && key.Kind() <= reflect.Uint64,
			key.Implements(textMarshalerType):
		default:
			return fmt.Errorf("%w: map key %s", ErrUnserializable, key)
		}
		return checkSerializable(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("json") == "-" {
				continue
			}
			if err := checkSerializable(f.Type, seen); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
	}
	return nil
}

// KebabCase converts a Go identifier to a kebab-case argument name.
// Example: "ServiceName" -> "service-name", "HTTPPort" -> "http-port"
func KebabCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('-')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '_' {
			b.WriteByte('-')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
