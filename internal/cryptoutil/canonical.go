package cryptoutil

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Canonicalize produces the deterministic byte representation used as
// signature input. Mappings are serialised with keys in ascending codepoint
// order; sequences preserve insertion order; scalars use the minimal JSON
// form. The result is identical for equal values regardless of map
// iteration order or the caller's field ordering, and is idempotent:
// Canonicalize(Canonicalize-decoded(x)) == Canonicalize(x).
func Canonicalize(v any) ([]byte, error) {
	var sb strings.Builder
	if err := writeCanonical(&sb, v); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func writeCanonical(sb *strings.Builder, v any) error {
	switch value := v.(type) {
	case nil:
		sb.WriteString("null")
		return nil
	case bool:
		if value {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
		return nil
	case string:
		writeCanonicalString(sb, value)
		return nil
	case float64:
		writeCanonicalNumber(sb, value)
		return nil
	case int:
		sb.WriteString(strconv.Itoa(value))
		return nil
	case int64:
		sb.WriteString(strconv.FormatInt(value, 10))
		return nil
	case []any:
		return writeCanonicalArray(sb, value)
	case map[string]any:
		return writeCanonicalObject(sb, value)
	default:
		return fmt.Errorf("cryptoutil: canonicalize: unsupported type %T", v)
	}
}

func writeCanonicalArray(sb *strings.Builder, values []any) error {
	sb.WriteByte('[')
	for i, element := range values {
		if i > 0 {
			sb.WriteByte(',')
		}
		if err := writeCanonical(sb, element); err != nil {
			return err
		}
	}
	sb.WriteByte(']')
	return nil
}

func writeCanonicalObject(sb *strings.Builder, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessByCodepoint(keys[i], keys[j])
	})

	sb.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeCanonicalString(sb, key)
		sb.WriteByte(':')
		if err := writeCanonical(sb, obj[key]); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

// lessByCodepoint orders strings by ascending Unicode codepoint, which for
// Go's UTF-8-encoded strings coincides with byte-wise comparison.
func lessByCodepoint(a, b string) bool {
	return a < b
}

func writeCanonicalString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
}

// writeCanonicalNumber renders a float64 in the minimal JSON form: integral
// values below 1e15 in magnitude as plain integers with no trailing ".0";
// every other value in strconv's shortest 'g' form, with no trailing zeros
// and an exponent that carries its sign and at least two digits
// ("1e+21", "1e-07").
func writeCanonicalNumber(sb *strings.Builder, f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		sb.WriteString("null")
		return
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		sb.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}
