package validation

import (
	"strings"

	"github.com/openintake/intaked/internal/schema"
)

// NormalizeValue canonicalizes a value that already passed ValidateField:
// NFC + trim for text, lowercased email, YYYY-MM-DD dates, the declared
// option spelling for enums, bare digits for identifiers.
func NormalizeValue(f *schema.FieldSpec, raw string) string {
	value := canonicalInput(raw)
	if value == "" {
		return ""
	}

	switch f.Type {
	case schema.FieldTypeEmail:
		return strings.ToLower(value)

	case schema.FieldTypeDate:
		if t, ok := parseDate(value); ok {
			return t.Format("2006-01-02")
		}
		return value

	case schema.FieldTypeEnum:
		if opt, ok := matchOption(f.Options, value); ok {
			return opt
		}
		return value

	case schema.FieldTypeSIN:
		return stripSeparators(value)

	case schema.FieldTypeCRABusinessNumber:
		return strings.ToUpper(stripSeparators(value))

	default:
		return value
	}
}

// NormalizeLanguage canonicalizes a preferred-language value.
func NormalizeLanguage(raw string) string {
	return strings.ToLower(canonicalInput(raw))
}

// NormalizeChannel canonicalizes a preferred-channel value.
func NormalizeChannel(raw string) string {
	return strings.ToLower(canonicalInput(raw))
}
