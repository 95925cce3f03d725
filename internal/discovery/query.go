package discovery

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"osmautolink/internal/osm"
)

var alternateNameKeys = []string{"alt_name", "official_name"}

// QueryOptions controls query rendering.
type QueryOptions struct {
	RequiredKeys    []string
	DefaultCity     string
	DefaultProvince string
}

// BuildQuery renders the search text for a POI with the given tags, e.g.
//
//	'Piekarnia' (alt_name='U Basi') near addr:street='Długa', addr:city='Radom'. POI category: shop='bakery'
//
// Values are quoted the way Python's repr quotes strings. Tag order is
// preserved; default city and province are appended when absent.
func BuildQuery(tags []osm.Tag, opts QueryOptions) string {
	tags = slices.Clone(tags)
	tags = setDefault(tags, "addr:city", opts.DefaultCity)
	tags = setDefault(tags, "addr:province", opts.DefaultProvince)

	var (
		name     string
		names    []string
		addr     []string
		required []string
	)
	for _, tag := range tags {
		switch {
		case tag.Key == "name":
			name = tag.Value
		case slices.Contains(alternateNameKeys, tag.Key):
			names = append(names, keyValue(tag))
		case strings.HasPrefix(tag.Key, "addr:"):
			addr = append(addr, keyValue(tag))
		case slices.Contains(opts.RequiredKeys, tag.Key):
			required = append(required, keyValue(tag))
		}
	}

	var sb strings.Builder
	sb.WriteString(PyRepr(name))
	if len(names) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(names, ", "))
	}
	sb.WriteString(" near ")
	sb.WriteString(strings.Join(addr, ", "))
	if len(required) > 0 {
		sb.WriteString(". POI category: ")
		sb.WriteString(strings.Join(required, ", "))
	}
	return norm.NFC.String(sb.String())
}

func setDefault(tags []osm.Tag, key, value string) []osm.Tag {
	if value == "" {
		return tags
	}
	for _, tag := range tags {
		if tag.Key == key {
			return tags
		}
	}
	return append(tags, osm.Tag{Key: key, Value: value})
}

func keyValue(tag osm.Tag) string {
	return tag.Key + "=" + PyRepr(tag.Value)
}

// PyRepr quotes s the way Python's repr does for str values: single quotes
// unless the text contains a single quote and no double quote.
func PyRepr(s string) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteRune(quote)
	for i, w := 0, 0; i < len(s); i += w {
		r, width := utf8.DecodeRuneInString(s[i:])
		w = width
		switch {
		case r == utf8.RuneError && width == 1:
			fmt.Fprintf(&sb, `\x%02x`, s[i])
		case r == quote || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == ' ' || unicode.IsPrint(r):
			sb.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			fmt.Fprintf(&sb, `\U%08x`, r)
		}
	}
	sb.WriteRune(quote)
	return sb.String()
}
