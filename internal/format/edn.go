package format

import (
	"bytes"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"
)

// Keys whose string values are instants (RFC 3339) or calendar dates (YYYY-MM-DD).
var instKeys = map[string]bool{
	"createdAt": true,
	"at":        true,
	"date":      true,
}

// Keys written ahead of the alphabetical rest, so records read id-first.
var leadingKeys = []string{"id", "name"}

// WriteEDN writes v as EDN. Values are shaped by their json tags: keys become kebab-case
// keywords, timestamps and lead dates become #inst literals, ids stay strings.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}

	ew := &ednWriter{pretty: pretty}
	ew.value("", x, 0)
	ew.buf.WriteByte('\n')
	_, err = w.Write(ew.buf.Bytes())
	return err
}

type ednWriter struct {
	buf    bytes.Buffer
	pretty bool
}

// value writes x; key is the map key x was found under, or "" inside vectors and at the top.
func (ew *ednWriter) value(key string, x any, depth int) {
	switch t := x.(type) {
	case nil:
		ew.buf.WriteString("nil")
	case bool:
		ew.buf.WriteString(strconv.FormatBool(t))
	case json.Number:
		ew.buf.WriteString(t.String())
	case string:
		if instKeys[key] && isInstant(t) {
			ew.buf.WriteString("#inst ")
		}
		ew.buf.WriteString(strconv.Quote(t))
	case []any:
		ew.seq('[', ']', len(t), depth, func(i int) {
			ew.value("", t[i], depth+1)
		})
	case map[string]any:
		keys := orderedKeys(t)
		ew.seq('{', '}', len(keys), depth, func(i int) {
			k := keys[i]
			ew.buf.WriteString(keyword(k))
			ew.buf.WriteByte(' ')
			ew.value(k, t[k], depth+1)
		})
	default:
		b, _ := json.Marshal(t)
		ew.buf.WriteString(strconv.Quote(string(b)))
	}
}

// seq writes n items between open and close, one per line when pretty.
func (ew *ednWriter) seq(open, close byte, n, depth int, item func(i int)) {
	ew.buf.WriteByte(open)
	for i := 0; i < n; i++ {
		switch {
		case ew.pretty:
			ew.buf.WriteByte('\n')
			ew.buf.WriteString(strings.Repeat("  ", depth+1))
		case i > 0:
			ew.buf.WriteByte(' ')
		}
		item(i)
	}
	if ew.pretty && n > 0 {
		ew.buf.WriteByte('\n')
		ew.buf.WriteString(strings.Repeat("  ", depth))
	}
	ew.buf.WriteByte(close)
}

func orderedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for _, k := range leadingKeys {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if k != "id" && k != "name" {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// keyword turns a json key into an EDN keyword: sortOrder => :sort-order, "board id" => :board-id.
func keyword(k string) string {
	var sb strings.Builder
	sb.WriteByte(':')
	prevLower := false
	for _, r := range strings.TrimSpace(k) {
		switch {
		case unicode.IsSpace(r) || r == '_':
			sb.WriteByte('-')
			prevLower = false
			continue
		case unicode.IsUpper(r):
			if prevLower {
				sb.WriteByte('-')
			}
			r = unicode.ToLower(r)
			prevLower = false
		default:
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isInstant(s string) bool {
	if _, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return true
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}
