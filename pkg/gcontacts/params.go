package gcontacts

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

type valueKind int

const (
	kindAbsent valueKind = iota
	kindString
	kindInt
	kindBool
	kindTime
)

// Value is a query parameter value. The zero Value is absent: a Param
// carrying it is dropped when encoding or translating. Coercion to the wire
// string form happens per kind, not by inspecting arbitrary types at runtime.
type Value struct {
	kind valueKind
	s    string
	n    int
	b    bool
	t    time.Time
}

func String(s string) Value { return Value{kind: kindString, s: s} }
func Int(n int) Value       { return Value{kind: kindInt, n: n} }
func Bool(b bool) Value     { return Value{kind: kindBool, b: b} }
func Time(t time.Time) Value {
	return Value{kind: kindTime, t: t}
}

func (v Value) absent() bool { return v.kind == kindAbsent }

// wire renders the value as the string the feed API expects: booleans as
// "1"/"0", timestamps as 2006-01-02T15:04:05-07:00.
func (v Value) wire() string {
	switch v.kind {
	case kindString:
		return v.s
	case kindInt:
		return strconv.Itoa(v.n)
	case kindBool:
		if v.b {
			return "1"
		}
		return "0"
	case kindTime:
		return v.t.Format("2006-01-02T15:04:05-07:00")
	}
	return ""
}

// Param is one query parameter.
type Param struct {
	Key   string
	Value Value
}

// Params is an ordered parameter list. Order is preserved through merging,
// translation and encoding.
type Params []Param

// get returns the first non-absent value for key.
func (p Params) get(key string) (Value, bool) {
	for _, o := range p {
		if o.Key == key && !o.Value.absent() {
			return o.Value, true
		}
	}
	return Value{}, false
}

func (p Params) has(key string) bool {
	_, ok := p.get(key)
	return ok
}

// hasKey reports whether key appears at all, absent value or not.
func (p Params) hasKey(key string) bool {
	for _, o := range p {
		if o.Key == key {
			return true
		}
	}
	return false
}

// Encode builds the URL-encoded query string. Absent values are skipped,
// keys and values are percent-escaped.
func (p Params) Encode() string {
	var b strings.Builder
	for _, o := range p {
		if o.Value.absent() {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(o.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(o.Value.wire()))
	}
	return b.String()
}

// translate maps the client-facing fetch options onto the wire parameter
// names of the feed endpoint. The start index is 1-based on the wire.
// "order" injects sortorder=descending unless the caller set "descending"
// themselves; the check runs against the original option set, so a later
// "descending" entry still wins.
func translate(opts Params) Params {
	out := make(Params, 0, len(opts)+1)
	for _, o := range opts {
		if o.Value.absent() {
			continue
		}
		switch o.Key {
		case "limit":
			out = append(out, Param{"max-results", o.Value})
		case "offset":
			v := o.Value
			if v.kind == kindInt {
				v = Int(v.n + 1)
			}
			out = append(out, Param{"start-index", v})
		case "order":
			out = append(out, Param{"orderby", o.Value})
			if !opts.has("descending") {
				out = append(out, Param{"sortorder", String("descending")})
			}
		case "descending":
			dir := "ascending"
			if o.Value.kind == kindBool && o.Value.b {
				dir = "descending"
			}
			out = append(out, Param{"sortorder", String(dir)})
		case "updated_after":
			out = append(out, Param{"updated-min", o.Value})
		default:
			out = append(out, o)
		}
	}
	return out
}
