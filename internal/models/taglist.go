package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// TagList is a list of short labels (skills, requested feedback) that may
// arrive as a native list, a JSON-encoded string, or a bracket/comma
// delimited string. Whatever the encoding, code holding a TagList only ever
// sees trimmed, non-empty entries.
type TagList []string

// NormalizeList converts any supported encoding into a list of trimmed,
// non-empty strings. It never fails; unparseable input degrades to
// delimiter splitting. NormalizeList(NormalizeList(x)) == NormalizeList(x).
func NormalizeList(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return []string{}
	case TagList:
		return cleanEntries([]string(v))
	case []string:
		return cleanEntries(v)
	case []any:
		entries := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			if s, ok := item.(string); ok {
				entries = append(entries, s)
				continue
			}
			entries = append(entries, fmt.Sprint(item))
		}
		return cleanEntries(entries)
	case string:
		return normalizeString(v)
	case []byte:
		return normalizeString(string(v))
	case json.RawMessage:
		return normalizeString(string(v))
	default:
		return normalizeString(fmt.Sprint(v))
	}
}

func normalizeString(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}

	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err == nil {
		switch d := decoded.(type) {
		case []any:
			return NormalizeList(d)
		case string:
			// JSON-encoded string; the payload may itself be delimited.
			if d != s {
				return normalizeString(d)
			}
		case nil:
			return []string{}
		}
	}

	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '"', '\'':
			return -1
		}
		return r
	}, s)
	return cleanEntries(strings.Split(stripped, ","))
}

func cleanEntries(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// Value stores the list as a JSON array.
func (t TagList) Value() (driver.Value, error) {
	b, err := json.Marshal(NormalizeList(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan accepts JSON arrays as well as legacy delimited text columns.
func (t *TagList) Scan(src any) error {
	*t = TagList(NormalizeList(src))
	return nil
}

// GormDataType keeps the column portable between Postgres and SQLite.
func (TagList) GormDataType() string {
	return "text"
}

// MarshalJSON always emits an array, never null.
func (t TagList) MarshalJSON() ([]byte, error) {
	return json.Marshal(NormalizeList(t))
}

// UnmarshalJSON tolerates arrays, JSON strings and delimited strings.
func (t *TagList) UnmarshalJSON(b []byte) error {
	var decoded any
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}
	*t = TagList(NormalizeList(decoded))
	return nil
}
