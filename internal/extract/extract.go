// Package extract decodes the serialized structures embedded in scraped
// video rows (author metadata, mentions, hashtags). Extraction is
// best-effort: a malformed field yields a neutral default instead of an
// error, and the Result records whether that happened.
package extract

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Result carries an extracted value together with how it was obtained.
// OK is false when the input could not be parsed and Value is the neutral
// default; Err then holds the parse failure for diagnostics.
type Result[T any] struct {
	Value T
	OK    bool
	Err   error
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v, OK: true}
}

func defaulted[T any](v T, err error) Result[T] {
	return Result[T]{Value: v, Err: err}
}

// AuthorMeta parses the author metadata dict of a video. On failure the
// value is {"id": nil} so downstream dedup drops the row.
func AuthorMeta(raw string) Result[map[string]any] {
	v, err := ParseLiteral(raw)
	if err != nil {
		return defaulted(map[string]any{"id": nil}, err)
	}
	m, isMap := v.(map[string]any)
	if !isMap {
		return defaulted(map[string]any{"id": nil}, eris.Errorf("extract: author metadata is %T, not a dict", v))
	}
	return ok(m)
}

// ProfileID returns the author id embedded in a video's author metadata in
// string form. Missing or unparseable ids read as "None".
func ProfileID(raw string) string {
	meta := AuthorMeta(raw)
	return ValueString(meta.Value["id"])
}

// Mentions returns the comma-separated nicknames of a mention list.
func Mentions(raw string) Result[string] {
	return joinKey(raw, "nickName")
}

// Hashtags returns the comma-separated names of a hashtag list.
func Hashtags(raw string) Result[string] {
	return joinKey(raw, "name")
}

// joinKey collects key from every dict in a serialized list, dropping empty
// values, and joins them with ", ".
func joinKey(raw, key string) Result[string] {
	v, err := ParseLiteral(raw)
	if err != nil {
		return defaulted("", err)
	}
	items, isList := v.([]any)
	if !isList {
		return defaulted("", eris.Errorf("extract: expected a list, got %T", v))
	}

	var names []string
	for _, item := range items {
		m, isMap := item.(map[string]any)
		if !isMap {
			return defaulted("", eris.Errorf("extract: list item is %T, not a dict", item))
		}
		s, _ := m[key].(string)
		if s != "" {
			names = append(names, s)
		}
	}
	return ok(strings.Join(names, ", "))
}

// Flatten converts a nested dict into dotted column names, the same shape a
// JSON normalizer produces: {"a": {"b": 1}} -> {"a.b": "1"}. Lists are kept
// as a single serialized cell.
func Flatten(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	flattenInto(out, "", m)
	return out
}

func flattenInto(out map[string]string, prefix string, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		switch v := m[k].(type) {
		case map[string]any:
			flattenInto(out, name, v)
		case []any:
			out[name] = listString(v)
		case nil:
			out[name] = ""
		default:
			out[name] = ValueString(v)
		}
	}
}

func listString(items []any) string {
	parts := make([]string, len(items))
	for i, it := range items {
		switch v := it.(type) {
		case string:
			parts[i] = "'" + strings.ReplaceAll(v, "'", `\'`) + "'"
		case map[string]any:
			parts[i] = dictString(v)
		case []any:
			parts[i] = listString(v)
		default:
			parts[i] = ValueString(v)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func dictString(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "'" + k + "': " + strings.TrimPrefix(strings.TrimSuffix(listString([]any{m[k]}), "]"), "[")
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
