package loader

import (
	"bytes"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

var (
	errInvalidJSON = errors.New("invalid JSON")
	errNotObject   = errors.New("top-level value must be an object")
)

// prettyOptions matches the indentation editors use for settings files.
var prettyOptions = &pretty.Options{Width: 80, Prefix: "", Indent: "    ", SortKeys: false}

// jsonCodec reads with gjson and edits with sjson, so key order and
// untouched values survive writes.
type jsonCodec struct{}

func (jsonCodec) decode(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return make(map[string]any), nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, errInvalidJSON
	}

	m, ok := gjson.ParseBytes(raw).Value().(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return m, nil
}

func (jsonCodec) order(raw []byte, path []string) ([]string, error) {
	var r gjson.Result
	if len(path) == 0 {
		r = gjson.ParseBytes(raw)
	} else {
		r = gjson.GetBytes(raw, jsonPath(path))
	}
	if !r.IsObject() {
		return nil, nil
	}

	var keys []string
	r.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys, nil
}

func (jsonCodec) set(raw []byte, path []string, value any) ([]byte, error) {
	if len(path) == 0 {
		return nil, errors.New("empty path")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	out, err := sjson.SetBytes(raw, jsonPath(path), value)
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions(out, prettyOptions), nil
}

func (jsonCodec) delete(raw []byte, path []string) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return raw, nil
	}

	out, err := sjson.DeleteBytes(raw, jsonPath(path))
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions(out, prettyOptions), nil
}

// jsonPath joins key segments into a gjson/sjson path, escaping the
// characters the path syntax gives meaning to.
func jsonPath(path []string) string {
	escaped := make([]string, len(path))
	for i, p := range path {
		escaped[i] = escapeJSONPathComponent(p)
	}
	return strings.Join(escaped, ".")
}

func escapeJSONPathComponent(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
