package layer

import (
	"sort"
	"strings"
)

// cloneValue creates a deep copy of a value.
func cloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		return cloneSlice(v)
	case []string:
		return append([]string(nil), v...)
	default:
		return val
	}
}

// GetByKeys retrieves a value from a nested map by its key segments.
func GetByKeys(data map[string]any, keys ...string) (any, bool) {
	if data == nil || len(keys) == 0 {
		return nil, false
	}

	current := any(data)
	for _, k := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		val, exists := m[k]
		if !exists {
			return nil, false
		}
		current = val
	}

	return current, true
}

// SetByKeys sets a value in a nested map by its key segments, creating
// intermediate maps as needed. It reports false when an intermediate
// segment holds a non-map value.
func SetByKeys(data map[string]any, keys []string, value any) bool {
	if data == nil || len(keys) == 0 {
		return false
	}

	current := data
	for _, k := range keys[:len(keys)-1] {
		next, exists := current[k]
		if !exists {
			m := make(map[string]any)
			current[k] = m
			current = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return false
		}
		current = m
	}

	current[keys[len(keys)-1]] = value
	return true
}

// DeleteByKeys removes a value from a nested map by its key segments.
func DeleteByKeys(data map[string]any, keys ...string) bool {
	if data == nil || len(keys) == 0 {
		return false
	}

	current := data
	for _, k := range keys[:len(keys)-1] {
		next, ok := current[k].(map[string]any)
		if !ok {
			return false
		}
		current = next
	}

	key := keys[len(keys)-1]
	if _, exists := current[key]; exists {
		delete(current, key)
		return true
	}
	return false
}

// FlattenMap flattens a nested map into a single-level map with dot-separated keys.
func FlattenMap(data map[string]any) map[string]any {
	result := make(map[string]any)
	flattenMapRecursive(data, "", result)
	return result
}

func flattenMapRecursive(data map[string]any, prefix string, result map[string]any) {
	for key, val := range data {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := val.(map[string]any); ok && len(nested) > 0 {
			flattenMapRecursive(nested, fullKey, result)
		} else {
			result[fullKey] = val
		}
	}
}

// DiffMaps returns the sorted paths that differ between two maps.
func DiffMaps(old, new map[string]any) (added, modified, removed []string) {
	oldFlat := FlattenMap(old)
	newFlat := FlattenMap(new)

	for path, newVal := range newFlat {
		if oldVal, exists := oldFlat[path]; exists {
			if !valuesEqual(oldVal, newVal) {
				modified = append(modified, path)
			}
		} else {
			added = append(added, path)
		}
	}

	for path := range oldFlat {
		if _, exists := newFlat[path]; !exists {
			removed = append(removed, path)
		}
	}

	sort.Strings(added)
	sort.Strings(modified)
	sort.Strings(removed)
	return added, modified, removed
}

// ChangedFormatters returns the names of formatters whose blocks differ
// between two layer snapshots, and whether any top-level key changed.
func ChangedFormatters(old, new map[string]any) (names []string, global bool) {
	added, modified, removed := DiffMaps(old, new)

	seen := make(map[string]bool)
	for _, group := range [][]string{added, modified, removed} {
		for _, path := range group {
			parts := strings.SplitN(path, ".", 3)
			if parts[0] != FormattersKey {
				global = true
				continue
			}
			if len(parts) < 2 {
				continue
			}
			if !seen[parts[1]] {
				seen[parts[1]] = true
				names = append(names, parts[1])
			}
		}
	}

	sort.Strings(names)
	return names, global
}

// valuesEqual compares two values for equality.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch va := a.(type) {
	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok {
			return false
		}
		return mapsEqual(va, vb)
	case []any:
		vb, ok := b.([]any)
		if !ok {
			return false
		}
		return slicesEqual(va, vb)
	case []string:
		vb, ok := b.([]string)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if va[i] != vb[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !valuesEqual(va, vb) {
			return false
		}
	}
	return true
}

func slicesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
