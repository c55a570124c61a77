package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Validator validates settings data against a schema.
type Validator struct {
	schema *Schema

	strictMode bool // unknown properties are errors
	maxErrors  int  // 0 = unlimited
}

// NewValidator creates a validator for the given schema.
func NewValidator(schema *Schema) *Validator {
	return &Validator{
		schema:    schema,
		maxErrors: 100,
	}
}

// WithStrictMode enables strict mode (unknown properties are errors).
func (v *Validator) WithStrictMode(strict bool) *Validator {
	v.strictMode = strict
	return v
}

// WithMaxErrors sets the maximum number of errors to collect.
func (v *Validator) WithMaxErrors(max int) *Validator {
	v.maxErrors = max
	return v
}

// Validate validates settings data against the schema. The returned
// error, if any, is a *ValidationErrors with paths in sorted order.
func (v *Validator) Validate(data map[string]any) error {
	if v.schema == nil {
		return nil
	}

	errs := &ValidationErrors{}
	v.validateValue("", data, v.schema, errs)
	return errs.AsError()
}

func (v *Validator) validateValue(path string, value any, schema *Schema, errs *ValidationErrors) {
	if schema == nil || v.full(errs) {
		return
	}

	if schema.Ref != "" {
		if ref := v.resolveRef(schema.Ref); ref != nil {
			v.validateValue(path, value, ref, errs)
		}
		return
	}

	if len(schema.Enum) > 0 {
		v.validateEnum(path, value, schema.Enum, errs)
	}

	if !schema.Type.IsEmpty() {
		v.validateType(path, value, schema, errs)
	}
}

func (v *Validator) validateType(path string, value any, schema *Schema, errs *ValidationErrors) {
	for _, typ := range schema.Type.Types {
		if !matchesType(value, typ) {
			continue
		}
		switch typ {
		case "string":
			v.validateString(path, value.(string), schema, errs)
		case "number", "integer":
			v.validateNumber(path, value, schema, errs)
		case "array":
			v.validateArray(path, value, schema, errs)
		case "object":
			v.validateObject(path, value.(map[string]any), schema, errs)
		}
		return
	}

	errs.Errors = append(errs.Errors, typeError(path, schema.Type.String(), value))
}

func matchesType(value any, typ string) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		return isNumber(value)
	case "integer":
		return isInteger(value)
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		return isArray(value)
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "null":
		return value == nil
	default:
		return false
	}
}

func (v *Validator) validateString(path, value string, schema *Schema, errs *ValidationErrors) {
	if schema.MinLength != nil && len(value) < *schema.MinLength {
		errs.Add(path, fmt.Sprintf("string length %d is less than minimum %d", len(value), *schema.MinLength), value)
	}
}

func (v *Validator) validateNumber(path string, value any, schema *Schema, errs *ValidationErrors) {
	f := toFloat64(value)

	if schema.Minimum != nil && f < *schema.Minimum {
		errs.Add(path, fmt.Sprintf("value %v is less than minimum %v", value, *schema.Minimum), value)
	}
	if schema.Maximum != nil && f > *schema.Maximum {
		errs.Add(path, fmt.Sprintf("value %v is greater than maximum %v", value, *schema.Maximum), value)
	}
}

func (v *Validator) validateArray(path string, value any, schema *Schema, errs *ValidationErrors) {
	arr := toSlice(value)

	if schema.MinItems != nil && len(arr) < *schema.MinItems {
		errs.Add(path, fmt.Sprintf("array has %d items, minimum is %d", len(arr), *schema.MinItems), value)
	}

	if schema.Items != nil {
		for i, item := range arr {
			v.validateValue(fmt.Sprintf("%s[%d]", path, i), item, schema.Items, errs)
		}
	}
}

func (v *Validator) validateObject(path string, obj map[string]any, schema *Schema, errs *ValidationErrors) {
	for _, req := range schema.Required {
		if _, exists := obj[req]; !exists {
			errs.Add(joinPath(path, req), "required setting is missing", nil)
		}
	}

	// Sorted so error order is stable across runs.
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		propPath := joinPath(path, name)
		if propSchema := schema.Property(name); propSchema != nil {
			v.validateValue(propPath, obj[name], propSchema, errs)
		} else if (v.strictMode || !schema.AllowsAdditionalProperties()) && !v.full(errs) {
			errs.Add(propPath, "unknown setting", obj[name])
		}
	}
}

func (v *Validator) full(errs *ValidationErrors) bool {
	return v.maxErrors > 0 && errs.Len() >= v.maxErrors
}

func (v *Validator) validateEnum(path string, value any, allowed []any, errs *ValidationErrors) {
	for _, a := range allowed {
		if valuesEqual(value, a) {
			return
		}
	}
	errs.Add(path, fmt.Sprintf("value %v is not one of %v", value, allowed), value)
}

// resolveRef resolves a "#/$defs/Name" reference.
func (v *Validator) resolveRef(ref string) *Schema {
	if v.schema == nil || v.schema.Defs == nil {
		return nil
	}
	if name, ok := strings.CutPrefix(ref, "#/$defs/"); ok {
		return v.schema.Defs[name]
	}
	return nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

func isInteger(v any) bool {
	switch val := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return float64(int64(val)) == val
	default:
		return false
	}
}

func isArray(v any) bool {
	switch v.(type) {
	case []any, []string:
		return true
	default:
		return false
	}
}

func toFloat64(v any) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	case float64:
		return val
	case int32:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return 0
	}
}

func toSlice(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case []string:
		result := make([]any, len(val))
		for i, s := range val {
			result[i] = s
		}
		return result
	default:
		return nil
	}
}

func valuesEqual(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		return toFloat64(a) == toFloat64(b)
	}
	return a == b
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
