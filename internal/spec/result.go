package spec

import "encoding/json"

// TaskResult is the schema-validated output of one task execution. The
// payload is kept as the decoded JSON object; typed accessors cover the
// shapes the runtime itself inspects.
type TaskResult struct {
	Task string         `json:"task"`
	Data map[string]any `json:"data"`
}

// Success reports the result's modeled business outcome. A missing
// "success" key means the task does not model soft failure and counts
// as successful.
func (r TaskResult) Success() bool {
	v, ok := r.Data["success"]
	if !ok {
		return true
	}
	b, ok := v.(bool)
	return !ok || b
}

// String returns the string value at key, or empty.
func (r TaskResult) String(key string) string {
	s, _ := r.Data[key].(string)
	return s
}

// Number returns the numeric value at key, or zero. JSON numbers decode
// as float64.
func (r TaskResult) Number(key string) float64 {
	switch v := r.Data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

// Slice returns the array value at key, or nil.
func (r TaskResult) Slice(key string) []any {
	s, _ := r.Data[key].([]any)
	return s
}

// Object returns the nested object value at key, or nil.
func (r TaskResult) Object(key string) map[string]any {
	m, _ := r.Data[key].(map[string]any)
	return m
}
