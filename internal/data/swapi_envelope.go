package data

// envelope wraps a SWAPI JSON response body and normalizes its inconsistent
// shapes. The upstream wraps the same records three different ways:
//
//	single resource: { "result": { "properties": { ... } } }
//	people list:     { "results": [ { "uid": "1", ... } ] }
//	films list:      { "result": [ { "uid": "1", "properties": { ... } } ] }
//
// Accessors apply the documented fallback order and never assume a fixed
// shape beyond it.
type envelope struct {
	body map[string]any
}

func newEnvelope(body map[string]any) *envelope {
	if body == nil {
		body = map[string]any{}
	}
	return &envelope{body: body}
}

// results returns the list items of a list response: "results" when present,
// otherwise "result" when it is a non-empty list, otherwise empty.
func (e *envelope) results() []map[string]any {
	if items, ok := e.body["results"].([]any); ok {
		return asObjectList(items)
	}

	if items, ok := e.body["result"].([]any); ok && len(items) > 0 {
		return asObjectList(items)
	}

	return nil
}

// result returns the single result object of a detail response.
func (e *envelope) result() map[string]any {
	if result, ok := e.body["result"].(map[string]any); ok {
		return result
	}
	return map[string]any{}
}

// properties returns the resource fields of a detail response:
// result.properties, falling back to result, falling back to the bare body.
func (e *envelope) properties() map[string]any {
	result := e.result()
	if len(result) == 0 {
		result = e.body
	}

	if props, ok := result["properties"].(map[string]any); ok {
		return props
	}

	return result
}

// itemProperties returns the resource fields of one list item: the item's
// "properties" object, falling back to the item itself.
func itemProperties(item map[string]any) map[string]any {
	if props, ok := item["properties"].(map[string]any); ok {
		return props
	}
	return item
}

// totalRecords returns the upstream's reported total record count.
func (e *envelope) totalRecords() int {
	return asInt(e.body["total_records"])
}

// totalPages returns the upstream's reported page count, defaulting to 1.
func (e *envelope) totalPages() int {
	if pages := asInt(e.body["total_pages"]); pages > 0 {
		return pages
	}
	return 1
}

// hasNextPage reports whether the upstream advertises a next page link.
func (e *envelope) hasNextPage() bool {
	next, ok := e.body["next"]
	if !ok || next == nil {
		return false
	}
	s, isString := next.(string)
	return !isString || s != ""
}

func asObjectList(items []any) []map[string]any {
	objects := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			objects = append(objects, obj)
		}
	}
	return objects
}

// asInt converts the loosely typed numbers SWAPI returns (JSON floats or
// stringified ints) to int, defaulting to 0.
func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		total := 0
		for _, c := range n {
			if c < '0' || c > '9' {
				return 0
			}
			total = total*10 + int(c-'0')
		}
		return total
	default:
		return 0
	}
}

// asString converts a value to string, defaulting to empty.
func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asStringList converts a JSON array to its string elements.
func asStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}

	strings := make([]string, 0, len(items))
	for _, item := range items {
		if s, isString := item.(string); isString {
			strings = append(strings, s)
		}
	}
	return strings
}
