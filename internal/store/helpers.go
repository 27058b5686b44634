package store

import "encoding/json"

// marshalMetadata converts edge metadata to JSON text for storage.
func marshalMetadata(meta map[string]string) string {
	if len(meta) == 0 {
		return "{}"
	}
	b, _ := json.Marshal(meta)
	return string(b)
}

// unmarshalMetadata converts JSON text back to a map. Never returns nil.
func unmarshalMetadata(s string) map[string]string {
	meta := make(map[string]string)
	if s == "" || s == "null" {
		return meta
	}
	_ = json.Unmarshal([]byte(s), &meta)
	return meta
}

// nullString maps a nil pointer to NULL.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
