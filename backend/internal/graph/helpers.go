package graph

// ============================================================================
// Helper Functions
// ============================================================================

func int64FromRow(rows []map[string]interface{}, key string) int64 {
	if len(rows) == 0 {
		return 0
	}
	return int64FromMap(rows[0], key)
}

func int64FromMap(m map[string]interface{}, key string) int64 {
	val, ok := m[key]
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	if f, ok := val.(float64); ok {
		return int64(f)
	}
	return 0
}

// StringFromRow extracts a string column from a result row, with a default
// for missing or mistyped values.
func StringFromRow(row map[string]interface{}, key, defaultValue string) string {
	val, ok := row[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}
