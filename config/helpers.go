package config

// Safe type assertion helpers for dynamic property maps. Island properties
// arrive as decoded JSON, so every read goes through one of these instead of
// a bare type assertion.

// GetString safely extracts a string value from a property map
func GetString(props map[string]any, key string, defaultVal string) string {
	if val, ok := props[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}

// GetInt safely extracts an integer value from a property map. JSON numbers
// decode as float64, so numeric types are converted.
func GetInt(props map[string]any, key string, defaultVal int) int {
	if val, ok := props[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultVal
}

// GetBool safely extracts a boolean value from a property map
func GetBool(props map[string]any, key string, defaultVal bool) bool {
	if val, ok := props[key]; ok {
		if boolVal, ok := val.(bool); ok {
			return boolVal
		}
	}
	return defaultVal
}

// GetStringSlice safely extracts a string slice from a property map,
// converting []any elements when every element is a string.
func GetStringSlice(props map[string]any, key string, defaultVal []string) []string {
	if val, ok := props[key]; ok {
		if slice, ok := val.([]string); ok {
			return slice
		}
		if interfaceSlice, ok := val.([]any); ok {
			result := make([]string, 0, len(interfaceSlice))
			for _, item := range interfaceSlice {
				if str, ok := item.(string); ok {
					result = append(result, str)
				}
			}
			if len(result) == len(interfaceSlice) {
				return result
			}
		}
	}
	return defaultVal
}

// HasKey checks if a key exists in the property map
func HasKey(props map[string]any, key string) bool {
	_, ok := props[key]
	return ok
}
