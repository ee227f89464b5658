package weekly

// Accessors for oracle JSON payloads. Missing or mistyped fields fall
// back to the given default rather than failing the unit.

func getString(payload map[string]any, key, fallback string) string {
	if v, ok := payload[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func getFloat(payload map[string]any, key string, fallback float64) float64 {
	if v, ok := payload[key].(float64); ok {
		return v
	}
	return fallback
}

func getInt(payload map[string]any, key string, fallback int) int {
	if v, ok := payload[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func getMap(payload map[string]any, key string) map[string]any {
	if v, ok := payload[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

func getStringList(payload map[string]any, key string) []string {
	items, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
