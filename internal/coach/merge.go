package coach

// mergeMaps deep-merges src into dst and returns dst. Nested maps merge
// recursively and scalars replace. List behavior differs by record
// type: plan updates replace lists (a rewritten week replaces the old
// one), profile updates append to them (goals and injury history are
// logs, not settings).
func mergeMaps(dst, src map[string]any, appendLists bool) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, val := range src {
		switch v := val.(type) {
		case map[string]any:
			if existing, ok := dst[key].(map[string]any); ok {
				dst[key] = mergeMaps(existing, v, appendLists)
				continue
			}
			dst[key] = v
		case []any:
			if appendLists {
				if existing, ok := dst[key].([]any); ok {
					dst[key] = append(existing, v...)
					continue
				}
			}
			dst[key] = v
		default:
			dst[key] = v
		}
	}
	return dst
}
