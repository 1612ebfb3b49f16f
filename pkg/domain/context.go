package domain

// MergeContext merges a patch into an existing session context and returns
// the result. Semantics are shallow, last-write-wins per top-level key, with
// one level of map spread: when both sides hold a map for the same key, the
// patch keys overwrite the existing ones without recursing further. This is
// what nested objects like "demographics" rely on; a deep recursive merge
// would change accumulation behavior.
//
// Neither input is mutated. Merging the same patch twice is idempotent.
func MergeContext(existing, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(patch))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range patch {
		patchMap, patchIsMap := v.(map[string]any)
		baseMap, baseIsMap := merged[k].(map[string]any)
		if patchIsMap && baseIsMap {
			sub := make(map[string]any, len(baseMap)+len(patchMap))
			for bk, bv := range baseMap {
				sub[bk] = bv
			}
			for pk, pv := range patchMap {
				sub[pk] = pv
			}
			merged[k] = sub
			continue
		}
		merged[k] = v
	}
	return merged
}

// ContextValue resolves a possibly dotted path ("demographics.age") against
// a session context, descending through nested maps one key at a time.
func ContextValue(ctx map[string]any, path string) (any, bool) {
	if ctx == nil || path == "" {
		return nil, false
	}
	var current any = ctx
	start := 0
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '.' {
			continue
		}
		key := path[start:i]
		start = i + 1
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
