package input

import "strings"

// MaxObjectDepth bounds the recursive sanitization walk. Subtrees nested
// deeper than this are dropped wholesale: an adversarially deep payload
// must never translate into stack growth.
const MaxObjectDepth = 32

// dangerousKeys are dropped entirely wherever they appear. Writing through
// any of them is the prototype-pollution pattern; no legitimate storefront
// payload carries them.
var dangerousKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// reservedKeyPrefix marks keys that downstream document stores interpret as
// query operators. Such keys are kept but renamed so they arrive as data.
const reservedKeyPrefix = '$'

// SanitizeObject walks an arbitrarily nested map/slice structure and returns
// a sanitized copy. String leaves go through [SanitizeInput]; dangerous key
// names are dropped; keys starting with '$' are renamed with a leading
// underscore, unless the renamed form is itself a key in the same map, in
// which case the operator key is dropped and the genuine value wins. The
// input is never mutated.
//
// The walk uses an explicit worklist with a depth bound instead of
// recursion, so adversarial nesting depth cannot exhaust the stack.
func SanitizeObject(obj map[string]any) map[string]any {
	out, _ := walkMap(obj, SanitizeInput)
	return out
}

// SanitizeForJSON is the gentler variant for data flowing back to a client.
// Strings that look like URLs or paths are preserved verbatim (over-escaping
// a legitimate link breaks it); everything else is HTML-escaped rather than
// stripped. Key handling is identical to [SanitizeObject].
func SanitizeForJSON(obj map[string]any) map[string]any {
	out, _ := walkMap(obj, escapeUnlessURL)
	return out
}

func escapeUnlessURL(s string) string {
	if looksLikeURL(s) {
		return s
	}
	return EscapeHTML(s)
}

// looksLikeURL reports whether s is plausibly a URL or absolute path that
// must round-trip verbatim.
func looksLikeURL(s string) bool {
	if strings.HasPrefix(s, "/") {
		return true
	}
	lower := strings.ToLower(s)
	for _, prefix := range []string{"http://", "https://", "data:", "blob:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// frame is one worklist entry: a source container and the sanitized
// container its cleaned children are written into.
type frame struct {
	srcMap map[string]any
	dstMap map[string]any

	srcSlice []any
	dstSlice []any

	depth int
}

func walkMap(obj map[string]any, clean func(string) string) (map[string]any, bool) {
	if obj == nil {
		return nil, true
	}

	root := make(map[string]any, len(obj))
	work := []frame{{srcMap: obj, dstMap: root, depth: 0}}
	complete := true

	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]

		if f.srcMap != nil {
			for key, value := range f.srcMap {
				name, keep := sanitizeKey(key)
				if !keep {
					complete = false
					continue
				}
				if name != key {
					// The neutral name is taken by a genuine key: drop
					// the operator key so the rename can never clobber
					// real data, regardless of map iteration order.
					if _, taken := f.srcMap[name]; taken {
						complete = false
						continue
					}
				}
				out, child, ok := sanitizeValue(value, f.depth, clean)
				if !ok {
					complete = false
					continue
				}
				f.dstMap[name] = out
				if child != nil {
					work = append(work, *child)
				}
			}
			continue
		}

		for i, value := range f.srcSlice {
			out, child, ok := sanitizeValue(value, f.depth, clean)
			if !ok {
				complete = false
				continue
			}
			f.dstSlice[i] = out
			if child != nil {
				work = append(work, *child)
			}
		}
	}

	return root, complete
}

func sanitizeKey(key string) (string, bool) {
	if _, dangerous := dangerousKeys[key]; dangerous {
		return "", false
	}
	if key != "" && key[0] == reservedKeyPrefix {
		return "_" + key[1:], true
	}
	return key, true
}

// sanitizeValue returns the sanitized replacement for value and, for
// containers, a follow-up frame filling it in. ok is false when the value
// must be dropped (depth exceeded).
func sanitizeValue(value any, depth int, clean func(string) string) (any, *frame, bool) {
	switch v := value.(type) {
	case string:
		return clean(v), nil, true
	case map[string]any:
		if depth+1 >= MaxObjectDepth {
			return nil, nil, false
		}
		dst := make(map[string]any, len(v))
		return dst, &frame{srcMap: v, dstMap: dst, depth: depth + 1}, true
	case []any:
		if depth+1 >= MaxObjectDepth {
			return nil, nil, false
		}
		dst := make([]any, len(v))
		return dst, &frame{srcSlice: v, dstSlice: dst, depth: depth + 1}, true
	default:
		// Numbers, booleans, nil: carry no injection surface, pass through.
		return v, nil, true
	}
}
