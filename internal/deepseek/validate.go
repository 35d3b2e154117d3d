package deepseek

import "unicode/utf8"

// minStageContent is the minimum character count a stage's content must
// exceed before it is trusted. Counted in runes, since model output may
// be non-ASCII. Title length and age ranges are checked upstream by the
// story layer, not here.
const minStageContent = 20

// validResponse reports whether an arbitrary decoded JSON value is an
// object with a stages array whose every element carries a numeric age,
// a non-empty string title, and string content longer than minStageContent.
// This is the only gate between raw model output and the story data model.
func validResponse(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}

	raw, ok := obj["stages"].([]any)
	if !ok {
		return false
	}

	for _, entry := range raw {
		st, ok := entry.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := st["age"].(float64); !ok {
			return false
		}
		title, ok := st["title"].(string)
		if !ok || title == "" {
			return false
		}
		content, ok := st["content"].(string)
		if !ok || utf8.RuneCountInString(content) <= minStageContent {
			return false
		}
	}
	return true
}
