package util

import "strings"

const fence = "```"

// UnwrapFence removes one markdown code fence wrapping text, such as
// "```json\n{...}\n```", and returns the trimmed body. Text which does not
// start with a fence is returned unchanged. Only the outermost fence is
// removed: a doubly wrapped body still carries its inner fence.
func UnwrapFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, fence) {
		return text
	}

	body := trimmed[len(fence):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// the remainder of the opening line is the language tag
		body = body[nl+1:]
	} else {
		body = strings.TrimLeft(body, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}

	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, fence)
	return strings.TrimSpace(body)
}
