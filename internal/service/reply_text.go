package service

import (
	"regexp"
	"strings"
)

var (
	fenceOpen  = regexp.MustCompile("(?is)^\\s*```[a-z]*\\s*")
	fenceClose = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// stripReplyFences quita BOM y fences de markdown de una respuesta del modelo.
func stripReplyFences(raw string) string {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "\uFEFF")
	if s == "" {
		return ""
	}
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// firstJSONObject devuelve el primer objeto {...} balanceado de text, ignorando
// llaves dentro de strings. "" si no hay ninguno completo.
func firstJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// truncateText corta s a n runas para logs y mensajes de error.
func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
