package capture

import (
	"unicode/utf8"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

// Classify labels the change from prev to next. Shorter content is a delete,
// growth by more than one rune is a paste, anything else is a keypress.
func Classify(prev, next string) session.EventType {
	p, n := utf8.RuneCountInString(prev), utf8.RuneCountInString(next)
	switch {
	case n < p:
		return session.EventDelete
	case n-p > 1:
		return session.EventPaste
	default:
		return session.EventKeypress
	}
}
