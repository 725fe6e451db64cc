package utils

import (
	"log"
	"runtime/debug"
	"strings"
	"unicode"
	"unicode/utf8"
)

func ToPointer[T any](v T) *T {
	return &v
}

// GoSafe runs fn in a goroutine and recovers from panics so a single failure does not crash the process.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered from panic: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// CapitalizeSentence upper-cases the first letter of s.
func CapitalizeSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
