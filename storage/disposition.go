package storage

import (
	"fmt"
	"strings"
	"unicode"
)

// ContentDisposition builds a Content-Disposition header value for the
// given presentation mode and filename. ASCII names are quoted
// directly; anything else gets an ASCII fallback plus an RFC 5987
// filename* parameter so browsers keep the original name.
func ContentDisposition(disposition, filename string) string {
	if disposition != DispositionInline {
		disposition = DispositionAttachment
	}
	if filename == "" {
		return disposition
	}

	if isTokenSafeASCII(filename) {
		return fmt.Sprintf(`%s; filename="%s"`, disposition, escapeQuotes(filename))
	}

	fallback := asciiFallback(filename)
	return fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`,
		disposition, escapeQuotes(fallback), percentEncode(filename))
}

func isTokenSafeASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || r < 0x20 || r == '%' {
			return false
		}
	}
	return true
}

func escapeQuotes(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func asciiFallback(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r > unicode.MaxASCII || r < 0x20 {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// percentEncode applies the RFC 5987 value-chars encoding: attr-char
// stays literal, everything else is %XX-encoded per UTF-8 byte.
func percentEncode(s string) string {
	const attrChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!#$&+-.^_`|~"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(attrChars, c) >= 0 {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
