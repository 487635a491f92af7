package classifier

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minSecretLen     = 8
	maxSecretLen     = 128
	minSecretClasses = 3

	// mixed-class strings with more spaces than this read like prose
	maxSecretSpaces = 1
)

// IsSensitiveData reports whether text looks like something that must never
// be written to history: a password-like token, a card number or an SSN.
//
// Rules are checked in order and the first match wins.
func IsSensitiveData(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	singleLine := !strings.Contains(text, "\n")
	n := utf8.RuneCountInString(text)

	if singleLine && n >= minSecretLen && n <= maxSecretLen && looksLikePassword(text) {
		return true
	}

	if creditCardRe.MatchString(text) {
		return true
	}

	if ssnRe.MatchString(text) {
		return true
	}

	// Short lines mentioning "password" or "secret" are field labels copied
	// from password managers, not the secrets themselves, so nothing else
	// marks text as sensitive.
	return false
}

// looksLikePassword checks for three or more character classes with at most
// one space.
func looksLikePassword(text string) bool {
	var hasUpper, hasLower, hasDigit, hasOther bool
	spaces := 0

	for _, r := range text {
		switch {
		case r == ' ':
			spaces++
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r):
			hasOther = true
		}
	}

	classes := 0
	for _, present := range []bool{hasUpper, hasLower, hasDigit, hasOther} {
		if present {
			classes++
		}
	}

	return classes >= minSecretClasses && spaces <= maxSecretSpaces
}
