package sanitizer

import "strings"

const MaxFreeTextLength = 500

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var freeText = Pipeline{
	StripControl,
	TrimAndNormalize,
	func(s string) string { return Truncate(s, MaxFreeTextLength) },
}

// SanitizeFreeText cleans customer-entered text such as special requests and
// cancellation reasons.
func SanitizeFreeText(input string) string {
	return freeText.Apply(input)
}

// SanitizeIdentifier trims ids and external references. Case is preserved since
// ids from other systems may be case sensitive.
func SanitizeIdentifier(input string) string {
	return strings.TrimSpace(StripControl(input))
}

func SanitizeLabel(input string) string {
	return strings.ToLower(TrimAndNormalize(input))
}
