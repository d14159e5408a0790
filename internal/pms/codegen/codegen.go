// Package codegen derives classification codes from names and assembles
// fixed-width part numbers. Everything here is pure; callers supply the
// codes already taken in the relevant scope.
package codegen

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Kind is a classification family.
type Kind string

const (
	KindProduct     Kind = "product"
	KindMake        Kind = "make"
	KindSubCategory Kind = "sub_category"
	KindRating      Kind = "rating"
	KindPackage     Kind = "package"
	KindModel       Kind = "model"
	KindRemarks     Kind = "remarks"
	KindMPN         Kind = "mpn"
)

// Code widths.
const (
	ProductWidth     = 3
	MakeWidth        = 2
	SubCategoryWidth = 2
	RatingWidth      = 5
	PackageWidth     = 4
	ModelWidth       = 3
	RemarksWidth     = 4
	MPNWidth         = 3

	// item layout carries a shorter rating
	ItemRatingWidth = 3
)

// Pad characters.
const (
	PadAlpha   = 'X'
	PadNumeric = '0'
	PadPackage = 'N'
)

var (
	ErrEmptyName     = errors.New("name is empty")
	ErrDuplicateCode = errors.New("code already exists")
	ErrCodeExhausted = errors.New("code space exhausted")
	ErrUnknownKind   = errors.New("unknown classification kind")
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindProduct, KindMake, KindSubCategory, KindRating, KindPackage, KindModel, KindRemarks, KindMPN:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

var codePatterns = map[Kind]*regexp.Regexp{
	KindProduct:     regexp.MustCompile(`^[A-Z0-9]{3}$`),
	KindMake:        regexp.MustCompile(`^[A-Z0-9]{2}$`),
	KindSubCategory: regexp.MustCompile(`^[A-Z]{2}$`),
	KindRating:      regexp.MustCompile(`^[^\sa-z]{1,5}$`),
	KindPackage:     regexp.MustCompile(`^[^\sa-z]{4}$`),
	KindModel:       regexp.MustCompile(`^[0-9]{3}$`),
	KindRemarks:     regexp.MustCompile(`^[0-9]{4}$`),
	KindMPN:         regexp.MustCompile(`^[0-9]{3}$`),
}

// ValidCode reports whether code has the width and character class of kind.
func ValidCode(kind Kind, code string) bool {
	p, ok := codePatterns[kind]
	return ok && p.MatchString(code)
}

func alnumUpper(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func words(name string) []string {
	var out []string
	for _, w := range strings.Fields(name) {
		if a := alnumUpper(w); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func padRight(s string, width int, pad byte) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(string(pad), width-len(s))
}

// ProductCode is the first three characters of the first word.
func ProductCode(name string) (string, error) {
	ws := words(name)
	if len(ws) == 0 {
		return "", ErrEmptyName
	}
	return padRight(ws[0], ProductWidth, PadAlpha), nil
}

// MakeCode is the initials of the first two words, or the first two
// characters of a single word.
func MakeCode(name string) (string, error) {
	ws := words(name)
	switch len(ws) {
	case 0:
		return "", ErrEmptyName
	case 1:
		return padRight(ws[0], MakeWidth, PadAlpha), nil
	default:
		return ws[0][:1] + ws[1][:1], nil
	}
}

// MakeCodeCandidate returns the code tried on the given attempt: the base
// code first, then its first letter with a digit 1..9, then 10..99.
func MakeCodeCandidate(base string, attempt int) (string, bool) {
	switch {
	case attempt == 0:
		return base, true
	case attempt <= 9:
		return base[:1] + strconv.Itoa(attempt), true
	case attempt <= 99:
		return strconv.Itoa(attempt), true
	}
	return "", false
}

// ResolveMakeCode walks the candidates until taken reports a free code.
func ResolveMakeCode(name string, taken func(code string) bool) (string, error) {
	base, err := MakeCode(name)
	if err != nil {
		return "", err
	}
	for attempt := 0; ; attempt++ {
		code, ok := MakeCodeCandidate(base, attempt)
		if !ok {
			return "", fmt.Errorf("make %q: %w", name, ErrCodeExhausted)
		}
		if !taken(code) {
			return code, nil
		}
	}
}

// NextSubCategoryCode is the first free pair in AA, AB, .., AZ, BA, .., ZZ.
func NextSubCategoryCode(used []string) (string, error) {
	taken := toSet(used)
	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			code := string([]rune{a, b})
			if !taken[code] {
				return code, nil
			}
		}
	}
	return "", fmt.Errorf("sub category: %w", ErrCodeExhausted)
}

// RatingCode strips whitespace, keeps punctuation, uppercases and crops to five.
func RatingCode(value string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(value) {
		if !unicode.IsSpace(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return "", ErrEmptyName
	}
	if len(s) > RatingWidth {
		s = s[:RatingWidth]
	}
	return s, nil
}

// PackageCode is the first four characters padded with N.
func PackageCode(name string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if !unicode.IsSpace(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyName
	}
	return padRight(b.String(), PackageWidth, PadPackage), nil
}

// FormatSequence zero-pads n to width.
func FormatSequence(n, width int) (string, error) {
	s := fmt.Sprintf("%0*d", width, n)
	if n <= 0 || len(s) > width {
		return "", fmt.Errorf("sequence %d does not fit %d digits: %w", n, width, ErrCodeExhausted)
	}
	return s, nil
}

var legacyMPN = regexp.MustCompile(`^MPN([0-9]+)$`)

// ParseSequence reads a numeric code, accepting the legacy MPN### form.
func ParseSequence(code string) (int, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if m := legacyMPN.FindStringSubmatch(code); m != nil {
		code = m[1]
	}
	if code == "" {
		return 0, false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxSequence is the largest parseable code, 0 when none parse.
func MaxSequence(codes []string) int {
	max := 0
	for _, c := range codes {
		if n, ok := ParseSequence(c); ok && n > max {
			max = n
		}
	}
	return max
}

// SmallestUnused returns the lowest positive integer not used, formatted to width.
func SmallestUnused(used []string, width int) (string, error) {
	taken := make(map[int]bool, len(used))
	for _, c := range used {
		if n, ok := ParseSequence(c); ok {
			taken[n] = true
		}
	}
	for n := 1; ; n++ {
		if !taken[n] {
			return FormatSequence(n, width)
		}
	}
}

func toSet(codes []string) map[string]bool {
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[strings.ToUpper(c)] = true
	}
	return m
}
