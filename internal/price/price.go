// Package price turns currency text into numeric values.
package price

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Parse strips currency symbols, thousands separators and whitespace and parses the
// first number in text. It returns false for unparsable, non-positive or inconsistently
// grouped input.
func Parse(text string) (float64, bool) {
	groups, seps := scanNumber(text)
	if len(groups) == 0 {
		return 0, false
	}

	number, ok := normalize(groups, seps)
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseFloat(number, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// scanNumber splits the first numeric token of text into digit groups and the
// separators between them. Spaces and apostrophes only join groups of exactly three
// digits; anything else ends the token.
func scanNumber(text string) (groups []string, seps []rune) {
	start := strings.IndexFunc(text, isDigit)
	if start < 0 {
		return nil, nil
	}
	rest := text[start:]

	end := digitRun(rest)
	groups = append(groups, rest[:end])
	rest = rest[end:]

	for rest != "" {
		sep, size := utf8.DecodeRuneInString(rest)
		if !isSeparator(sep) {
			break
		}
		n := digitRun(rest[size:])
		if n == 0 {
			break
		}
		if (isSpace(sep) || sep == '\'') && n != 3 {
			break
		}
		groups = append(groups, rest[size:size+n])
		seps = append(seps, sep)
		rest = rest[size+n:]
	}
	return groups, seps
}

// normalize joins groups into a strconv-parsable number. When both ',' and '.' occur the
// last one is the decimal separator; a lone ',' before three digits groups thousands; a
// single '.' is decimal.
func normalize(groups []string, seps []rune) (string, bool) {
	if len(seps) == 0 {
		return groups[0], true
	}

	decimal := -1
	last := len(seps) - 1
	if isPunct(seps[last]) {
		switch {
		case containsOther(seps[:last], seps[last]):
			decimal = last
		case containsRune(seps[:last], seps[last]):
			// repeated separator, e.g. 1.234.000
		case seps[last] == ',':
			// one or two digits after a lone comma are cents, three are thousands
			if len(groups[last+1]) < 3 {
				decimal = last
			}
		default:
			decimal = last
		}
	}

	grouping := seps
	if decimal >= 0 {
		grouping = seps[:decimal]
	}
	// plain spaces only group a number that also has a decimal part; "149 199" is two prices
	if decimal < 0 {
		for i, sep := range grouping {
			if sep == ' ' {
				return normalize(groups[:i+1], seps[:i])
			}
		}
	}
	if !consistentGrouping(groups, grouping) {
		return "", false
	}

	var b strings.Builder
	for i, group := range groups {
		if i > 0 && i-1 == decimal {
			b.WriteByte('.')
		}
		b.WriteString(group)
	}
	return b.String(), true
}

// consistentGrouping checks that the grouping separators are all alike and every group
// after the first has three digits
func consistentGrouping(groups []string, grouping []rune) bool {
	if len(grouping) == 0 {
		return true
	}
	if len(groups[0]) > 3 {
		return false
	}
	var punct rune
	for i, sep := range grouping {
		if len(groups[i+1]) != 3 {
			return false
		}
		if isPunct(sep) {
			if punct != 0 && sep != punct {
				return false
			}
			punct = sep
		}
	}
	return true
}

func digitRun(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isPunct(r rune) bool { return r == '.' || r == ',' }

func isSpace(r rune) bool { return r == ' ' || r == '\u00a0' || r == '\u202f' }

func isSeparator(r rune) bool { return isPunct(r) || isSpace(r) || r == '\'' }

func containsRune(seps []rune, r rune) bool {
	for _, sep := range seps {
		if sep == r {
			return true
		}
	}
	return false
}

func containsOther(seps []rune, r rune) bool {
	for _, sep := range seps {
		if isPunct(sep) && sep != r {
			return true
		}
	}
	return false
}
