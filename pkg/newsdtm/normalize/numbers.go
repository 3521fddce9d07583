package normalize

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	unitWords = [...]string{
		"cero", "uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho", "nueve",
		"diez", "once", "doce", "trece", "catorce", "quince", "dieciséis", "diecisiete", "dieciocho", "diecinueve",
		"veinte", "veintiuno", "veintidós", "veintitrés", "veinticuatro", "veinticinco", "veintiséis", "veintisiete", "veintiocho", "veintinueve",
	}
	tensWords = [...]string{
		3: "treinta", 4: "cuarenta", 5: "cincuenta", 6: "sesenta",
		7: "setenta", 8: "ochenta", 9: "noventa",
	}
	hundredsWords = [...]string{
		1: "ciento", 2: "doscientos", 3: "trescientos", 4: "cuatrocientos", 5: "quinientos",
		6: "seiscientos", 7: "setecientos", 8: "ochocientos", 9: "novecientos",
	}
)

const (
	million  = 1_000_000
	trillion = million * million
	// Numbers at or above this are spelled digit by digit.
	cardinalLimit = trillion * million
)

// SpellCardinal renders n as a Spanish cardinal ("veintiuno", "ciento dos",
// "dos mil", "un millón"). Long-scale names are used above a million.
func SpellCardinal(n uint64) string {
	if n == 0 {
		return unitWords[0]
	}
	if n >= cardinalLimit {
		return spellDigits(strconv.FormatUint(n, 10))
	}

	var parts []string
	if t := n / trillion; t > 0 {
		parts = append(parts, scaled(t, "un billón", "billones"))
	}
	if m := n % trillion / million; m > 0 {
		parts = append(parts, scaled(m, "un millón", "millones"))
	}
	if r := n % million; r > 0 {
		parts = append(parts, belowMillion(r, false))
	}
	return strings.Join(parts, " ")
}

func scaled(n uint64, one, many string) string {
	if n == 1 {
		return one
	}
	return belowMillion(n, true) + " " + many
}

// belowMillion spells n < 1e6. apocope shortens a trailing "uno" to "un"
// when the number modifies a following noun (mil, millones).
func belowMillion(n uint64, apocope bool) string {
	if n < 1000 {
		return belowThousand(n, apocope)
	}
	thousands, rest := n/1000, n%1000
	head := "mil"
	if thousands > 1 {
		head = belowThousand(thousands, true) + " mil"
	}
	if rest == 0 {
		return head
	}
	return head + " " + belowThousand(rest, apocope)
}

func belowThousand(n uint64, apocope bool) string {
	if n == 100 {
		return "cien"
	}
	var parts []string
	if h := n / 100; h > 0 {
		parts = append(parts, hundredsWords[h])
	}
	if r := n % 100; r > 0 {
		parts = append(parts, belowHundred(r, apocope))
	}
	return strings.Join(parts, " ")
}

func belowHundred(n uint64, apocope bool) string {
	if n < 30 {
		w := unitWords[n]
		if apocope {
			switch n {
			case 1:
				w = "un"
			case 21:
				w = "veintiún"
			}
		}
		return w
	}
	tens, unit := n/10, n%10
	if unit == 0 {
		return tensWords[tens]
	}
	u := unitWords[unit]
	if apocope && unit == 1 {
		u = "un"
	}
	return tensWords[tens] + " y " + u
}

func spellDigits(digits string) string {
	words := make([]string, 0, len(digits))
	for _, r := range digits {
		words = append(words, unitWords[r-'0'])
	}
	return strings.Join(words, " ")
}

// ExpandNumbers replaces every maximal run of ASCII digits that stands on
// its own (no letter, digit, mark or underscore on either side) with its
// Spanish cardinal. The scan is a single left-to-right pass, so inserted
// words are never re-examined. Text without such a run is returned as is.
func ExpandNumbers(text string) string {
	var b strings.Builder
	last := 0
	for i := 0; i < len(text); {
		if !isASCIIDigit(text[i]) {
			_, size := utf8.DecodeRuneInString(text[i:])
			i += size
			continue
		}
		j := i
		for j < len(text) && isASCIIDigit(text[j]) {
			j++
		}
		if standalone(text, i, j) {
			if b.Len() == 0 {
				b.Grow(len(text) + 16)
			}
			b.WriteString(text[last:i])
			b.WriteString(spellRun(text[i:j]))
			last = j
		}
		i = j
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func spellRun(digits string) string {
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || n >= cardinalLimit {
		return spellDigits(digits)
	}
	return SpellCardinal(n)
}

func standalone(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r)
}
