package normalize

import "regexp"

var (
	mentionPattern = regexp.MustCompile(`@([` + wordClass + `]+)`)
	hashtagPattern = regexp.MustCompile(`#([` + wordClass + `]+)`)
)

// Mentions returns the @handles in text, in order of appearance, without
// the leading "@". Repeats are kept.
func Mentions(text string) []string {
	return submatches(mentionPattern, text)
}

// Hashtags returns the #tags in text, in order of appearance, without the
// leading "#".
func Hashtags(text string) []string {
	return submatches(hashtagPattern, text)
}

func submatches(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
