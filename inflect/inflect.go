package inflect

import (
	"regexp"
	"strings"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

func rules(pairs ...string) []rule {
	out := make([]rule, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, rule{
			pattern:     regexp.MustCompile(pairs[i]),
			replacement: pairs[i+1],
		})
	}
	return out
}

var pluralRules = rules(
	`(quiz)$`, "${1}zes",
	`^(ox)$`, "${1}en",
	`([m|l])ouse$`, "${1}ice",
	`(matr|vert|ind)(?:ix|ex)$`, "${1}ices",
	`(x|ch|ss|sh)$`, "${1}es",
	`([^aeiouy]|qu)y$`, "${1}ies",
	`(hive)$`, "${1}s",
	`(?:([^f])fe|([lr])f)$`, "${1}${2}ves",
	`sis$`, "ses",
	`([ti])um$`, "${1}a",
	`(buffal|tomat)o$`, "${1}oes",
	`(bu)s$`, "${1}ses",
	`(alias|status)$`, "${1}es",
	`(octop|vir)us$`, "${1}i",
	`(ax|test)is$`, "${1}es",
	`s$`, "s",
	`$`, "s",
)

var singularRules = rules(
	`(quiz)zes$`, "${1}",
	`(matr)ices$`, "${1}ix",
	`(vert|ind)ices$`, "${1}ex",
	`^(ox)en`, "${1}",
	`(alias|status)es$`, "${1}",
	`(octop|vir)i$`, "${1}us",
	`(cris|ax|test)es$`, "${1}is",
	`(shoe)s$`, "${1}",
	`(o)es$`, "${1}",
	`(bus)es$`, "${1}",
	`([m|l])ice$`, "${1}ouse",
	`(x|ch|ss|sh)es$`, "${1}",
	`(m)ovies$`, "${1}ovie",
	`(s)eries$`, "${1}eries",
	`([^aeiouy]|qu)ies$`, "${1}y",
	`([lr])ves$`, "${1}f",
	`(tive)s$`, "${1}",
	`(hive)s$`, "${1}",
	`([^f])ves$`, "${1}fe",
	`(^analy)ses$`, "${1}sis",
	`((a)naly|(b)a|(d)iagno|(p)arenthe|(p)rogno|(s)ynop|(t)he)ses$`, "${1}sis",
	`([ti])a$`, "${1}um",
	`(n)ews$`, "${1}ews",
	`s$`, "",
)

// irregular maps singular to plural forms that no rule covers.
var irregular = [][2]string{
	{"person", "people"},
	{"man", "men"},
	{"child", "children"},
	{"sex", "sexes"},
	{"move", "moves"},
}

var uncountable = map[string]bool{
	"equipment":   true,
	"information": true,
	"rice":        true,
	"money":       true,
	"species":     true,
	"series":      true,
	"fish":        true,
	"sheep":       true,
	"billing":     true,
}

// Pluralize returns the plural form of a singular word. Compound snake_case
// names are inflected on their last word, so "phone_number" becomes
// "phone_numbers".
func Pluralize(singular string) string {
	prefix, word := splitLastWord(singular)
	if word == "" {
		return singular
	}
	return prefix + pluralizeWord(word)
}

// Singularize returns the singular form of a plural word. Words that are
// already singular, or that no rule matches, are returned unchanged.
func Singularize(plural string) string {
	prefix, word := splitLastWord(plural)
	if word == "" {
		return plural
	}
	return prefix + singularizeWord(word)
}

func pluralizeWord(word string) string {
	lower := strings.ToLower(word)
	if uncountable[lower] {
		return word
	}
	for _, pair := range irregular {
		if lower == pair[0] {
			return pair[1]
		}
	}
	return applyRules(pluralRules, word)
}

func singularizeWord(word string) string {
	lower := strings.ToLower(word)
	if uncountable[lower] {
		return word
	}
	for _, pair := range irregular {
		if lower == pair[1] {
			return pair[0]
		}
	}
	return applyRules(singularRules, word)
}

// applyRules rewrites word with the first matching rule.
func applyRules(set []rule, word string) string {
	for _, r := range set {
		if r.pattern.MatchString(word) {
			return r.pattern.ReplaceAllString(word, r.replacement)
		}
	}
	return word
}

func splitLastWord(name string) (string, string) {
	idx := strings.LastIndex(name, "_")
	if idx < 0 {
		return "", name
	}
	return name[:idx+1], name[idx+1:]
}
