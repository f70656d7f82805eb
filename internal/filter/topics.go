package filter

import (
	"regexp"
	"strings"
)

// Topic is a named keyword group.
type Topic struct {
	Name    string
	Pattern *regexp.Regexp
}

// TopicSet matches items against ordered keyword groups.
type TopicSet []Topic

// NewTopic compiles a case-insensitive, word-bounded alternation of terms.
// Terms are regex fragments, e.g. "zero[- ]trust".
func NewTopic(name string, terms ...string) Topic {
	return Topic{
		Name:    name,
		Pattern: regexp.MustCompile(`(?i)\b(` + strings.Join(terms, "|") + `)\b`),
	}
}

// DefenseTopics are the interest groups applied to RealClearDefense.
var DefenseTopics = TopicSet{
	NewTopic("USMC", "usmc", "marine corps", "marines"),
	NewTopic("CYBER", "cyber", "cyberspace", "malware", "ransomware", "zero[- ]trust", "dodin", "cybercom", "apt"),
	NewTopic("SPACE", "space", "satellite", "orbit", "spacecom", "space force", "satcom", "pnt"),
	NewTopic("TECH", "ai", "artificial intelligence", "machine learning", "quantum", "autonomous",
		"unmanned", "drone", "uas", "hypersonic", "c4isr", "electronic warfare", "darpa", "innovation"),
	NewTopic("SEC", "security", "defense", "threat", "attack", "espionage", "intelligence"),
}

func blob(title, text string) string {
	return title + "\n" + text
}

// Matches reports whether any group matches title or text.
func (ts TopicSet) Matches(title, text string) bool {
	b := blob(title, text)
	for _, t := range ts {
		if t.Pattern.MatchString(b) {
			return true
		}
	}
	return false
}

// Tags returns the names of matching groups in declaration order, at most max.
func (ts TopicSet) Tags(title, text string, max int) []string {
	b := blob(title, text)
	var tags []string
	for _, t := range ts {
		if max > 0 && len(tags) >= max {
			break
		}
		if t.Pattern.MatchString(b) {
			tags = append(tags, t.Name)
		}
	}
	return tags
}
