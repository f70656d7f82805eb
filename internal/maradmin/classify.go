// Package maradmin summarizes new Marine Corps administrative messages.
package maradmin

import (
	"regexp"
	"sort"
	"strings"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/filter"
)

// Category is the coarse message type.
type Category string

const (
	CategoryPromotionList Category = "PROMOTION_LIST_READ_ASAP"
	CategoryBoardSchedule Category = "BOARD_DATES_ONE_LINER"
	CategoryResults       Category = "RESULTS_BRIEF"
	CategoryGeneral       Category = "GENERAL"
)

// Mode selects the summary prompt and the label shown in Slack.
type Mode string

const (
	ModeReadASAP     Mode = "read_asap"
	ModeDatesOnly    Mode = "dates_only"
	ModeBriefResults Mode = "brief_results"
	ModeFull17XX     Mode = "full_17xx"
	ModeFYI          Mode = "fyi_not_17xx"
	ModeMinimal      Mode = "minimal"
)

// Decision is the chosen mode and its bullet cap.
type Decision struct {
	Mode    Mode
	Bullets int
}

// HighMOS are the occupational specialties that always get a full summary.
var HighMOS = map[string]bool{"1701": true, "1702": true, "1710": true, "1720": true, "1721": true}

// priorityTopics allow a short FYI summary for messages outside 17XX.
var priorityTopics = filter.TopicSet{
	filter.NewTopic("AI", "artificial intelligence", "ai", "machine learning", "ml", "llm",
		"data science", "data engineering"),
	filter.NewTopic("CYBER", "cyberspace", "cyber", "cybersecurity", "zero trust", "rmf", "ato", "dodin",
		"uscybercom", "marforcyber", "jfhq-dodin", "cmf", "oco", "dco"),
	filter.NewTopic("SPACE", "space", "satcom", "pnt"),
	filter.NewTopic("INNOVATION", "innovation", "experimentation", "pilot", "modernization", "software factory"),
}

var (
	kwPromotionList = []string{
		"officer promotions",
		"enlisted promotions",
		"promotion authority",
		"selected for promotion",
		"promotion selection",
		"promotion list",
		"approved for promotion",
		"to the grade of",
		"promotions for",
	}
	kwResults = []string{
		"results",
		"selection list",
		"selected list",
		"board results",
		"approved selection",
	}
	kwBoardSchedule = []string{
		"promotion selection boards",
		"selection boards",
		"board will convene",
		"convening date",
		"board correspondence",
		"selection board",
		"board schedule",
		"projected",
	}
)

var (
	mosRE    = regexp.MustCompile(`\b(1[0-9]{3})\b`)
	numberRE = regexp.MustCompile(`(?i)\bMARADMIN\s+(\d{1,4}/\d{2})\b`)
)

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Classify buckets a message by keywords in its title and body.
func Classify(title, body string) Category {
	text := strings.ToLower(title + "\n" + body)
	switch {
	case containsAny(text, kwPromotionList) && (containsAny(text, kwResults) || strings.Contains(text, "promot")):
		return CategoryPromotionList
	case containsAny(text, kwBoardSchedule) && (strings.Contains(text, "board") || strings.Contains(text, "selection")):
		return CategoryBoardSchedule
	case containsAny(text, kwResults):
		return CategoryResults
	default:
		return CategoryGeneral
	}
}

// MOSRelevance reports whether text mentions a 17XX or high-priority MOS,
// plus the sorted high-priority codes found.
func MOSRelevance(text string) (bool, []string) {
	var high []string
	any17 := false
	seen := map[string]bool{}
	for _, m := range mosRE.FindAllStringSubmatch(text, -1) {
		code := m[1]
		if seen[code] {
			continue
		}
		seen[code] = true
		if HighMOS[code] {
			high = append(high, code)
		}
		if strings.HasPrefix(code, "17") {
			any17 = true
		}
	}
	sort.Strings(high)
	return any17 || len(high) > 0, high
}

// ChooseMode picks the summary mode and bullet cap for a classified message.
func ChooseMode(cat Category, title, body string) Decision {
	switch cat {
	case CategoryPromotionList:
		return Decision{Mode: ModeReadASAP, Bullets: 3}
	case CategoryBoardSchedule:
		return Decision{Mode: ModeDatesOnly, Bullets: 14}
	case CategoryResults:
		return Decision{Mode: ModeBriefResults, Bullets: 2}
	}

	text := title + "\n" + body
	if is17, _ := MOSRelevance(text); is17 {
		return Decision{Mode: ModeFull17XX, Bullets: 6}
	}
	if priorityTopics.Matches(title, body) {
		return Decision{Mode: ModeFYI, Bullets: 3}
	}
	return Decision{Mode: ModeMinimal, Bullets: 1}
}

// Number returns the "NNN/YY" message number, or "" when none is stated.
func Number(title, body string) string {
	m := numberRE.FindStringSubmatch(title + "\n" + body)
	if m == nil {
		return ""
	}
	return m[1]
}
