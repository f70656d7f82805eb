package maradmin

import (
	"fmt"
	"regexp"
	"strings"
)

const baseInstructions = "You summarize USMC MARADMINS for a Cyberspace Officer.\n" +
	"Output ONLY bullet points (no headings, no intro).\n" +
	"Do NOT invent details; use only the provided text. If unknown, say 'Not stated'.\n" +
	"Keep bullets tight: 1 sentence where possible, max 2 sentences.\n" +
	"Prefer concrete dates/deadlines and required actions.\n"

func instructions(mode Mode, bullets int) string {
	switch mode {
	case ModeReadASAP:
		return baseInstructions +
			fmt.Sprintf("Provide 1-%d bullets MAX.\n", bullets) +
			"This is a PROMOTION/SELECTION LIST with names.\n" +
			"- Do NOT summarize or list names.\n" +
			"- MUST include 'READ ASAP — name list inside.'\n" +
			"Focus on: what rank(s), what population (Active/AR/Reserve), what month/timeframe, and any admin notes.\n"
	case ModeDatesOnly:
		return baseInstructions +
			"This is a promotion selection board schedule / dates message.\n" +
			"- First bullet: a one-sentence summary.\n" +
			"- Remaining bullets: key dates only (board correspondence due dates and convening dates).\n" +
			fmt.Sprintf("Provide up to %d bullets total.\n", bullets) +
			"No extra commentary.\n"
	case ModeBriefResults:
		return baseInstructions +
			fmt.Sprintf("Provide 1-%d bullets MAX.\n", bullets) +
			"This is BOARD RESULTS.\n" +
			"- Do NOT summarize names.\n" +
			"- Tell the reader to open/read the MARADMIN for names.\n"
	case ModeFYI:
		return baseInstructions +
			fmt.Sprintf("Provide 1-%d bullets MAX.\n", bullets) +
			"Tag the first bullet with 'FYI—Not 17XX'.\n" +
			"Focus on: what it is, who it applies to, and any deadline/timeline.\n"
	case ModeMinimal:
		return baseInstructions + "Provide exactly 1 bullet.\n"
	default:
		return baseInstructions +
			fmt.Sprintf("Provide 4-%d bullets.\n", bullets) +
			"This MARADMIN is relevant to 17XX / MOS 1701/1702/1710/1720/1721.\n" +
			"If the MARADMIN lists multiple MOSs, only include details relevant to 17XX / those MOSs.\n" +
			"Emphasize deadlines/timelines, eligibility, and required actions.\n"
	}
}

func input(title, link, published, text string) string {
	return fmt.Sprintf("Title: %s\nLink: %s\nPublished: %s\n\nMARADMIN text:\n%s", title, link, published, text)
}

var bulletPrefix = regexp.MustCompile(`^[-\x{2022}*]+\s*`)

const noSummary = "No extractable summary produced from the available text."

// normalizeBullets turns model output into at most limit bullet texts without
// their leading markers.
func normalizeBullets(out string, limit int) []string {
	if limit < 1 {
		limit = 1
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		s := bulletPrefix.ReplaceAllString(strings.TrimSpace(line), "")
		if s == "" {
			continue
		}
		lines = append(lines, s)
	}
	if len(lines) == 0 {
		return []string{noSummary}
	}
	if len(lines) > limit {
		lines = lines[:limit]
	}
	return lines
}
