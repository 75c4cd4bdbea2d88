package devbackend

import (
	"regexp"
	"strings"

	"github.com/myrjola/aivisibility/internal/ai"
	"github.com/myrjola/aivisibility/internal/models"
)

var numberedLine = regexp.MustCompile(`^\s*\d+[.)]\s*(.+)$`)

// minPartialWordLength keeps words such as "co" or "&" from counting as partial matches.
const minPartialWordLength = 4

// Analyze scores how visible brand is in answer.
func Analyze(brand models.BrandInput, query string, answer ai.Answer) models.AnalysisItem {
	text := strings.ToLower(answer.Text)
	name := strings.ToLower(strings.TrimSpace(brand.Name))

	item := models.AnalysisItem{
		Query:           query,
		AIAnswer:        answer.Text,
		Sources:         answer.Sources,
		Recommendations: []string{},
	}
	if item.Sources == nil {
		item.Sources = []string{}
	}

	if name != "" {
		item.Mentions = strings.Count(text, name)
	}
	item.IsFullMatch = item.Mentions > 0

	if !item.IsFullMatch {
		for _, word := range strings.Fields(name) {
			if len(word) < minPartialWordLength {
				continue
			}
			if n := strings.Count(text, word); n > 0 {
				item.IsPartialMatch = true
				item.PartialMatchKeyword = word
				item.NumPartialMentions = n
				break
			}
		}
	}

	citedDomain := false
	for _, source := range item.Sources {
		if models.MatchesDomain(brand.Domain, source) {
			citedDomain = true
			break
		}
	}
	item.IsVisible = item.IsFullMatch || item.IsPartialMatch || citedDomain

	needle := name
	if !item.IsFullMatch {
		needle = item.PartialMatchKeyword
	}
	if needle != "" {
		item.Rank = rankOf(text, needle)
	}

	switch {
	case !item.IsVisible:
		item.Recommendations = append(item.Recommendations,
			"Your brand is missing from this answer. Create content that targets this question directly.")
	case item.Rank == 0 || item.Rank > 3:
		item.Recommendations = append(item.Recommendations,
			"You are mentioned but not among the top picks. Strengthen comparison and review content.")
	}
	if !citedDomain {
		item.Recommendations = append(item.Recommendations,
			"None of the cited sources is your site. Earn coverage on the sources assistants rely on.")
	}
	return item
}

// rankOf returns the 1-based position of the first numbered list item containing needle, or 0.
func rankOf(text, needle string) int {
	position := 0
	for _, line := range strings.Split(text, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		position++
		if strings.Contains(m[1], needle) {
			return position
		}
	}
	return 0
}
