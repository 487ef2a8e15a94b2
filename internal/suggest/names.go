package suggest

import (
	"strings"
	"time"

	"github.com/starkad/ordna/internal/models"
)

// nameRule maps required content keywords to a project name. Like topic
// rules, the table is ordered and the first full match wins.
type nameRule struct {
	Keywords []string
	Name     string
}

var nameRules = []nameRule{
	{Keywords: []string{"cat", "vision"}, Name: "Cat Vision Study"},
	{Keywords: []string{"animal", "vision"}, Name: "Animal Vision Research"},
	{Keywords: []string{"react", "component"}, Name: "React Component Library"},
	{Keywords: []string{"machine", "learning"}, Name: "Machine Learning Project"},
	{Keywords: []string{"business", "plan"}, Name: "Business Plan"},
	{Keywords: []string{"travel", "itinerary"}, Name: "Travel Itinerary"},
	{Keywords: []string{"recipe"}, Name: "Recipe Collection"},
	{Keywords: []string{"workout"}, Name: "Fitness Plan"},
}

// ProjectName generates a name for a new project: specific content-pattern
// rules first, then a fallback shaped by the user's naming-style preference,
// then a date-stamped fallback when nothing else applies.
func ProjectName(topic string, keywords []string, text string, style models.NamingStyle, now time.Time) string {
	lower := strings.ToLower(text)
	for _, rule := range nameRules {
		matched := true
		for _, kw := range rule.Keywords {
			if !strings.Contains(lower, kw) {
				matched = false
				break
			}
		}
		if matched {
			return rule.Name
		}
	}

	if name := styledName(topic, keywords, style); name != "" {
		return name
	}

	return "Chat Session - " + now.Format("2006-01-02")
}

// styledName derives a name from the topic and keywords in the user's
// preferred style. Returns empty when there is nothing to build from.
func styledName(topic string, keywords []string, style models.NamingStyle) string {
	generic := topic == "" || topic == "General Chat" ||
		topic == "General Discussion" || topic == "Detailed Discussion"

	switch style {
	case models.StyleMinimal:
		if len(keywords) > 0 {
			return title(keywords[0])
		}
		if !generic {
			return strings.Fields(topic)[0]
		}
	case models.StyleTechnical:
		if len(keywords) >= 2 {
			return keywords[0] + "-" + keywords[1]
		}
		if len(keywords) == 1 {
			return keywords[0] + "-project"
		}
	case models.StyleCreative:
		if !generic {
			return "The " + topic + " Files"
		}
		if len(keywords) > 0 {
			return "The " + title(keywords[0]) + " Files"
		}
	default: // descriptive
		if !generic {
			return topic
		}
		if len(keywords) >= 2 {
			return title(keywords[0]) + " & " + title(keywords[1]) + " Notes"
		}
		if len(keywords) == 1 {
			return title(keywords[0]) + " Notes"
		}
	}
	return ""
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
