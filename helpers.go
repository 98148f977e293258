package notionpress

import "time"

// Date layouts the Date column uses: plain dates, and datetimes when the
// column includes a time.
var postDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
}

// parsePostDate parses a post date, reporting false when it is empty or in
// an unknown layout.
func parsePostDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range postDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
