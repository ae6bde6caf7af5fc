package relay

import (
	"fmt"
	"strings"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

// Footer renders the sources block appended after a streamed answer. It is
// empty when there are no citations.
func Footer(citations []models.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n---\nSources:\n")
	for i, c := range citations {
		title := c.Title
		if title == "" {
			title = c.URL
		}
		fmt.Fprintf(&b, "[%d] %s: %s\n", i+1, title, c.URL)
	}
	return b.String()
}
