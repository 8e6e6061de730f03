// File path: internal/selector/context.go
package selector

import (
	"fmt"
	"strings"
)

// NoContentPlaceholder stands in for a selected file whose content is empty.
// Every selected path must appear in the LLM-facing context, so an empty file
// yields this marker rather than being omitted.
const NoContentPlaceholder = "[NO CONTENT] nothing relevant could be extracted here."

// BuildContext renders the selected files into the combined text handed to
// the completion service.
func BuildContext(records []FileRecord) string {
	var b strings.Builder
	for _, record := range records {
		fmt.Fprintf(&b, "\n--- FILE: %s ---\n", record.Path)
		if strings.TrimSpace(record.Content) == "" {
			b.WriteString(NoContentPlaceholder)
			b.WriteString("\n")
			continue
		}
		b.WriteString(record.Content)
		b.WriteString("\n")
	}
	return b.String()
}
