package logging

import "strings"

// FormatSubject builds the component/workflow/stage subject used in console output.
func FormatSubject(component, workflow, stage string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{component, workflow, stage} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " · ")
}
