// AngelaMos | 2026
// useragent.go

package middleware

import (
	"strings"

	"github.com/mssola/useragent"
)

// ClientLabel condenses a User-Agent header into "Browser on OS" for logs.
func ClientLabel(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return "unknown"
	}

	ua := useragent.New(header)
	if ua.Bot() {
		name, _ := ua.Browser()
		if name == "" {
			return "bot"
		}
		return "bot " + name
	}

	browser, _ := ua.Browser()
	os := ua.OS()
	if browser == "" {
		browser = "unknown"
	}
	if os == "" {
		os = "unknown"
	}
	label := browser + " on " + os
	if ua.Mobile() {
		label += " (mobile)"
	}
	return label
}
