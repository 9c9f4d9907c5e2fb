// AngelaMos | 2026
// useragent_test.go

package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientLabel(t *testing.T) {
	assert.Equal(t, "unknown", ClientLabel("  "))

	desktop := ClientLabel("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
	assert.Contains(t, desktop, "Firefox")
	assert.Contains(t, desktop, " on ")
	assert.NotContains(t, desktop, "mobile")

	phone := ClientLabel("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	assert.Contains(t, phone, "(mobile)")

	bot := ClientLabel("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	assert.Contains(t, bot, "bot")
}
