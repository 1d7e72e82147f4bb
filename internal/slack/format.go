package slack

import (
	"regexp"
	"strings"
)

var imageTag = regexp.MustCompile(`<img[^>]*>`)

// greetings maps language codes to the salutation used when a published
// message should notify the channel.
var greetings = map[string]string{
	"en": "Hello!",
	"es": "¡Hola!",
	"fr": "Bonjour !",
	"it": "Ciao!",
	"pt": "Olá!",
	"ru": "Привет!",
}

// FormatMessage converts authored HTML into Slack inline markup: paragraph
// markers become blank-line separators, embedded images are stripped,
// doubled blank lines are collapsed, and emphasis/bold map to Slack's
// inline markers. When notify is set the message is prefixed with a
// language-specific greeting and a channel mention. Formatting is pure and
// never re-introduces removed markup.
func FormatMessage(html, lang string, notify bool) string {
	replacer := strings.NewReplacer(
		"<p>", "\n\n",
		"</p>", "\n\n",
		"@channel", "<!channel>",
		"<strong>", "*",
		"</strong>", "*",
		"<em>", "_",
		"</em>", "_",
	)

	text := imageTag.ReplaceAllString(html, "")
	text = replacer.Replace(text)
	for strings.Contains(text, "\n\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n\n", "\n\n")
	}
	text = strings.TrimSpace(text)

	if notify {
		greeting, ok := greetings[lang]
		if !ok {
			greeting = greetings["en"]
		}
		text = greeting + " <!channel>\n\n" + text
	}

	return text
}
