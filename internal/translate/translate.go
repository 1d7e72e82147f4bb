// Package translate provides per-language text translation with an
// HTML-tag-preserving mode, plus a deterministic pseudo mode for offline
// development.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const defaultAPIURL = "https://api.deepl.com/v2"

// Translator converts text into a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Error is a failed translation. It aborts the publish attempt it belongs to.
type Error struct {
	Lang string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("translate to %s: %v", e.Lang, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// DialectCode maps a language code to the DeepL dialect code: en→EN-US,
// pt→PT-BR, everything else passes through upper-cased.
func DialectCode(lang string) string {
	switch lang {
	case "en":
		return "EN-US"
	case "pt":
		return "PT-BR"
	default:
		return strings.ToUpper(lang)
	}
}

// DeepL translates through the DeepL REST API with tag handling enabled, so
// embedded HTML markup survives translation.
type DeepL struct {
	apiKey     string
	sourceLang string
	baseURL    string
	httpc      *http.Client
}

// Option configures a DeepL translator.
type Option func(*DeepL)

// WithBaseURL points the translator at an alternate API root. Used in tests.
func WithBaseURL(u string) Option {
	return func(d *DeepL) { d.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(d *DeepL) { d.httpc = httpc }
}

func NewDeepL(apiKey, sourceLang string, opts ...Option) *DeepL {
	d := &DeepL{
		apiKey:     apiKey,
		sourceLang: sourceLang,
		baseURL:    defaultAPIURL,
		httpc:      http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type translateResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (d *DeepL) Translate(ctx context.Context, text, targetLang string) (string, error) {
	params := url.Values{
		"text":         {text},
		"source_lang":  {strings.ToUpper(d.sourceLang)},
		"target_lang":  {DialectCode(targetLang)},
		"tag_handling": {"html"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/translate", strings.NewReader(params.Encode()))
	if err != nil {
		return "", &Error{Lang: targetLang, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	resp, err := d.httpc.Do(req)
	if err != nil {
		return "", &Error{Lang: targetLang, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Lang: targetLang, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var decoded translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &Error{Lang: targetLang, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(decoded.Translations) == 0 {
		return "", &Error{Lang: targetLang, Err: fmt.Errorf("empty translation result")}
	}

	return decoded.Translations[0].Text, nil
}

// segment alternates between markup tags and the plain text between them,
// so each match is entirely one or the other.
var segment = regexp.MustCompile(`(<[^>]+>)|([^<]+)`)

// Pseudo is a deterministic stand-in for real translation: human-readable
// text is upper-cased while embedded markup tags pass through verbatim.
type Pseudo struct{}

func (Pseudo) Translate(_ context.Context, text, _ string) (string, error) {
	return segment.ReplaceAllStringFunc(text, func(m string) string {
		if strings.HasPrefix(m, "<") {
			return m
		}
		return strings.ToUpper(m)
	}), nil
}
