// Package publish fans a single authored message out to per-language
// destination channels, translating for every non-source language.
package publish

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/scribeapp/scribe/internal/slack"
)

// Messenger is the posting slice of the messaging client the pipeline needs.
type Messenger interface {
	PostMessage(ctx context.Context, channelID, text string) (string, error)
	PostImage(ctx context.Context, channelID, caption string, image []byte) (string, error)
	Pin(ctx context.Context, channelID, timestamp string) error
}

// Translator converts text into a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// ChannelNotFoundError means a target language has no resolved channel id.
// It fails the entire publish call before any posting begins.
type ChannelNotFoundError struct {
	Lang string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("channel not found for language: %s", e.Lang)
}

// ErrNoTargets means no language participated in the publish request.
var ErrNoTargets = fmt.Errorf("no publish targets selected")

// Request is a single publish call. Channels maps participating language
// codes to their destination channel ids.
type Request struct {
	Message       string
	Image         []byte
	PinToChannel  bool
	NotifyChannel bool
	Channels      map[string]string
}

// Pipeline composes translation and posting.
type Pipeline struct {
	translator Translator
	sourceLang string
	devMode    bool
	logf       func(format string, args ...any)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDevelopmentBanner prefixes every posted message with a test banner
// naming the target language.
func WithDevelopmentBanner() Option {
	return func(p *Pipeline) { p.devMode = true }
}

// WithLogf replaces the warning logger. Used in tests.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(p *Pipeline) { p.logf = logf }
}

func New(translator Translator, sourceLang string, opts ...Option) *Pipeline {
	p := &Pipeline{
		translator: translator,
		sourceLang: sourceLang,
		logf:       log.Printf,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type target struct {
	lang      string
	channelID string
	text      string
}

// Publish resolves every target, then posts to each channel independently.
// Resolution failures (missing channel id, failed translation) abort the
// call before any posting begins. During fan-out a failed post is logged as
// a warning and the remaining channels are still attempted; there is no
// rollback for channels that already succeeded.
func (p *Pipeline) Publish(ctx context.Context, client Messenger, req Request) error {
	if len(req.Channels) == 0 {
		return ErrNoTargets
	}

	targets, err := p.resolve(ctx, req)
	if err != nil {
		return err
	}

	for _, t := range targets {
		text := slack.FormatMessage(t.text, t.lang, req.NotifyChannel)
		if p.devMode {
			text = fmt.Sprintf("TEST MESSAGE FOR: %s\n---------------------------------\n%s", t.lang, text)
		}

		var ts string
		var postErr error
		if len(req.Image) > 0 {
			ts, postErr = client.PostImage(ctx, t.channelID, text, req.Image)
		} else {
			ts, postErr = client.PostMessage(ctx, t.channelID, text)
		}
		if postErr != nil {
			p.logf("warning: publish to channel %s (%s) failed: %v", t.channelID, t.lang, postErr)
			continue
		}

		if !req.PinToChannel {
			continue
		}
		if ts == "" {
			p.logf("warning: no share timestamp for channel %s, skipping pin", t.channelID)
			continue
		}
		if err := client.Pin(ctx, t.channelID, ts); err != nil {
			p.logf("warning: pin to channel %s failed: %v", t.channelID, err)
		}
	}

	return nil
}

// resolve checks every channel id and translates for every non-source
// language, strictly before any posting.
func (p *Pipeline) resolve(ctx context.Context, req Request) ([]target, error) {
	langs := make([]string, 0, len(req.Channels))
	for lang := range req.Channels {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	targets := make([]target, 0, len(langs))
	for _, lang := range langs {
		channelID := req.Channels[lang]
		if channelID == "" {
			return nil, &ChannelNotFoundError{Lang: lang}
		}

		text := req.Message
		if lang != p.sourceLang {
			translated, err := p.translator.Translate(ctx, req.Message, lang)
			if err != nil {
				return nil, err
			}
			text = translated
		}

		targets = append(targets, target{lang: lang, channelID: channelID, text: text})
	}

	return targets, nil
}
