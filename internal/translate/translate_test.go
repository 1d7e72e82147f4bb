package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPseudoPreservesTags(t *testing.T) {
	input := "<p>This <em>is</em> a <strong>test</strong>.</p>"
	want := "<p>THIS <em>IS</em> A <strong>TEST</strong>.</p>"

	got, err := Pseudo{}.Translate(context.Background(), input, "es")
	if err != nil {
		t.Fatalf("pseudo translate failed: %v", err)
	}
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPseudoPlainText(t *testing.T) {
	got, err := Pseudo{}.Translate(context.Background(), "no markup here", "fr")
	if err != nil {
		t.Fatalf("pseudo translate failed: %v", err)
	}
	if got != "NO MARKUP HERE" {
		t.Fatalf("got %q", got)
	}
}

func TestDialectCode(t *testing.T) {
	cases := map[string]string{
		"en": "EN-US",
		"pt": "PT-BR",
		"es": "ES",
		"ru": "RU",
	}
	for lang, want := range cases {
		if got := DialectCode(lang); got != want {
			t.Errorf("DialectCode(%q) = %q, want %q", lang, got, want)
		}
	}
}

func TestDeepLRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key test-key" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("target_lang") != "PT-BR" {
			t.Fatalf("unexpected target_lang %q", r.PostForm.Get("target_lang"))
		}
		if r.PostForm.Get("source_lang") != "EN" {
			t.Fatalf("unexpected source_lang %q", r.PostForm.Get("source_lang"))
		}
		if r.PostForm.Get("tag_handling") != "html" {
			t.Fatalf("expected tag_handling=html, got %q", r.PostForm.Get("tag_handling"))
		}
		fmt.Fprint(w, `{"translations":[{"text":"<p>Olá</p>"}]}`)
	}))
	defer srv.Close()

	translator := NewDeepL("test-key", "en", WithBaseURL(srv.URL))
	got, err := translator.Translate(context.Background(), "<p>Hello</p>", "pt")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if got != "<p>Olá</p>" {
		t.Fatalf("got %q", got)
	}
}

func TestDeepLFailureSurfacesTranslationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	translator := NewDeepL("bad-key", "en", WithBaseURL(srv.URL))
	_, err := translator.Translate(context.Background(), "hello", "es")

	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if terr.Lang != "es" {
		t.Fatalf("expected lang es, got %q", terr.Lang)
	}
}
