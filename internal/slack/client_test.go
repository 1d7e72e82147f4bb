package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("xoxp-test", WithBaseURL(srv.URL))
}

func TestChannelsPaginatesUntilCursorExhausted(t *testing.T) {
	pages := map[string]string{
		"": `{"ok":true,"channels":[
			{"id":"C1","name":"Zulu","is_channel":true,"is_member":true},
			{"id":"C2","name":"archive","is_channel":true,"is_member":false}],
			"response_metadata":{"next_cursor":"page2"}}`,
		"page2": `{"ok":true,"channels":[
			{"id":"C3","name":"alpha","is_channel":true,"is_member":true}],
			"response_metadata":{"next_cursor":"page3"}}`,
		"page3": `{"ok":true,"channels":[
			{"id":"C4","name":"Mike","is_channel":true,"is_member":true}],
			"response_metadata":{"next_cursor":""}}`,
	}

	var calls int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations.list" {
			t.Fatalf("unexpected call to %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		calls++
		body, ok := pages[r.PostForm.Get("cursor")]
		if !ok {
			t.Fatalf("unexpected cursor %q", r.PostForm.Get("cursor"))
		}
		fmt.Fprint(w, body)
	}))

	channels, err := client.Channels(context.Background())
	if err != nil {
		t.Fatalf("channels failed: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 pages fetched, got %d", calls)
	}

	// non-member channel dropped, remainder sorted case-insensitively
	want := []Channel{{ID: "C3", Name: "alpha"}, {ID: "C4", Name: "Mike"}, {ID: "C1", Name: "Zulu"}}
	if len(channels) != len(want) {
		t.Fatalf("expected %d channels, got %+v", len(want), channels)
	}
	for i := range want {
		if channels[i] != want[i] {
			t.Fatalf("channel %d: got %+v, want %+v", i, channels[i], want[i])
		}
	}
}

func TestChannelsFailedPageAbortsListing(t *testing.T) {
	var calls int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"ok":true,"channels":[{"id":"C1","name":"general","is_channel":true,"is_member":true}],"response_metadata":{"next_cursor":"page2"}}`)
			return
		}
		fmt.Fprint(w, `{"ok":false,"error":"ratelimited"}`)
	}))

	channels, err := client.Channels(context.Background())
	if err == nil {
		t.Fatal("expected error from failed page")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Reason != "ratelimited" {
		t.Fatalf("expected ratelimited APIError, got %v", err)
	}
	if channels != nil {
		t.Fatalf("expected no partial results, got %+v", channels)
	}
}

func TestChannelsResolvesDirectMessages(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conversations.list":
			fmt.Fprint(w, `{"ok":true,"channels":[
				{"id":"D1","is_im":true,"user":"U1"},
				{"id":"C1","name":"general","is_channel":true,"is_member":true}],
				"response_metadata":{"next_cursor":""}}`)
		case "/users.list":
			fmt.Fprint(w, `{"ok":true,"members":[
				{"id":"U1","profile":{"real_name":"Ada Lovelace","display_name":"ada"}},
				{"id":"U2","deleted":true,"profile":{"display_name":"departed"}},
				{"id":"U3","is_bot":true,"profile":{"display_name":"robot"}}],
				"response_metadata":{"next_cursor":""}}`)
		default:
			t.Fatalf("unexpected call to %s", r.URL.Path)
		}
	}))

	channels, err := client.Channels(context.Background())
	if err != nil {
		t.Fatalf("channels failed: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("expected 2 channels, got %+v", channels)
	}
	if channels[0] != (Channel{ID: "D1", Name: "ada"}) {
		t.Fatalf("expected resolved DM first, got %+v", channels[0])
	}
	if channels[1].Name != "general" {
		t.Fatalf("unexpected second channel: %+v", channels[1])
	}
}

func TestIdentity(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer xoxp-test" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		switch r.URL.Path {
		case "/openid.connect.userInfo":
			fmt.Fprint(w, `{"ok":true,"sub":"U42"}`)
		case "/users.profile.get":
			fmt.Fprint(w, `{"ok":true,"profile":{"real_name":"Ada Lovelace","real_name_normalized":"Ada Lovelace","first_name":"Ada","last_name":"Lovelace","display_name":"","image_48":"https://img/48.png"}}`)
		default:
			t.Fatalf("unexpected call to %s", r.URL.Path)
		}
	}))

	user, err := client.Identity(context.Background())
	if err != nil {
		t.Fatalf("identity failed: %v", err)
	}
	if user.ID != "U42" || user.RealName != "Ada Lovelace" {
		t.Fatalf("unexpected user: %+v", user)
	}
	// empty display name falls back to the first name
	if user.DisplayName != "Ada" {
		t.Fatalf("expected display name fallback, got %q", user.DisplayName)
	}
}

func TestPostMessageReturnsTimestamp(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("channel") != "C1" || r.PostForm.Get("text") != "hello" {
			t.Fatalf("unexpected post params: %v", r.PostForm)
		}
		fmt.Fprint(w, `{"ok":true,"ts":"1712.0001"}`)
	}))

	ts, err := client.PostMessage(context.Background(), "C1", "hello")
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if ts != "1712.0001" {
		t.Fatalf("unexpected timestamp %q", ts)
	}
}

func TestPostImageShareTimestampLookup(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
		want string
	}{
		{
			name: "public share",
			body: map[string]any{"ok": true, "file": map[string]any{
				"id":     "F1",
				"shares": map[string]any{"public": map[string]any{"C1": []map[string]any{{"ts": "1.23"}}}},
			}},
			want: "1.23",
		},
		{
			name: "private share",
			body: map[string]any{"ok": true, "file": map[string]any{
				"id":     "F1",
				"shares": map[string]any{"private": map[string]any{"C1": []map[string]any{{"ts": "4.56"}}}},
			}},
			want: "4.56",
		},
		{
			name: "no share record",
			body: map[string]any{"ok": true, "file": map[string]any{"id": "F1"}},
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/files.upload" {
					t.Fatalf("unexpected call to %s", r.URL.Path)
				}
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Fatalf("parse multipart: %v", err)
				}
				if r.PostFormValue("channels") != "C1" || r.PostFormValue("initial_comment") != "caption" {
					t.Fatalf("unexpected upload fields: %v", r.MultipartForm.Value)
				}
				_ = json.NewEncoder(w).Encode(tc.body)
			}))

			ts, err := client.PostImage(context.Background(), "C1", "caption", []byte{0x89, 0x50})
			if err != nil {
				t.Fatalf("post image failed: %v", err)
			}
			if ts != tc.want {
				t.Fatalf("got ts %q, want %q", ts, tc.want)
			}
		})
	}
}

func TestPinPropagatesAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error":"already_pinned"}`)
	}))

	err := client.Pin(context.Background(), "C1", "1.23")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Reason != "already_pinned" {
		t.Fatalf("expected already_pinned APIError, got %v", err)
	}
}
