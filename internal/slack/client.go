package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const defaultAPIURL = "https://slack.com/api"

// APIError is a non-ok response envelope from the Slack API.
type APIError struct {
	Method string
	Reason string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Reason)
}

// Client is a thin typed wrapper over the Slack Web API, scoped to a single
// user access token.
type Client struct {
	token   string
	baseURL string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at an alternate API root. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

func New(token string, opts ...Option) *Client {
	c := &Client{token: token, baseURL: defaultAPIURL, httpc: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (e envelope) ok() bool { return e.OK }

func (e envelope) reason() string {
	if e.Error == "" {
		return "unknown_error"
	}
	return e.Error
}

type response interface {
	ok() bool
	reason() string
}

// call posts a form-encoded request to a Web API method and decodes the
// response, turning a non-ok envelope into an *APIError.
func (c *Client) call(ctx context.Context, method string, params url.Values, out response) error {
	body := strings.NewReader(params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, body)
	if err != nil {
		return fmt.Errorf("slack %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out response) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("slack %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("slack %s: decode response: %w", method, err)
	}
	if !out.ok() {
		return &APIError{Method: method, Reason: out.reason()}
	}
	return nil
}

type identityResponse struct {
	envelope
	Sub string `json:"sub"`
}

type profileResponse struct {
	envelope
	Profile struct {
		RealName           string `json:"real_name"`
		RealNameNormalized string `json:"real_name_normalized"`
		FirstName          string `json:"first_name"`
		LastName           string `json:"last_name"`
		DisplayName        string `json:"display_name"`
		Image48            string `json:"image_48"`
	} `json:"profile"`
}

// Identity fetches the token owner's user id and profile.
func (c *Client) Identity(ctx context.Context) (User, error) {
	var ident identityResponse
	if err := c.call(ctx, "openid.connect.userInfo", url.Values{}, &ident); err != nil {
		return User{}, err
	}

	var prof profileResponse
	if err := c.call(ctx, "users.profile.get", url.Values{}, &prof); err != nil {
		return User{}, err
	}

	displayName := prof.Profile.DisplayName
	if displayName == "" {
		displayName = prof.Profile.FirstName
	}

	return User{
		ID:                 ident.Sub,
		RealName:           prof.Profile.RealName,
		RealNameNormalized: prof.Profile.RealNameNormalized,
		FirstName:          prof.Profile.FirstName,
		LastName:           prof.Profile.LastName,
		DisplayName:        displayName,
		Image:              prof.Profile.Image48,
	}, nil
}

type teamResponse struct {
	envelope
	Team struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Icon struct {
			Image68 string `json:"image_68"`
		} `json:"icon"`
	} `json:"team"`
}

// Team fetches the token owner's workspace.
func (c *Client) Team(ctx context.Context) (Team, error) {
	var resp teamResponse
	if err := c.call(ctx, "team.info", url.Values{}, &resp); err != nil {
		return Team{}, err
	}
	return Team{
		ID:    resp.Team.ID,
		Name:  resp.Team.Name,
		Image: resp.Team.Icon.Image68,
	}, nil
}

type cursorMetadata struct {
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type userListResponse struct {
	envelope
	cursorMetadata
	Members []struct {
		ID      string `json:"id"`
		Deleted bool   `json:"deleted"`
		IsBot   bool   `json:"is_bot"`
		Profile struct {
			RealName           string `json:"real_name"`
			RealNameNormalized string `json:"real_name_normalized"`
			FirstName          string `json:"first_name"`
			LastName           string `json:"last_name"`
			DisplayName        string `json:"display_name"`
			Image48            string `json:"image_48"`
		} `json:"profile"`
	} `json:"members"`
}

// Users lists the workspace members, following the pagination cursor until
// exhausted. Deleted accounts and bots are skipped. A non-ok page fails the
// whole listing.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	cursor := ""
	for {
		params := url.Values{"limit": {"200"}}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page userListResponse
		if err := c.call(ctx, "users.list", params, &page); err != nil {
			return nil, err
		}

		for _, m := range page.Members {
			if m.Deleted || m.IsBot {
				continue
			}
			displayName := m.Profile.DisplayName
			if displayName == "" {
				displayName = m.Profile.RealName
			}
			users = append(users, User{
				ID:                 m.ID,
				RealName:           m.Profile.RealName,
				RealNameNormalized: m.Profile.RealNameNormalized,
				FirstName:          m.Profile.FirstName,
				LastName:           m.Profile.LastName,
				DisplayName:        displayName,
				Image:              m.Profile.Image48,
			})
		}

		cursor = page.ResponseMetadata.NextCursor
		if cursor == "" {
			return users, nil
		}
	}
}

type conversationListResponse struct {
	envelope
	cursorMetadata
	Channels []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		IsChannel bool   `json:"is_channel"`
		IsMember  bool   `json:"is_member"`
		IsIM      bool   `json:"is_im"`
		UserID    string `json:"user"`
	} `json:"channels"`
}

// Channels lists the conversations the token owner can post to, following
// the pagination cursor until exhausted. Channels the user is not a member
// of are skipped; direct-message conversations are resolved to the
// counterpart user's display name. The result is sorted case-insensitively
// by name. A non-ok page fails the whole listing.
func (c *Client) Channels(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	var userNames map[string]string

	cursor := ""
	for {
		params := url.Values{
			"exclude_archived": {"true"},
			"types":            {"public_channel,private_channel,im"},
			"limit":            {"200"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page conversationListResponse
		if err := c.call(ctx, "conversations.list", params, &page); err != nil {
			return nil, err
		}

		for _, conv := range page.Channels {
			switch {
			case conv.IsIM:
				if userNames == nil {
					users, err := c.Users(ctx)
					if err != nil {
						return nil, err
					}
					userNames = make(map[string]string, len(users))
					for _, u := range users {
						userNames[u.ID] = u.DisplayName
					}
				}
				name, ok := userNames[conv.UserID]
				if !ok {
					continue
				}
				channels = append(channels, Channel{ID: conv.ID, Name: name})
			case conv.IsChannel && conv.IsMember:
				channels = append(channels, Channel{ID: conv.ID, Name: conv.Name})
			}
		}

		cursor = page.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}

	sort.Slice(channels, func(i, j int) bool {
		return strings.ToLower(channels[i].Name) < strings.ToLower(channels[j].Name)
	})
	return channels, nil
}

type postMessageResponse struct {
	envelope
	TS string `json:"ts"`
}

// PostMessage posts text to a channel and returns the message timestamp.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) (string, error) {
	params := url.Values{
		"channel": {channelID},
		"text":    {text},
		"as_user": {"true"},
	}
	var resp postMessageResponse
	if err := c.call(ctx, "chat.postMessage", params, &resp); err != nil {
		return "", err
	}
	return resp.TS, nil
}

type share struct {
	TS string `json:"ts"`
}

type fileUploadResponse struct {
	envelope
	File struct {
		ID     string `json:"id"`
		Shares struct {
			Public  map[string][]share `json:"public"`
			Private map[string][]share `json:"private"`
		} `json:"shares"`
	} `json:"file"`
}

// PostImage uploads an image to a channel with the message text as its
// caption. It returns the share timestamp of the resulting message, looked
// up under the public then private share records; an empty timestamp means
// the platform reported no share for the channel.
func (c *Client) PostImage(ctx context.Context, channelID, caption string, image []byte) (string, error) {
	const method = "files.upload"

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "image")
	if err != nil {
		return "", fmt.Errorf("slack %s: %w", method, err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("slack %s: %w", method, err)
	}
	for field, value := range map[string]string{
		"channels":        channelID,
		"initial_comment": caption,
	} {
		if err := form.WriteField(field, value); err != nil {
			return "", fmt.Errorf("slack %s: %w", method, err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("slack %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, io.NopCloser(&buf))
	if err != nil {
		return "", fmt.Errorf("slack %s: %w", method, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	var resp fileUploadResponse
	if err := c.do(req, method, &resp); err != nil {
		return "", err
	}

	if shares := resp.File.Shares.Public[channelID]; len(shares) > 0 {
		return shares[0].TS, nil
	}
	if shares := resp.File.Shares.Private[channelID]; len(shares) > 0 {
		return shares[0].TS, nil
	}
	return "", nil
}

// Pin pins the message with the given timestamp to a channel.
func (c *Client) Pin(ctx context.Context, channelID, timestamp string) error {
	params := url.Values{
		"channel":   {channelID},
		"timestamp": {timestamp},
	}
	var resp envelope
	return c.call(ctx, "pins.add", params, &resp)
}
