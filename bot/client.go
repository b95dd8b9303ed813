// Package bot defines the platform API contract the dispatcher core
// depends on — fetching the bot's own identity, pulling updates,
// checking webhook subscriptions, and resolving chat/chat-member
// lookups for auto_requests enrichment — plus an HTTP implementation of
// that contract.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/maxbot/chats"
	"github.com/hrygo/maxbot/maxerr"
)

// Me describes the bot's own identity, as returned by GetMe.
type Me struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Subscription is one registered webhook subscription.
type Subscription struct {
	URL         string   `json:"url"`
	Time        int64    `json:"time"`
	UpdateTypes []string `json:"update_types"`
}

// Client is the platform API surface the dispatch core and ingestion
// drivers call against. Every Client also satisfies updates.BotRef
// (Token, GetChatByID and GetChatMember), the back-reference
// Update.Attach takes for enrichment.
type Client interface {
	Token() string
	GetMe(ctx context.Context) (*Me, error)
	GetUpdates(ctx context.Context, marker *int64, timeoutSeconds int, types []string) ([]json.RawMessage, *int64, error)
	GetSubscriptions(ctx context.Context) ([]Subscription, error)
	GetChatByID(ctx context.Context, chatID int64) (*chats.Chat, error)
	GetChatMember(ctx context.Context, chatID, userID int64) (*chats.User, error)
}

// httpClient is the default Client implementation, talking to the
// platform's REST API over HTTP with a static access_token query
// parameter and a correlation id attached to every request for
// server-side log correlation.
type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds an HTTP-backed Client. baseURL is the platform API root,
// e.g. "https://botapi.max.ru".
func New(baseURL, token string) Client {
	return &httpClient{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				DisableCompression: true,
			},
		},
	}
}

func (c *httpClient) Token() string { return c.token }

func (c *httpClient) GetMe(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.do(ctx, http.MethodGet, "/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

type getUpdatesResponse struct {
	Updates []json.RawMessage `json:"updates"`
	Marker  *int64            `json:"marker,omitempty"`
}

func (c *httpClient) GetUpdates(ctx context.Context, marker *int64, timeoutSeconds int, types []string) ([]json.RawMessage, *int64, error) {
	q := url.Values{}
	if marker != nil {
		q.Set("marker", fmt.Sprintf("%d", *marker))
	}
	q.Set("timeout", fmt.Sprintf("%d", timeoutSeconds))
	for _, t := range types {
		q.Add("types", t)
	}

	var resp getUpdatesResponse
	if err := c.do(ctx, http.MethodGet, "/updates?"+q.Encode(), nil, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Updates, resp.Marker, nil
}

type subscriptionsResponse struct {
	Subscriptions []Subscription `json:"subscriptions"`
}

func (c *httpClient) GetSubscriptions(ctx context.Context) ([]Subscription, error) {
	var resp subscriptionsResponse
	if err := c.do(ctx, http.MethodGet, "/subscriptions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Subscriptions, nil
}

func (c *httpClient) GetChatByID(ctx context.Context, chatID int64) (*chats.Chat, error) {
	var chat chats.Chat
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chats/%d", chatID), nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *httpClient) GetChatMember(ctx context.Context, chatID, userID int64) (*chats.User, error) {
	var user chats.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chats/%d/members/%d", chatID, userID), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	u := c.baseURL + path
	sep := "?"
	if bytes.ContainsRune([]byte(u), '?') {
		sep = "&"
	}
	u += sep + "access_token=" + url.QueryEscape(c.token)

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return maxerr.NewTransport(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	correlationID := uuid.NewString()
	req.Header.Set("X-Correlation-Id", correlationID)

	resp, err := c.http.Do(req)
	if err != nil {
		return maxerr.NewTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return maxerr.NewTransport(err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return maxerr.NewInvalidToken(&maxerr.PlatformError{Code: resp.StatusCode, Raw: raw})
	}
	if resp.StatusCode/100 != 2 {
		slog.Warn("bot: platform returned non-2xx", "status", resp.StatusCode, "correlation_id", correlationID)
		return &maxerr.PlatformError{Code: resp.StatusCode, Raw: raw}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return maxerr.NewTransport(err)
	}
	return nil
}
