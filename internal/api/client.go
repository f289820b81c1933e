package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"talkio/internal/domain"
	talkio_errors "talkio/pkg/errors"
	"talkio/pkg/logger"

	"github.com/valyala/fasthttp"
)

const requestTimeout = 15 * time.Second

// Client is the REST collaborator used for history and backfill. It is
// deliberately thin: one fetch, one decode, no retries. A failed fetch
// is surfaced; the next full fetch resynchronizes.
type Client struct {
	baseURL string
	token   string
	http    *fasthttp.Client
	log     *logger.Logger
}

func NewClient(baseURL, token string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &fasthttp.Client{},
		log:     log,
	}
}

// ListConversations fetches the full conversation list for a user.
func (c *Client) ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	var out []*domain.Conversation
	path := "/conversations?user_id=" + url.QueryEscape(userID)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return out, nil
}

// GetProfile fetches a user's profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	var out domain.User
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(userID), &out); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &out, nil
}

// MessageHistory backfills messages for a conversation, newest first.
func (c *Client) MessageHistory(ctx context.Context, conversationID string, before time.Time, limit int) ([]*domain.Message, error) {
	var out []*domain.Message
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages?limit=" + strconv.Itoa(limit)
	if !before.IsZero() {
		path += "&before=" + url.QueryEscape(before.Format(time.RFC3339))
	}
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("message history: %w", err)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	deadline := time.Now().Add(requestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return err
	}
	if err := statusError(resp.StatusCode()); err != nil {
		return err
	}
	return json.Unmarshal(resp.Body(), out)
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == fasthttp.StatusUnauthorized || code == fasthttp.StatusForbidden:
		return talkio_errors.ErrUnauthorized
	case code == fasthttp.StatusNotFound:
		return talkio_errors.ErrNotFound
	case code >= 500:
		return talkio_errors.ErrServiceUnavailable
	default:
		return fmt.Errorf("%w: http %d", talkio_errors.ErrInvalidInput, code)
	}
}
