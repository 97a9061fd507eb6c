package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"courtportal/internal/domain"
	"courtportal/internal/messaging"
)

// Client implements the messaging collaborator contracts over the
// portal's REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

var (
	_ messaging.ChannelAPI = (*Client)(nil)
	_ messaging.HistoryAPI = (*Client)(nil)
	_ messaging.MessageAPI = (*Client)(nil)
)

func (c *Client) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	var out []domain.Channel
	if err := c.do(ctx, http.MethodGet, "/api/channels", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) History(ctx context.Context, sel messaging.ChannelSelector) ([]domain.Message, error) {
	q := url.Values{}
	switch {
	case sel.Broadcast:
		q.Set("broadcast", "true")
	case sel.GroupID != 0:
		q.Set("group_id", strconv.FormatInt(sel.GroupID, 10))
	case sel.DirectWith != 0:
		q.Set("direct_with", strconv.FormatInt(sel.DirectWith, 10))
	}
	var out []domain.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type sendRequest struct {
	messaging.ChannelSelector
	Text          string `json:"text,omitempty"`
	AttachmentURL string `json:"attachment_url,omitempty"`
}

func (c *Client) Send(ctx context.Context, sel messaging.ChannelSelector, text, attachmentURL string) (*domain.Message, error) {
	var out domain.Message
	req := sendRequest{ChannelSelector: sel, Text: text, AttachmentURL: attachmentURL}
	if err := c.do(ctx, http.MethodPost, "/api/messages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Edit(ctx context.Context, messageID, newText string) (*domain.Message, error) {
	var out domain.Message
	body := map[string]string{"text": newText}
	if err := c.do(ctx, http.MethodPatch, "/api/messages/"+url.PathEscape(messageID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, messageID string) (*domain.Message, error) {
	var out domain.Message
	if err := c.do(ctx, http.MethodDelete, "/api/messages/"+url.PathEscape(messageID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MarkRead(ctx context.Context, sel messaging.ChannelSelector) error {
	return c.do(ctx, http.MethodPost, "/api/messages/read", sel, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Buffer
	if in != nil {
		body = &bytes.Buffer{}
		if err := json.NewEncoder(body).Encode(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrPermissionDenied)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrNotFound)
	case resp.StatusCode >= 400:
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
