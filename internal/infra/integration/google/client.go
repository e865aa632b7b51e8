package google

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// InboundMessage is one fetched mailbox message, body already decoded to
// plain text.
type InboundMessage struct {
	ID      string
	Snippet string
	Body    string
}

const historyMaxResults = 100

// Client wraps the Gmail API for the pipeline: watch registration, history
// listing since a cursor and message fetch. Tokens come from the TokenManager
// per call, so a refreshed credential is picked up immediately.
type Client struct {
	tokens    *TokenManager
	topicName string
	labelIDs  []string
}

func NewClient(tokens *TokenManager, topicName string, labelIDs []string) *Client {
	return &Client{
		tokens:    tokens,
		topicName: topicName,
		labelIDs:  labelIDs,
	}
}

func (c *Client) service(ctx context.Context, accountEmail string) (*gmail.Service, error) {
	accessToken, err := c.tokens.GetValidToken(ctx, accountEmail)
	if err != nil {
		return nil, err
	}
	return gmail.NewService(ctx, option.WithTokenSource(
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}),
	))
}

// Watch registers (or re-registers) the push subscription for the mailbox.
// The provider returns the current cursor and an epoch-millisecond expiration.
func (c *Client) Watch(ctx context.Context, accountEmail string) (string, time.Time, error) {
	svc, err := c.service(ctx, accountEmail)
	if err != nil {
		return "", time.Time{}, err
	}

	resp, err := svc.Users.Watch(accountEmail, &gmail.WatchRequest{
		TopicName: c.topicName,
		LabelIds:  c.labelIDs,
	}).Context(ctx).Do()
	if err != nil {
		return "", time.Time{}, mapAPIError("users.watch", err)
	}

	return strconv.FormatUint(resp.HistoryId, 10), time.UnixMilli(resp.Expiration), nil
}

// ListNewMessages fetches the plain-text bodies of messages added since the
// given cursor.
func (c *Client) ListNewMessages(ctx context.Context, accountEmail, sinceHistoryID string) ([]InboundMessage, error) {
	svc, err := c.service(ctx, accountEmail)
	if err != nil {
		return nil, err
	}

	start, err := strconv.ParseUint(sinceHistoryID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad history cursor %q: %w", sinceHistoryID, err)
	}

	ids, err := c.listAddedMessageIDs(ctx, svc, accountEmail, start)
	if err != nil {
		return nil, err
	}

	messages := make([]InboundMessage, 0, len(ids))
	for _, id := range ids {
		msg, err := svc.Users.Messages.Get(accountEmail, id).Format("full").Context(ctx).Do()
		if err != nil {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
				// deleted between notification and fetch
				continue
			}
			return nil, mapAPIError("messages.get", err)
		}

		body := extractPlainText(msg.Payload)
		if body == "" {
			body = msg.Snippet
		}
		messages = append(messages, InboundMessage{ID: id, Snippet: msg.Snippet, Body: body})
	}

	return messages, nil
}

func (c *Client) listAddedMessageIDs(ctx context.Context, svc *gmail.Service, accountEmail string, start uint64) ([]string, error) {
	var ids []string
	seen := make(map[string]struct{})

	pageToken := ""
	for {
		call := svc.Users.History.List(accountEmail).
			StartHistoryId(start).
			HistoryTypes("messageAdded").
			MaxResults(historyMaxResults).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, mapAPIError("history.list", err)
		}

		for _, h := range resp.History {
			for _, added := range h.MessagesAdded {
				if added.Message == nil {
					continue
				}
				// the same message can appear in several history records
				if _, dup := seen[added.Message.Id]; dup {
					continue
				}
				seen[added.Message.Id] = struct{}{}
				ids = append(ids, added.Message.Id)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return ids, nil
		}
	}
}

func extractPlainText(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		return decodeBody(part.Body.Data)
	}
	for _, child := range part.Parts {
		if text := extractPlainText(child); text != "" {
			return text
		}
	}
	// single-part messages without an explicit text/plain mime type
	if part.Body != nil && part.Body.Data != "" && len(part.Parts) == 0 {
		return decodeBody(part.Body.Data)
	}
	return ""
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

func mapAPIError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized:
			return fmt.Errorf("%s: %w: %v", op, ErrCredentialRevoked, err)
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%s: %w: %v", op, ErrUpstream, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
