package gmail

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/taskflowhq/taskflow/internal/mail"
)

// messageList is the response of users.messages.list.
type messageList struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// messageMeta is the metadata-format response of users.messages.get.
type messageMeta struct {
	Snippet string `json:"snippet"`
	Payload struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
	} `json:"payload"`
}

// ListSince implements mail.Fetcher. Gmail's after: operator works on
// epoch seconds, so the window start is floored to the second.
func (c *Client) ListSince(ctx context.Context, accessToken string, since time.Time, limit int) ([]mail.Message, error) {
	q := url.Values{
		"q":          {"after:" + strconv.FormatInt(since.Unix(), 10)},
		"maxResults": {strconv.Itoa(limit)},
	}

	var list messageList
	if err := c.get(ctx, accessToken, "/gmail/v1/users/me/messages?"+q.Encode(), &list); err != nil {
		return nil, fmt.Errorf("gmail: list messages: %w", err)
	}

	msgs := make([]mail.Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		meta, err := c.getMessage(ctx, accessToken, ref.ID)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, meta)
	}
	return msgs, nil
}

func (c *Client) getMessage(ctx context.Context, accessToken, id string) (mail.Message, error) {
	q := url.Values{
		"format":          {"metadata"},
		"metadataHeaders": {"From", "Subject", "Date"},
	}

	var meta messageMeta
	path := "/gmail/v1/users/me/messages/" + url.PathEscape(id) + "?" + q.Encode()
	if err := c.get(ctx, accessToken, path, &meta); err != nil {
		return mail.Message{}, fmt.Errorf("gmail: get message %s: %w", id, err)
	}

	msg := mail.Message{Snippet: meta.Snippet}
	for _, h := range meta.Payload.Headers {
		switch h.Name {
		case "From":
			msg.From = h.Value
		case "Subject":
			msg.Subject = h.Value
		case "Date":
			msg.Date = h.Value
		}
	}
	return msg, nil
}
