package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// sendRequest is the body of users.messages.send.
type sendRequest struct {
	Raw string `json:"raw"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send implements mail.Sender.
func (c *Client) Send(ctx context.Context, accessToken, from, to, subject, htmlBody string) (string, error) {
	raw := buildMIME(from, to, subject, htmlBody)
	payload, err := json.Marshal(sendRequest{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	})
	if err != nil {
		return "", fmt.Errorf("gmail: marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/gmail/v1/users/me/messages/send", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gmail: create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp sendResponse
	if err := c.do(req, accessToken, &resp); err != nil {
		return "", fmt.Errorf("gmail: send message: %w", err)
	}
	return resp.ID, nil
}

// buildMIME assembles a single-part HTML message. The subject is
// Q-encoded so non-ASCII (like emoji) survives the 7-bit header rules;
// the address headers are stripped of CR/LF so caller-supplied values
// cannot smuggle extra headers in.
func buildMIME(from, to, subject, htmlBody string) string {
	var b strings.Builder
	b.WriteString("From: " + headerValue(from) + "\r\n")
	b.WriteString("To: " + headerValue(to) + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.String()
}

func headerValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return -1
		}
		return r
	}, s)
}
