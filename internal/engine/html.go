package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskflowhq/taskflow/internal/mail"
)

// recapMessage pairs a fetched message with its optional summary.
type recapMessage struct {
	mail.Message
	Summary string
}

const recapTimeLayout = "Jan 2, 2006 3:04 PM"

// recapHTML renders the digest body for an email recap.
func recapHTML(msgs []recapMessage, from, to time.Time) string {
	var b strings.Builder
	b.WriteString("<html><body style='font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;'>")
	b.WriteString("<h1 style='color: #4F46E5;'>📧 Your Email Recap</h1>")
	fmt.Fprintf(&b, "<p style='color: #666;'>From %s to %s</p>",
		from.Format(recapTimeLayout), to.Format(recapTimeLayout))
	fmt.Fprintf(&b, "<p style='color: #333;'><strong>%d emails</strong> received during this period.</p>", len(msgs))
	b.WriteString("<hr style='border: 1px solid #eee; margin: 20px 0;'>")

	if len(msgs) == 0 {
		b.WriteString("<p style='color: #666;'>No new emails during this period.</p>")
	}
	for _, m := range msgs {
		b.WriteString("<div style='background: #f9fafb; padding: 15px; border-radius: 8px; margin-bottom: 10px;'>")
		fmt.Fprintf(&b, "<p style='margin: 0 0 5px 0;'><strong>From:</strong> %s</p>", escapeHTML(m.From))
		fmt.Fprintf(&b, "<p style='margin: 0 0 5px 0;'><strong>Subject:</strong> %s</p>", escapeHTML(m.Subject))
		if m.Summary != "" {
			fmt.Fprintf(&b, "<p style='margin: 0; color: #4F46E5; font-size: 14px;'>💡 %s</p>", escapeHTML(m.Summary))
		} else {
			fmt.Fprintf(&b, "<p style='margin: 0; color: #666; font-size: 14px;'>%s</p>", escapeHTML(m.Snippet))
		}
		b.WriteString("</div>")
	}

	b.WriteString("<hr style='border: 1px solid #eee; margin: 20px 0;'>")
	b.WriteString("<p style='color: #999; font-size: 12px;'>Generated by TaskFlow</p>")
	b.WriteString("</body></html>")
	return b.String()
}

// reminderHTML renders the body for a SEND_EMAIL reminder. The body text
// is escaped before newlines become line breaks, so configuration content
// can never inject markup.
func reminderHTML(body string) string {
	escaped := strings.ReplaceAll(escapeHTML(body), "\n", "<br>")

	var b strings.Builder
	b.WriteString("<html><body style='font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;'>")
	b.WriteString("<div style='background: linear-gradient(135deg, #6366f1 0%, #8b5cf6 100%); padding: 20px; border-radius: 10px 10px 0 0;'>")
	b.WriteString("<h1 style='color: white; margin: 0;'>⏰ Reminder</h1>")
	b.WriteString("</div>")
	b.WriteString("<div style='background: #f9fafb; padding: 20px; border-radius: 0 0 10px 10px; border: 1px solid #e5e7eb; border-top: none;'>")
	fmt.Fprintf(&b, "<p style='font-size: 16px; color: #374151; white-space: pre-wrap;'>%s</p>", escaped)
	b.WriteString("</div>")
	b.WriteString("<p style='color: #9ca3af; font-size: 12px; margin-top: 20px;'>Sent by TaskFlow</p>")
	b.WriteString("</body></html>")
	return b.String()
}

// escapeHTML escapes the characters that can open markup or break out of
// an attribute when interpolated into the generated email body.
func escapeHTML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
