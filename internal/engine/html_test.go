package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/taskflowhq/taskflow/internal/mail"
)

func TestRecapHTML_Empty(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(18 * time.Hour)

	html := recapHTML(nil, from, to)
	if !strings.Contains(html, "No new emails during this period.") {
		t.Fatal("empty recap should say no new emails")
	}
	if !strings.Contains(html, "<strong>0 emails</strong>") {
		t.Fatal("empty recap should report zero emails")
	}
}

func TestRecapHTML_EscapesContent(t *testing.T) {
	t.Parallel()

	msgs := []recapMessage{{
		Message: mail.Message{
			From:    `"Eve" <eve@evil.test>`,
			Subject: "<script>alert(1)</script>",
			Snippet: "a & b",
		},
	}}

	html := recapHTML(msgs, time.Now().Add(-time.Hour), time.Now())
	if strings.Contains(html, "<script>") {
		t.Fatal("subject markup must be escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Fatal("expected escaped subject")
	}
	if !strings.Contains(html, "&quot;Eve&quot; &lt;eve@evil.test&gt;") {
		t.Fatal("expected escaped sender")
	}
	if !strings.Contains(html, "a &amp; b") {
		t.Fatal("expected escaped snippet")
	}
}

func TestRecapHTML_PrefersSummaryOverSnippet(t *testing.T) {
	t.Parallel()

	msgs := []recapMessage{{
		Message: mail.Message{From: "a@x.com", Subject: "s", Snippet: "raw snippet"},
		Summary: "one-line summary",
	}}

	html := recapHTML(msgs, time.Now().Add(-time.Hour), time.Now())
	if !strings.Contains(html, "💡 one-line summary") {
		t.Fatal("summary should be rendered when present")
	}
	if strings.Contains(html, "raw snippet") {
		t.Fatal("snippet should be suppressed when a summary exists")
	}
}

func TestReminderHTML_NewlinesAndEscaping(t *testing.T) {
	t.Parallel()

	html := reminderHTML("line1\nline2")
	if !strings.Contains(html, "line1<br>line2") {
		t.Fatal("newlines should become <br>")
	}

	html = reminderHTML("<b>bold</b>\nnext")
	if strings.Contains(html, "<b>bold</b>") {
		t.Fatal("body markup must be escaped")
	}
	if !strings.Contains(html, "&lt;b&gt;bold&lt;/b&gt;<br>next") {
		t.Fatalf("escaping should happen before newline conversion: %s", html)
	}
}
