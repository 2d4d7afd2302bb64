package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("cid", "secret", "https://app.example.com/api/google/callback", nil, Endpoints{
		Auth:     srv.URL + "/auth",
		Token:    srv.URL + "/token",
		Userinfo: srv.URL + "/userinfo",
	})
}

func TestAuthURL(t *testing.T) {
	t.Parallel()

	c := NewClient("cid", "secret", "https://app.example.com/cb", nil, Endpoints{})
	raw := c.AuthURL("state-123")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got := u.Scheme + "://" + u.Host + u.Path; got != defaultAuthURL {
		t.Errorf("base = %q, want %q", got, defaultAuthURL)
	}

	q := u.Query()
	if q.Get("client_id") != "cid" || q.Get("state") != "state-123" {
		t.Errorf("query = %v", q)
	}
	if q.Get("access_type") != "offline" || q.Get("prompt") != "consent" {
		t.Errorf("offline access not requested: %v", q)
	}
	if !strings.Contains(q.Get("scope"), "gmail.readonly") {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestExchange(t *testing.T) {
	t.Parallel()

	var gotForm url.Values
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3599}`))
	}))

	tok, err := c.Exchange(context.Background(), "code-1")
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "at" || tok.RefreshToken != "rt" || tok.ExpiresIn != 3599 {
		t.Errorf("token = %+v", tok)
	}
	if gotForm.Get("grant_type") != "authorization_code" || gotForm.Get("code") != "code-1" {
		t.Errorf("form = %v", gotForm)
	}
	if gotForm.Get("redirect_uri") == "" {
		t.Error("redirect_uri missing from exchange")
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("success without rotation", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "rt-1" {
				t.Errorf("form = %v", r.PostForm)
			}
			_, _ = w.Write([]byte(`{"access_token":"at-2","expires_in":3600}`))
		}))

		tok, err := c.Refresh(context.Background(), "rt-1")
		if err != nil {
			t.Fatal(err)
		}
		if tok.AccessToken != "at-2" || tok.RefreshToken != "" {
			t.Errorf("token = %+v", tok)
		}
	})

	t.Run("revoked grant", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been revoked."}`))
		}))

		if _, err := c.Refresh(context.Background(), "rt-1"); err == nil {
			t.Fatal("expected an error for a revoked grant")
		} else if !strings.Contains(err.Error(), "invalid_grant") {
			t.Errorf("err = %v, want it to carry the provider error code", err)
		}
	})

	t.Run("empty access token", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))

		if _, err := c.Refresh(context.Background(), "rt-1"); err == nil {
			t.Fatal("expected an error for an empty token response")
		}
	})
}

func TestUserEmail(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			http.NotFound(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer at-1" {
			t.Errorf("authorization = %q", auth)
		}
		_, _ = w.Write([]byte(`{"email":"ana@example.com"}`))
	}))

	email, err := c.UserEmail(context.Background(), "at-1")
	if err != nil {
		t.Fatal(err)
	}
	if email != "ana@example.com" {
		t.Errorf("email = %q", email)
	}
}

func TestModuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"complete", Config{ClientID: "a", ClientSecret: "b", RedirectURL: "c"}, false},
		{"missing client id", Config{ClientSecret: "b", RedirectURL: "c"}, true},
		{"missing secret", Config{ClientID: "a", RedirectURL: "c"}, true},
		{"missing redirect", Config{ClientID: "a", ClientSecret: "b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Module{config: tt.config}
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
