package mailtm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, zap.NewNop())
}

func TestListDomains(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/domains" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"hydra:member":[{"id":"d1","domain":"example.com"},{"id":"d2","domain":"example.net"}]}`)
	}))

	domains, err := client.ListDomains(context.Background())
	if err != nil {
		t.Fatalf("ListDomains: %v", err)
	}
	if len(domains) != 2 || domains[0].Domain != "example.com" {
		t.Errorf("domains = %+v", domains)
	}
}

func TestListDomainsDegradesOnProviderError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	domains, err := client.ListDomains(context.Background())
	if err != nil {
		t.Fatalf("ListDomains must not error on provider failure: %v", err)
	}
	if len(domains) != 0 {
		t.Errorf("domains = %+v, want empty", domains)
	}
}

func TestCreateAccount(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if req["address"] != "new@example.com" || req["password"] != "pw" {
			t.Errorf("request body = %v", req)
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"acc1","address":"new@example.com"}`)
	}))

	acc, err := client.CreateAccount(context.Background(), "new@example.com", "pw")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acc.ID != "acc1" || acc.Address != "new@example.com" {
		t.Errorf("account = %+v", acc)
	}
}

func TestCreateAccountRejectsNon201(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 with a body is still a failure: only 201 means created.
		io.WriteString(w, `{"id":"acc1","address":"new@example.com"}`)
	}))

	if _, err := client.CreateAccount(context.Background(), "new@example.com", "pw"); err == nil {
		t.Error("expected an error for a non-201 response")
	}
}

func TestGetToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"token":"jwt-abc"}`)
	}))

	token, err := client.GetToken(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if token != "jwt-abc" {
		t.Errorf("token = %q", token)
	}
}

func TestGetTokenAuthFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.GetToken(context.Background(), "a@example.com", "wrong")
	if !errors.Is(err, core.ErrAuthFailed) {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
}

func TestListUnread(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "1" || q.Get("isDeleted") != "false" || q.Get("seen") != "false" {
			t.Errorf("query = %v, want page=1 isDeleted=false seen=false", q)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer jwt-abc" {
			t.Errorf("Authorization = %q", got)
		}
		io.WriteString(w, `{"hydra:member":[
			{"id":"m1","from":{"address":"news@example.com"},"subject":"Hello","seen":false}
		]}`)
	}))

	summaries, err := client.ListUnread(context.Background(), "jwt-abc")
	if err != nil {
		t.Fatalf("ListUnread: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries = %+v, want 1 entry", summaries)
	}
	if summaries[0].ID != "m1" || summaries[0].From != "news@example.com" || summaries[0].Subject != "Hello" {
		t.Errorf("summary = %+v", summaries[0])
	}
}

func TestGetMessageJoinsHTMLParts(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/m1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		io.WriteString(w, `{
			"id":"m1",
			"from":{"address":"news@example.com"},
			"subject":"Hello",
			"text":"plain body",
			"html":["<p>part one</p>","<p>part two</p>"],
			"seen":false
		}`)
	}))

	msg, err := client.GetMessage(context.Background(), "jwt-abc", "m1")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if msg.Text != "plain body" {
		t.Errorf("text = %q", msg.Text)
	}
	if msg.HTML != "<p>part one</p>\n<p>part two</p>" {
		t.Errorf("html = %q", msg.HTML)
	}
}

func TestMarkRead(t *testing.T) {
	var gotContentType, gotBody string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/messages/m1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))

	if err := client.MarkRead(context.Background(), "jwt-abc", "m1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if gotContentType != "application/merge-patch+json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody != `{"seen":true}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestMarkReadReportsFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	if err := client.MarkRead(context.Background(), "jwt-abc", "gone"); err == nil {
		t.Error("expected an error for a failed mark-read")
	}
}
