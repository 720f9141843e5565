package mailtm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// Client is a thin HTTP client for a mail.tm style disposable mailbox
// API. Every call is a short-lived request with its own bearer token;
// no session state is held between calls, so a crash never leaves a
// dangling session behind.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new mailbox provider client
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type mailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

type domainEntry struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

type domainsResponse struct {
	Members []domainEntry `json:"hydra:member"`
}

type accountResponse struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type messageEntry struct {
	ID      string      `json:"id"`
	From    mailAddress `json:"from"`
	Subject string      `json:"subject"`
	Seen    bool        `json:"seen"`
}

type messagesResponse struct {
	Members []messageEntry `json:"hydra:member"`
}

type messageDetail struct {
	ID      string      `json:"id"`
	From    mailAddress `json:"from"`
	Subject string      `json:"subject"`
	Text    string      `json:"text"`
	HTML    []string    `json:"html"`
	Seen    bool        `json:"seen"`
}

// ListDomains returns the provider's available domains. It fails
// silently: any provider-side error yields an empty result.
func (c *Client) ListDomains(ctx context.Context) ([]core.Domain, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/domains", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build domains request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Provider returned non-OK status for domains",
			zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	var parsed domainsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode domains response: %w", err)
	}

	domains := make([]core.Domain, 0, len(parsed.Members))
	for _, d := range parsed.Members {
		domains = append(domains, core.Domain{ID: d.ID, Domain: d.Domain})
	}
	return domains, nil
}

// CreateAccount registers a new mailbox account. Only HTTP 201 counts
// as success.
func (c *Client) CreateAccount(ctx context.Context, address, password string) (*core.Account, error) {
	body, err := json.Marshal(map[string]string{"address": address, "password": password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/accounts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build account request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("failed to create account %s: status %d", address, resp.StatusCode)
	}

	var parsed accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}
	return &core.Account{ID: parsed.ID, Address: parsed.Address}, nil
}

// GetToken authenticates the mailbox and returns a bearer token valid
// for the provider-defined lifetime. Tokens are re-fetched every cycle.
func (c *Client) GetToken(ctx context.Context, address, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"address": address, "password": password})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request for %s returned status %d: %w", address, resp.StatusCode, core.ErrAuthFailed)
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	return parsed.Token, nil
}

// ListUnread queries page 1 of non-deleted, unseen messages. Pagination
// beyond the first page is a known limitation.
func (c *Client) ListUnread(ctx context.Context, token string) ([]core.MessageSummary, error) {
	url := c.baseURL + "/messages?page=1&isDeleted=false&seen=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build messages request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("message listing returned status %d", resp.StatusCode)
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode messages response: %w", err)
	}

	summaries := make([]core.MessageSummary, 0, len(parsed.Members))
	for _, m := range parsed.Members {
		summaries = append(summaries, core.MessageSummary{
			ID:      m.ID,
			From:    m.From.Address,
			Subject: m.Subject,
			Seen:    m.Seen,
		})
	}
	return summaries, nil
}

// GetMessage fetches the full body of a single message
func (c *Client) GetMessage(ctx context.Context, token, messageID string) (*core.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/messages/"+messageID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build message request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("message fetch for %s returned status %d", messageID, resp.StatusCode)
	}

	var parsed messageDetail
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode message response: %w", err)
	}

	return &core.Message{
		ID:      parsed.ID,
		From:    parsed.From.Address,
		Subject: parsed.Subject,
		Text:    parsed.Text,
		HTML:    strings.Join(parsed.HTML, "\n"),
		Seen:    parsed.Seen,
	}, nil
}

// MarkRead flags a message as seen. Best effort: the caller logs and
// continues on failure.
func (c *Client) MarkRead(ctx context.Context, token, messageID string) error {
	body := []byte(`{"seen":true}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/messages/"+messageID, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build mark-read request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/merge-patch+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to mark message %s as read: %w", messageID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mark-read for %s returned status %d", messageID, resp.StatusCode)
	}
	return nil
}
