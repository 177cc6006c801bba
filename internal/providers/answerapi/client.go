package answerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"campusvoice/internal/domain"
	"campusvoice/internal/observability"
	"campusvoice/internal/ports"
)

const (
	askPath      = "/bot/ask"
	sessionsPath = "/auth/chat/sessions"
	historyPath  = "/auth/chat/history/"
)

// Client talks to the answering service's REST surface. Transport-level
// timeouts are owned by the caller's context; the client only classifies
// what came back.
type Client struct {
	base   string
	http   *http.Client
	tokens ports.TokenStore
}

func New(baseURL string, tokens ports.TokenStore) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{},
		tokens: tokens,
	}
}

type askRequest struct {
	Question  string  `json:"question"`
	SessionID *string `json:"session_id"`
}

type askResponse struct {
	Answer       string `json:"answer"`
	NewSessionID string `json:"new_session_id"`
}

type sessionsResponse struct {
	Sessions []domain.Session `json:"sessions"`
}

type historyResponse struct {
	History []historyEntry `json:"history"`
}

type historyEntry struct {
	Type string `json:"type"`
	Data struct {
		Content string `json:"content"`
	} `json:"data"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Ask submits one question. A nil session id on the wire asks the server
// to mint a fresh session; the minted id comes back as NewSessionID.
func (c *Client) Ask(ctx context.Context, question string, sessionID string) (domain.AskResult, error) {
	payload := askRequest{Question: question}
	if sessionID != "" {
		payload.SessionID = &sessionID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.AskResult{}, fmt.Errorf("failed to encode ask request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.base+askPath, bytes.NewReader(body))
	if err != nil {
		return domain.AskResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out askResponse
	if err := c.do(req, &out); err != nil {
		return domain.AskResult{}, err
	}
	return domain.AskResult{Answer: out.Answer, NewSessionID: out.NewSessionID}, nil
}

// Sessions fetches the session catalog.
func (c *Client) Sessions(ctx context.Context) ([]domain.Session, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.base+sessionsPath, nil)
	if err != nil {
		return nil, err
	}

	var out sessionsResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// History fetches the stored message log for a session in server order.
func (c *Client) History(ctx context.Context, sessionID string) ([]domain.HistoryRecord, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.base+historyPath+sessionID, nil)
	if err != nil {
		return nil, err
	}

	var out historyResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	records := make([]domain.HistoryRecord, 0, len(out.History))
	for _, entry := range out.History {
		records = append(records, domain.HistoryRecord{Kind: entry.Type, Content: entry.Data.Content})
	}
	return records, nil
}

func (c *Client) newRequest(ctx context.Context, method string, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, domain.ErrAuthExpired
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	log := observability.WithFields(
		"method", req.Method,
		"path", req.URL.Path,
		"request_id", req.Header.Get("X-Request-ID"),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("request deadline exceeded")
			return &domain.RequestError{Kind: domain.FailureTimeout, Err: err}
		}
		log.Warn("request transport failure", "error", err)
		return &domain.RequestError{Kind: domain.FailureNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		log.Warn("credential rejected", "status", resp.StatusCode)
		return domain.ErrAuthExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		detail := failure.Detail
		if detail == "" {
			detail = resp.Status
		}
		log.Warn("request rejected", "status", resp.StatusCode, "detail", detail)
		return &domain.RequestError{Kind: domain.FailureRejected, Detail: detail}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Warn("response decode failed", "error", err)
		return &domain.RequestError{Kind: domain.FailureNetwork, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
