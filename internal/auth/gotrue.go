package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Credentials is an email/password pair.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is what GoTrue returns on a successful login.
type Session struct {
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"`
	ExpiresAt    int64           `json:"expires_at,omitempty"`
	RefreshToken string          `json:"refresh_token"`
	User         json.RawMessage `json:"user,omitempty"`
}

// APIError is a non-2xx answer from GoTrue.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth provider returned %d: %s", e.StatusCode, e.Message)
}

// GoTrueClient calls the Supabase auth endpoints.
type GoTrueClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGoTrueClient(supabaseURL, apiKey string, client *http.Client) *GoTrueClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &GoTrueClient{
		baseURL: strings.TrimRight(supabaseURL, "/") + "/auth/v1",
		apiKey:  apiKey,
		client:  client,
	}
}

func (c *GoTrueClient) SignUp(ctx context.Context, creds Credentials) error {
	return c.post(ctx, "/signup", creds, nil)
}

func (c *GoTrueClient) SignIn(ctx context.Context, creds Credentials) (Session, error) {
	var s Session
	if err := c.post(ctx, "/token?grant_type=password", creds, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (c *GoTrueClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth provider: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("auth provider: read response: %w", err)
	}
	if res.StatusCode/100 != 2 {
		return &APIError{StatusCode: res.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("auth provider: decode response: %w", err)
	}
	return nil
}

// errorMessage picks the human readable field out of a GoTrue error body,
// whose shape differs between versions.
func errorMessage(raw []byte) string {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return "request failed"
}
