package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
)

// Resources are the collections the dashboard manages.
var Resources = []string{
	"users",
	"products",
	"orders",
	"coupons",
	"banners",
	"templates",
	"reviews",
	"videos",
	"contacts",
}

func IsResource(name string) bool {
	return slices.Contains(Resources, name)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Record is one row of a resource collection, kept as the backend sent it.
type Record map[string]any

// ID returns the record's `_id` (or `id`) rendered as a string.
func (r Record) ID() string {
	for _, key := range []string{"_id", "id"} {
		if v, ok := r[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// Client talks to the Craft-Cart REST API. Authenticated calls take the
// credential explicitly; the client never stores it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client (timeouts, transports, tests).
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("client.Login: %w", ErrMissingArguments)
	}

	var res LoginResponse
	req := LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", req, &res); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if res.Token == "" {
		return nil, fmt.Errorf("client.Login: %w: empty token", ErrResponse)
	}
	return &res, nil
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (string, error) {
	if req.Email == "" || req.Password == "" {
		return "", fmt.Errorf("client.Signup: %w", ErrMissingArguments)
	}

	var res MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", "", req, &res); err != nil {
		return "", fmt.Errorf("client.Signup: %w", err)
	}
	return res.Message, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", fmt.Errorf("client.ForgotPassword: %w", ErrMissingArguments)
	}

	var res MessageResponse
	req := ForgotPasswordRequest{Email: email}
	if err := c.do(ctx, http.MethodPost, "/api/auth/forgot-password", "", req, &res); err != nil {
		return "", fmt.Errorf("client.ForgotPassword: %w", err)
	}
	return res.Message, nil
}

func (c *Client) ResetPassword(ctx context.Context, resetToken, password string) (string, error) {
	if resetToken == "" || password == "" {
		return "", fmt.Errorf("client.ResetPassword: %w", ErrMissingArguments)
	}

	var res MessageResponse
	path := "/api/auth/reset-password/" + url.PathEscape(resetToken)
	req := ResetPasswordRequest{Password: password}
	if err := c.do(ctx, http.MethodPost, path, "", req, &res); err != nil {
		return "", fmt.Errorf("client.ResetPassword: %w", err)
	}
	return res.Message, nil
}

// Me returns the profile behind credential, as the backend sees it.
func (c *Client) Me(ctx context.Context, credential string) (*session.User, error) {
	var user session.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", credential, nil, &user); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	return &user, nil
}

func (c *Client) List(ctx context.Context, credential, resource string) ([]Record, error) {
	if !IsResource(resource) {
		return nil, fmt.Errorf("client.List: %w: %s", ErrUnknownResource, resource)
	}

	var records []Record
	if err := c.do(ctx, http.MethodGet, "/api/"+resource, credential, nil, &records); err != nil {
		return nil, fmt.Errorf("client.List: %w", err)
	}
	return records, nil
}

func (c *Client) Delete(ctx context.Context, credential, resource, id string) error {
	if !IsResource(resource) {
		return fmt.Errorf("client.Delete: %w: %s", ErrUnknownResource, resource)
	}
	if id == "" {
		return fmt.Errorf("client.Delete: %w", ErrMissingArguments)
	}

	path := "/api/" + resource + "/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, credential, nil, nil); err != nil {
		return fmt.Errorf("client.Delete: %w", err)
	}
	return nil
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	credential string,
	body any,
	result any,
) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	_log(LogLevelDebug, "%s %s\n", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		_log(LogLevelError, "%s %s failed: %v\n", method, path, err)
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", ErrUnauthorized, httpErr)
		}
		return httpErr
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		_log(LogLevelError, "failed to decode %s %s response: %v\n", method, path, err)
		return fmt.Errorf("%w: %v", ErrResponse, err)
	}
	return nil
}

func readMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var msg MessageResponse
	if err := json.Unmarshal(data, &msg); err == nil && msg.Message != "" {
		return msg.Message
	}
	return strings.TrimSpace(string(data))
}
