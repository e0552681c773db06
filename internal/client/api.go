// Package client implements the newsroom client core: the HTTP API
// client, durable token storage, the session state machine that keeps the
// locally perceived identity in sync with the server, and the route guard
// gating protected operations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenHeader carries the session token on protected requests.
const TokenHeader = "x-auth-token"

// APIError is a non-2xx response from the server, carrying the server's
// human-readable message for the UI.
type APIError struct {
	StatusCode int
	Msg        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Msg)
}

// IsRejection reports whether the error is a confirmed authentication
// rejection, as opposed to a transport failure.
func IsRejection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// User mirrors the server's user representation.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Article mirrors the server's article representation.
type Article struct {
	ID            string `json:"id"`
	Owner         string `json:"owner"`
	Author        string `json:"author"`
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Content       string `json:"content"`
	Category      string `json:"category"`
	ImageURL      string `json:"imageUrl"`
	PublishedDate string `json:"publishedDate"`
}

// ArticleInput is the payload for article creation and update. Nil
// fields are omitted from updates.
type ArticleInput struct {
	Title         *string    `json:"title,omitempty"`
	Content       *string    `json:"content,omitempty"`
	Category      *string    `json:"category,omitempty"`
	ImageURL      *string    `json:"imageUrl,omitempty"`
	PublishedDate *time.Time `json:"publishedDate,omitempty"`
}

// API talks to the newsroom server over HTTP/JSON.
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type registerResponse struct {
	Token string `json:"token"`
	Msg   string `json:"msg"`
}

// Register creates an account. The returned message is the server's
// confirmation; registration does not log the user in.
func (a *API) Register(ctx context.Context, username, email, password string) (string, error) {
	var resp registerResponse
	err := a.do(ctx, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Msg, nil
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (a *API) Login(ctx context.Context, email, password string) (string, *User, error) {
	var resp loginResponse
	err := a.do(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return "", nil, err
	}
	return resp.Token, &resp.User, nil
}

// Me verifies the token against the server and returns the identity the
// server derives from it.
func (a *API) Me(ctx context.Context, token string) (*User, error) {
	var user User
	if err := a.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *API) Logout(ctx context.Context, token string) error {
	return a.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}

func (a *API) ListArticles(ctx context.Context, query string) ([]Article, error) {
	path := "/api/articles"
	if strings.TrimSpace(query) != "" {
		path += "?query=" + url.QueryEscape(query)
	}
	var articles []Article
	if err := a.do(ctx, http.MethodGet, path, "", nil, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (a *API) GetArticle(ctx context.Context, id string) (*Article, error) {
	var article Article
	if err := a.do(ctx, http.MethodGet, "/api/articles/"+url.PathEscape(id), "", nil, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func (a *API) CreateArticle(ctx context.Context, token string, input ArticleInput) (*Article, error) {
	var article Article
	if err := a.do(ctx, http.MethodPost, "/api/articles", token, input, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func (a *API) UpdateArticle(ctx context.Context, token, id string, input ArticleInput) (*Article, error) {
	var article Article
	if err := a.do(ctx, http.MethodPut, "/api/articles/"+url.PathEscape(id), token, input, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func (a *API) DeleteArticle(ctx context.Context, token, id string) error {
	return a.do(ctx, http.MethodDelete, "/api/articles/"+url.PathEscape(id), token, nil, nil)
}

// UploadMedia uploads an image and returns its URL for use as an
// article's imageUrl.
func (a *API) UploadMedia(ctx context.Context, token, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/media", &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(TokenHeader, token)

	var resp struct {
		URL string `json:"url"`
	}
	if err := a.send(req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (a *API) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}

	return a.send(req, out)
}

func (a *API) send(req *http.Request, out any) error {
	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Msg: errorMessage(resp.Body)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(body io.Reader) string {
	var payload struct {
		Msg string `json:"msg"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil || payload.Msg == "" {
		return "request failed"
	}
	return payload.Msg
}
