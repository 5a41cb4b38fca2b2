// Package github looks up GitHub user identities for profile enrichment.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"EvolutionProfiles/internal/domain"
)

const defaultBaseURL = "https://api.github.com"

// HTTPClient allows swapping the transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL    string
	token      string
	httpClient HTTPClient
	now        func() time.Time
}

func NewClient(baseURL, token string, httpClient HTTPClient) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		now:        time.Now,
	}
}

type githubUser struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	Bio       string `json:"bio"`
}

// User fetches the public profile of a GitHub user. A missing user yields
// domain.ErrIdentityNotFound.
func (c *Client) User(ctx context.Context, username string) (*domain.GitHubUser, error) {
	if username == "" {
		return nil, domain.ErrIdentityNotFound
	}

	endpoint := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(username))

	var gh githubUser
	if err := c.doRequest(ctx, endpoint, &gh); err != nil {
		return nil, fmt.Errorf("get github user %s: %w", username, err)
	}

	return &domain.GitHubUser{
		Login:     gh.Login,
		Name:      gh.Name,
		AvatarURL: gh.AvatarURL,
		HTMLURL:   gh.HTMLURL,
		Bio:       gh.Bio,
		FetchedAt: c.now().UTC(),
	}, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.ErrIdentityNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
