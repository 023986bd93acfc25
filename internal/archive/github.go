package archive

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/ticketdesk/internal/transcript"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubOptions configures the repository-contents uploader.
type GitHubOptions struct {
	Token   string
	Repo    string
	Branch  string
	Dir     string
	APIURL  string
	// WebURL is where blob links point; derived from APIURL when empty.
	WebURL  string
	Timeout time.Duration
}

// GitHub commits transcripts to a repository through the contents API.
type GitHub struct {
	client *resty.Client
	web    string
	repo   string
	branch string
	dir    string
}

type putContentRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
}

// NewGitHub builds an uploader. Requests are never retried.
func NewGitHub(opts GitHubOptions) *GitHub {
	if opts.APIURL == "" {
		opts.APIURL = defaultGitHubAPI
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.APIURL, "/")).
		SetAuthToken(opts.Token).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", "2022-11-28").
		SetRetryCount(0)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	return &GitHub{
		client: client,
		web:    webBaseURL(opts.APIURL, opts.WebURL),
		repo:   opts.Repo,
		branch: opts.Branch,
		dir:    strings.Trim(opts.Dir, "/"),
	}
}

// Upload stores doc as {dir}/{id}.html and returns its blob URL.
func (g *GitHub) Upload(ctx context.Context, ticketID int64, doc *transcript.Document) (string, error) {
	if err := checkDocument(ticketID, doc); err != nil {
		return "", err
	}
	filePath := path.Join(g.dir, doc.FileName)
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(putContentRequest{
			Message: fmt.Sprintf("Add transcript for ticket %d", ticketID),
			Content: base64.StdEncoding.EncodeToString(doc.Body),
			Branch:  g.branch,
		}).
		Put(fmt.Sprintf("/repos/%s/contents/%s", g.repo, filePath))
	if err != nil {
		return "", apperrors.NewArchivalError("transcript upload failed", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return "", apperrors.NewArchivalError(
			fmt.Sprintf("transcript upload rejected with status %d", resp.StatusCode()),
			fmt.Errorf("%s", truncate(resp.String(), 200)),
		)
	}
	return fmt.Sprintf("%s/%s/blob/%s/%s", g.web, g.repo, g.branch, filePath), nil
}

// webBaseURL maps an API endpoint to the matching web host: api.github.com
// serves github.com, and Enterprise Server serves its API under /api/v3.
func webBaseURL(apiURL, webURL string) string {
	if webURL != "" {
		return strings.TrimRight(webURL, "/")
	}
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil || u.Host == "" {
		return "https://github.com"
	}
	if strings.EqualFold(u.Host, "api.github.com") {
		return "https://github.com"
	}
	u.Path = strings.TrimSuffix(u.Path, "/api/v3")
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
