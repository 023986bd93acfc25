package archive

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/transcript"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

func sampleDocument() *transcript.Document {
	return &transcript.Document{
		TicketID:    9,
		FileName:    "9.html",
		ContentType: transcript.ContentType,
		Body:        []byte("<html>transcript</html>"),
	}
}

func TestGitHubUpload(t *testing.T) {
	type captured struct {
		method, path, auth, accept string
		body                       putContentRequest
	}
	requests := make(chan captured, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := captured{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			accept: r.Header.Get("Accept"),
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req.body))
		requests <- req
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"content":{}}`))
	}))
	defer server.Close()

	client := NewGitHub(GitHubOptions{
		Token:  "secret",
		Repo:   "acme/transcripts",
		Branch: "archive",
		Dir:    "/tickets/",
		APIURL: server.URL,
		WebURL: "https://github.com",
	})
	url, err := client.Upload(context.Background(), 9, sampleDocument())
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/transcripts/blob/archive/tickets/9.html", url)
	got := <-requests
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/repos/acme/transcripts/contents/tickets/9.html", got.path)
	assert.Equal(t, "Bearer secret", got.auth)
	assert.Equal(t, "application/vnd.github+json", got.accept)
	assert.Equal(t, "Add transcript for ticket 9", got.body.Message)
	assert.Equal(t, "archive", got.body.Branch)
	decoded, err := base64.StdEncoding.DecodeString(got.body.Content)
	require.NoError(t, err)
	assert.Equal(t, "<html>transcript</html>", string(decoded))
}

func TestGitHubUploadEnterpriseLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/repos/corp/tickets/contents/transcripts/9.html", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"content":{}}`))
	}))
	defer server.Close()

	client := NewGitHub(GitHubOptions{Token: "t", Repo: "corp/tickets", Dir: "transcripts", APIURL: server.URL + "/api/v3"})
	url, err := client.Upload(context.Background(), 9, sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/corp/tickets/blob/main/transcripts/9.html", url)
}

func TestWebBaseURL(t *testing.T) {
	cases := []struct {
		api, web, want string
	}{
		{"", "", "https://github.com"},
		{"https://api.github.com", "", "https://github.com"},
		{"https://api.github.com/", "", "https://github.com"},
		{"https://ghe.corp.example/api/v3", "", "https://ghe.corp.example"},
		{"https://ghe.corp.example/api/v3/", "", "https://ghe.corp.example"},
		{"https://ghe.corp.example/api/v3", "https://code.corp.example/", "https://code.corp.example"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, webBaseURL(tc.api, tc.web), "api=%q web=%q", tc.api, tc.web)
	}
}

func TestGitHubUploadRejected(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"sha wasn't supplied"}`))
	}))
	defer server.Close()

	client := NewGitHub(GitHubOptions{Token: "t", Repo: "acme/x", APIURL: server.URL})
	_, err := client.Upload(context.Background(), 1, sampleDocument())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeArchival))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGitHubUploadTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewGitHub(GitHubOptions{Token: "t", Repo: "acme/x", APIURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Upload(context.Background(), 1, sampleDocument())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeArchival))
}

func TestUploadWithoutDocument(t *testing.T) {
	_, err := NewFileArchive(t.TempDir(), "").Upload(context.Background(), 3, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeArchival))
}

func TestFileArchiveUpload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "transcripts")
	client := NewFileArchive(dir, "https://files.example.com/t/")

	url, err := client.Upload(context.Background(), 9, sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/t/9.html", url)

	data, err := os.ReadFile(filepath.Join(dir, "9.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>transcript</html>", string(data))
}

func TestFileArchiveWithoutBaseURL(t *testing.T) {
	dir := t.TempDir()
	url, err := NewFileArchive(dir, "").Upload(context.Background(), 9, sampleDocument())
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(url))
	assert.Equal(t, "9.html", filepath.Base(url))
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Upload(context.Background(), 1, sampleDocument())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeArchival))
}

func TestNew(t *testing.T) {
	_, err := New(config.ArchiveConfig{Driver: "github"}, nil)
	assert.Error(t, err)

	c, err := New(config.ArchiveConfig{Driver: "github", GitHubToken: "t", GitHubRepo: "a/b"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &GitHub{}, c)

	c, err = New(config.ArchiveConfig{Driver: "file", FileDir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileArchive{}, c)

	c, err = New(config.ArchiveConfig{Driver: "none"}, nil)
	require.NoError(t, err)
	assert.IsType(t, Disabled{}, c)

	_, err = New(config.ArchiveConfig{Driver: "s3"}, nil)
	assert.Error(t, err)
}
