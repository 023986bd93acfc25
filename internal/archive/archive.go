package archive

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/transcript"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// Client uploads rendered transcripts and returns a retrievable reference.
type Client interface {
	Upload(ctx context.Context, ticketID int64, doc *transcript.Document) (string, error)
}

// New selects the archival backend named by cfg.Driver.
func New(cfg config.ArchiveConfig, logger *zap.Logger) (Client, error) {
	switch cfg.Driver {
	case "github", "":
		if cfg.GitHubToken == "" || cfg.GitHubRepo == "" {
			return nil, fmt.Errorf("github archive requires GITHUB_TOKEN and GITHUB_REPO")
		}
		return NewGitHub(GitHubOptions{
			Token:   cfg.GitHubToken,
			Repo:    cfg.GitHubRepo,
			Branch:  cfg.GitHubBranch,
			Dir:     cfg.GitHubDir,
			APIURL:  cfg.GitHubAPIURL,
			WebURL:  cfg.GitHubWebURL,
			Timeout: cfg.Timeout(),
		}), nil
	case "file":
		if cfg.FileDir == "" {
			return nil, fmt.Errorf("file archive requires ARCHIVE_FILE_DIR")
		}
		return NewFileArchive(cfg.FileDir, cfg.FileBaseURL), nil
	case "none":
		if logger != nil {
			logger.Warn("transcript archival disabled; closures will report transcript unavailable")
		}
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}

// Disabled rejects every upload.
type Disabled struct{}

// Upload always fails with an archival error.
func (Disabled) Upload(_ context.Context, ticketID int64, _ *transcript.Document) (string, error) {
	return "", apperrors.NewArchivalError(fmt.Sprintf("archival disabled, transcript %d not stored", ticketID), nil)
}

func checkDocument(ticketID int64, doc *transcript.Document) error {
	if doc == nil {
		return apperrors.NewArchivalError(fmt.Sprintf("no transcript for ticket %d", ticketID), nil)
	}
	return nil
}
