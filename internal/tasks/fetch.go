package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vk/taskrig/internal/ctxlog"
	"github.com/vk/taskrig/internal/task"
)

// Fetch downloads a URL into the build output directory, retrying transient
// failures with exponential backoff. Client errors (4xx) are permanent and
// not retried.
type Fetch struct {
	Name     string
	URL      string
	Dest     string // destination path relative to the build directory
	Requires []task.Task

	// retryInterval overrides the initial backoff interval in tests.
	retryInterval time.Duration
}

const fetchMaxRetries = 4

func (f *Fetch) Label() string { return f.Name }

func (f *Fetch) RequiredTasks() []task.Task { return f.Requires }

func (f *Fetch) Run(ctx context.Context, rc *task.RunContext) error {
	dest := filepath.Join(rc.BuildDir(), f.Dest)
	ctxlog.FromContext(ctx).Info("Fetching artifact.", "url", f.URL, "dest", dest)

	policy := backoff.NewExponentialBackOff()
	if f.retryInterval > 0 {
		policy.InitialInterval = f.retryInterval
	}
	operation := func() error {
		return f.download(ctx, dest)
	}
	b := backoff.WithMaxRetries(policy, fetchMaxRetries)
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("fetch %s: %w", f.URL, err)
	}
	return nil
}

func (f *Fetch) download(ctx context.Context, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to the write
	case resp.StatusCode >= 500:
		return fmt.Errorf("server error: %s", resp.Status)
	default:
		return backoff.Permanent(fmt.Errorf("unexpected status: %s", resp.Status))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return backoff.Permanent(fmt.Errorf("create destination directory: %w", err))
	}
	out, err := os.Create(dest)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create destination file: %w", err))
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
