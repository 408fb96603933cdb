package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/vk/taskrig/internal/ctxlog"
	"github.com/vk/taskrig/internal/shell"
)

// FixOwnership restores project files to the invoking user after tasks that
// may have run as root, e.g. inside containers. The .git directory is left
// alone. Best effort: failures are logged, never fatal, so it is safe to run
// after a failed batch.
func (a *App) FixOwnership(ctx context.Context) {
	if a.config.UserID == "" || a.config.GroupID == "" {
		return
	}
	ctx = ctxlog.WithLogger(ctx, a.logger)

	entries, err := os.ReadDir(a.config.ProjectRoot)
	if err != nil {
		a.logger.Warn("Failed to list project root for ownership cleanup.", "error", err)
		return
	}
	var paths []string
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		paths = append(paths, filepath.Join(a.config.ProjectRoot, entry.Name()))
	}
	if len(paths) == 0 {
		return
	}

	owner := a.config.UserID + ":" + a.config.GroupID
	err = shell.Run(ctx, shell.Command{
		Argv:   shell.Args("chown", "-R", owner, paths),
		Silent: true,
	})
	if err != nil {
		a.logger.Warn("Failed to restore file ownership.", "owner", owner, "error", err)
	}
}
