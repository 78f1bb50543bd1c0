package materials

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"
)

// Watch polls the materials directory and invokes reload when any file's
// mtime, the file count, or total size changes. Polling avoids a platform
// watcher dependency and is plenty for a directory humans edit occasionally.
func Watch(ctx context.Context, dir string, interval time.Duration, reload func()) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	last := snapshot(dir)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := snapshot(dir)
			if cur != last {
				slog.Info("Reference materials changed, reloading", "dir", dir)
				last = cur
				reload()
			}
		}
	}
}

// snapshot summarizes the directory state into a comparable fingerprint.
func snapshot(dir string) string {
	var fingerprint string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fingerprint += path + "|" + info.ModTime().String() + "|" + strconv.FormatInt(info.Size(), 10) + ";"
		return nil
	})
	return fingerprint
}
