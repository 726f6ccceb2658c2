package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Progress event kinds, in the order Download reports them.
const (
	EventStarted  = "Started"
	EventProgress = "Progress"
	EventFinished = "Finished"
)

// Event reports download progress.
type Event struct {
	Event         string `json:"event"`
	ContentLength int64  `json:"contentLength,omitempty"`
	ChunkLength   int    `json:"chunkLength,omitempty"`
}

// Package-level hooks for testing.
var (
	executable = os.Executable
	tempDir    = os.TempDir
)

// Download fetches the release artifact described by info into a temp file
// and returns its path. progress may be nil.
func (u *Updater) Download(ctx context.Context, info *Info, progress func(Event)) (string, error) {
	if info == nil || !info.Available || info.URL == "" {
		return "", errors.New("no update available")
	}
	if progress == nil {
		progress = func(Event) {}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid download url: %w", err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download update: %s", resp.Status)
	}

	path := filepath.Join(tempDir(), "trycase-update-"+uuid.NewString())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0700)
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}

	progress(Event{Event: EventStarted, ContentLength: resp.ContentLength})

	_, err = io.Copy(f, &progressReader{r: resp.Body, report: progress})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to download update: %w", err)
	}

	progress(Event{Event: EventFinished})
	u.log.Info().Str("version", info.LatestVersion).Str("path", path).Msg("update downloaded")
	return path, nil
}

// Install verifies the downloaded artifact against signature and replaces the
// running executable with it. The previous binary is kept next to it with an
// ".old" suffix until the next install. Unverified artifacts are removed.
func (u *Updater) Install(downloaded, signature string) error {
	if err := u.Verify(downloaded, signature); err != nil {
		os.Remove(downloaded)
		return err
	}
	return u.replaceExecutable(downloaded)
}

func (u *Updater) replaceExecutable(downloaded string) error {
	exe, err := executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	backup := exe + ".old"
	_ = os.Remove(backup)
	if err := os.Rename(exe, backup); err != nil {
		return fmt.Errorf("failed to back up executable: %w", err)
	}

	if err := moveFile(downloaded, exe); err != nil {
		if restoreErr := os.Rename(backup, exe); restoreErr != nil {
			return fmt.Errorf("failed to install update: %w (restore failed: %v)", err, restoreErr)
		}
		return fmt.Errorf("failed to install update: %w", err)
	}
	if err := os.Chmod(exe, 0755); err != nil {
		return fmt.Errorf("failed to mark update executable: %w", err)
	}

	u.log.Info().Str("path", exe).Msg("update installed")
	return nil
}

// DownloadAndInstall is Download followed by Install. Nothing is downloaded
// when no public key is configured.
func (u *Updater) DownloadAndInstall(ctx context.Context, info *Info, progress func(Event)) error {
	if !u.CanInstall() {
		return ErrNoPublicKey
	}
	if info != nil && info.Available && info.Signature == "" {
		return ErrNoSignature
	}

	path, err := u.Download(ctx, info, progress)
	if err != nil {
		return err
	}
	return u.Install(path, info.Signature)
}

// moveFile renames src to dst, copying when they live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

type progressReader struct {
	r      io.Reader
	report func(Event)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.report(Event{Event: EventProgress, ChunkLength: n})
	}
	return n, err
}
