package models

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Progress struct {
	Downloaded int64
	Total      int64
	SpeedMBps  float64
	ETA        time.Duration
}

type ProgressCallback func(Progress)

// Downloader fetches and installs model bundles one at a time.
type Downloader struct {
	Client    *http.Client
	Retries   int
	RetryWait time.Duration

	mu sync.Mutex
}

func NewDownloader() *Downloader {
	return &Downloader{
		Client:    &http.Client{Timeout: 0},
		Retries:   2,
		RetryWait: 500 * time.Millisecond,
	}
}

// DownloadAndInstall fetches the bundle archive, verifies its checksum,
// and swaps it into place under root. A failed install leaves any
// previous version of the model untouched and never a partial bundle.
func (d *Downloader) DownloadAndInstall(ctx context.Context, model ModelSpec, root string, onProgress ProgressCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if model.URL == "" {
		return fmt.Errorf("model %s has no download URL", model.Name)
	}
	if !model.Published() {
		return fmt.Errorf("model %s has no published release yet", model.Name)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp(root, model.Name+"-download-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, model.Name+".tar.gz")
	if err := d.downloadWithRetry(ctx, model.URL, archivePath, onProgress); err != nil {
		return err
	}
	if err := VerifyChecksum(archivePath, model.Checksum); err != nil {
		return err
	}

	extractDir := filepath.Join(tmpDir, "extract")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return err
	}
	if err := ExtractTarGz(archivePath, extractDir); err != nil {
		return err
	}
	if err := normalizeBundleDir(extractDir); err != nil {
		return err
	}

	finalPath := InstallPath(root, model.Name)
	oldPath := finalPath + ".bak"
	_ = os.RemoveAll(oldPath)
	if _, err := os.Stat(finalPath); err == nil {
		if err := os.Rename(finalPath, oldPath); err != nil {
			return err
		}
	}
	if err := os.Rename(extractDir, finalPath); err != nil {
		_ = os.Rename(oldPath, finalPath)
		return err
	}
	if err := os.WriteFile(filepath.Join(finalPath, ".checksum"), []byte(model.Checksum+"\n"), 0o644); err != nil {
		return err
	}
	_ = os.RemoveAll(oldPath)
	return nil
}

func (d *Downloader) downloadWithRetry(ctx context.Context, url, dest string, onProgress ProgressCallback) error {
	var lastErr error
	for attempt := 0; attempt <= d.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.RetryWait):
			}
		}
		lastErr = d.download(ctx, url, dest, onProgress)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("download failed after retries: %w", lastErr)
}

func (d *Downloader) download(ctx context.Context, url, dest string, onProgress ProgressCallback) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status %d", resp.StatusCode)
	}

	buf := make([]byte, 32*1024)
	start := time.Now()
	var downloaded int64
	total := resp.ContentLength
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
			downloaded += int64(n)
			if onProgress != nil {
				onProgress(progressAt(start, downloaded, total))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func progressAt(start time.Time, downloaded, total int64) Progress {
	elapsed := time.Since(start).Seconds()
	speed := 0.0
	if elapsed > 0 {
		speed = float64(downloaded) / elapsed / 1024 / 1024
	}
	eta := time.Duration(0)
	if total > 0 && speed > 0 {
		remainingMB := float64(total-downloaded) / 1024 / 1024
		eta = time.Duration(remainingMB / speed * float64(time.Second))
	}
	return Progress{Downloaded: downloaded, Total: total, SpeedMBps: speed, ETA: eta}
}

func VerifyChecksum(file, expected string) error {
	if strings.TrimSpace(expected) == "" {
		return fmt.Errorf("checksum missing")
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	actual := "sha256:" + hex.EncodeToString(h.Sum(nil))
	if actual != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

func ExtractTarGz(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		clean := filepath.Clean(hdr.Name)
		clean = strings.TrimPrefix(clean, "./")
		if clean == "." || strings.HasPrefix(clean, "../") {
			continue
		}
		target := filepath.Join(dest, clean)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			continue
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

// normalizeBundleDir accepts archives that wrap everything in a single
// top-level directory and hoists the contents up, then checks that the
// required bundle files are present.
func normalizeBundleDir(base string) error {
	if bundleComplete(base) {
		return nil
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		inner := filepath.Join(base, entries[0].Name())
		if bundleComplete(inner) {
			moved, err := os.ReadDir(inner)
			if err != nil {
				return err
			}
			for _, e := range moved {
				if err := os.Rename(filepath.Join(inner, e.Name()), filepath.Join(base, e.Name())); err != nil {
					return err
				}
			}
			return os.Remove(inner)
		}
	}
	return fmt.Errorf("invalid model archive: missing required files")
}
