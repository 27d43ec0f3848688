package binary

import (
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
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/sirupsen/logrus"

	"github.com/codexm-app/depfetch/internal/github"
)

const (
	// DefaultTimeout is the HTTP request timeout for asset downloads.
	DefaultTimeout = 5 * time.Minute
	// DefaultRetries is the number of transport-level retry attempts.
	DefaultRetries = 3
)

// statusError is a non-200 response. Codes in the 4xx range are permanent:
// the asset is missing or access is denied, and retrying cannot change that.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

func (e *statusError) permanent() bool {
	return e.Code >= 400 && e.Code < 500
}

// Downloader streams release assets to disk, hashing the bytes as they
// arrive. Transport failures and server errors are retried with backoff;
// client errors and digest mismatches are terminal and never retried, since
// a missing asset stays missing and a corrupted upload stays corrupted.
type Downloader struct {
	client    *http.Client
	token     string
	userAgent string
	retries   int
	logger    *logrus.Entry
}

// NewDownloader creates a downloader. token may be empty; when set it is
// sent as a bearer token, which raises GitHub's rate limits.
func NewDownloader(token string) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		token:     token,
		userAgent: github.DefaultUserAgent,
		retries:   DefaultRetries,
		logger:    logrus.WithField("component", "downloader"),
	}
}

// Download fetches url into destPath and returns the hex SHA-256 of the
// bytes written. When expectedSHA256 is non-empty it is compared
// case-insensitively against the computed digest; on mismatch the file is
// removed and an IntegrityError is returned.
func (d *Downloader) Download(ctx context.Context, url, destPath, expectedSHA256 string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("download %s: empty asset URL", filepath.Base(destPath))
	}

	var (
		sum     string
		lastErr error
	)
	for attempt := 0; attempt <= d.retries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		sum, lastErr = d.downloadOnce(ctx, url, destPath)
		if lastErr == nil {
			break
		}
		var status *statusError
		if errors.As(lastErr, &status) && status.permanent() {
			return "", fmt.Errorf("download %s: %w", filepath.Base(destPath), lastErr)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("download failed after %d retries: %w", d.retries, lastErr)
	}

	if expectedSHA256 != "" && !strings.EqualFold(sum, expectedSHA256) {
		// The partial artifact must never be consumed downstream.
		os.Remove(destPath)
		return "", &IntegrityError{
			Path:     destPath,
			Expected: strings.ToLower(expectedSHA256),
			Actual:   sum,
		}
	}
	return sum, nil
}

// downloadOnce performs a single streaming download attempt, returning the
// hex SHA-256 of the response body.
func (d *Downloader) downloadOnce(ctx context.Context, url, destPath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{Code: resp.StatusCode}
	}

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create dest dir: %w", err)
	}
	d.checkFreeSpace(destDir, resp.ContentLength)

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	// Stream through the hasher so the archive is never held in memory.
	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmpFile, hasher), resp.Body); err != nil {
		return "", fmt.Errorf("copy response body: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("rename temp file: %w", err)
	}
	cleanupNeeded = false

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// checkFreeSpace warns when the destination filesystem looks too small for
// the announced payload. Purely advisory: usage stats may be unavailable in
// minimal containers, and the write itself will fail loudly anyway.
func (d *Downloader) checkFreeSpace(dir string, contentLength int64) {
	if contentLength <= 0 {
		return
	}
	usage, err := disk.Usage(dir)
	if err != nil {
		return
	}
	if usage.Free < uint64(contentLength) {
		d.logger.WithFields(logrus.Fields{
			"dir":    dir,
			"free":   usage.Free,
			"needed": contentLength,
		}).Warn("Destination filesystem may be too small for download")
	}
}
