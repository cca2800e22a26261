package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scottdavis/inferpipe/pkg/errors"
)

// Downloader resolves a hub reference to a local snapshot directory,
// downloading it if necessary. The operation is blocking and
// synchronous; pipelines perform it once at construction.
type Downloader interface {
	SnapshotDownload(ctx context.Context, ref string) (string, error)
}

// hubRefPattern matches "namespace/name" style hub references.
var hubRefPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*/[A-Za-z0-9][A-Za-z0-9._-]*$`)

// IsHubPath reports whether s is resolvable to a model snapshot: either
// a path that already exists locally or a "namespace/name" hub reference.
func IsHubPath(s string) bool {
	if s == "" {
		return false
	}
	if _, err := os.Stat(s); err == nil {
		return true
	}
	return hubRefPattern.MatchString(s)
}

// Client downloads model snapshots from a hub over HTTP into a local
// cache directory. Downloads are staged into a temporary directory and
// renamed into place so a failed download never leaves a partial
// snapshot behind.
type Client struct {
	baseURL  string
	cacheDir string
	http     *http.Client
	index    *Index
	logger   *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for hub requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *Client) {
		h.http = c
	}
}

// WithIndex attaches a snapshot index so repeat downloads of the same
// reference resolve from the local cache.
func WithIndex(idx *Index) ClientOption {
	return func(h *Client) {
		h.index = idx
	}
}

// WithLogger overrides the client's logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(h *Client) {
		h.logger = logger
	}
}

// NewClient creates a hub client rooted at baseURL that stores
// snapshots under cacheDir.
func NewClient(baseURL, cacheDir string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		cacheDir: cacheDir,
		http:     &http.Client{Timeout: 10 * time.Minute},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type snapshotManifest struct {
	Revision string         `json:"revision"`
	Files    []manifestFile `json:"files"`
}

type manifestFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// SnapshotDownload implements Downloader. It fetches the snapshot
// manifest for ref, downloads every listed file and returns the local
// snapshot directory. Previously downloaded snapshots recorded in the
// index are returned without touching the network.
func (c *Client) SnapshotDownload(ctx context.Context, ref string) (string, error) {
	if !hubRefPattern.MatchString(ref) {
		return "", errors.WithFields(
			errors.New(errors.InvalidInput, "not a valid hub reference"),
			errors.Fields{"ref": ref},
		)
	}

	if c.index != nil {
		path, ok, err := c.index.Lookup(ref)
		if err != nil {
			return "", err
		}
		if ok {
			if _, statErr := os.Stat(path); statErr == nil {
				c.logger.Debug("snapshot cache hit", "ref", ref, "path", path)
				return path, nil
			}
			// Stale index entry, the snapshot directory is gone.
			if err := c.index.Remove(ref); err != nil {
				return "", err
			}
		}
	}

	manifest, err := c.fetchManifest(ctx, ref)
	if err != nil {
		return "", err
	}

	stage := filepath.Join(c.cacheDir, "tmp-"+uuid.New().String())
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return "", errors.WithFields(
			errors.Wrap(err, errors.DownloadFailed, "failed to create staging directory"),
			errors.Fields{"ref": ref, "dir": stage},
		)
	}
	defer os.RemoveAll(stage)

	for _, file := range manifest.Files {
		if err := c.downloadFile(ctx, ref, manifest.Revision, file.Path, stage); err != nil {
			return "", err
		}
	}

	target := filepath.Join(c.cacheDir, strings.ReplaceAll(ref, "/", "--"), manifest.Revision)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", errors.WithFields(
			errors.Wrap(err, errors.DownloadFailed, "failed to create snapshot directory"),
			errors.Fields{"ref": ref, "dir": target},
		)
	}
	if _, err := os.Stat(target); err == nil {
		// A concurrent or earlier download already placed this revision.
		c.logger.Debug("snapshot already present", "ref", ref, "path", target)
	} else if err := os.Rename(stage, target); err != nil {
		return "", errors.WithFields(
			errors.Wrap(err, errors.DownloadFailed, "failed to move snapshot into place"),
			errors.Fields{"ref": ref, "dir": target},
		)
	}

	if c.index != nil {
		if err := c.index.Record(ref, manifest.Revision, target); err != nil {
			return "", err
		}
	}

	c.logger.Info("downloaded snapshot", "ref", ref, "revision", manifest.Revision, "files", len(manifest.Files), "path", target)
	return target, nil
}

func (c *Client) fetchManifest(ctx context.Context, ref string) (*snapshotManifest, error) {
	url := fmt.Sprintf("%s/api/v1/models/%s/manifest", c.baseURL, ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to create manifest request"),
			errors.Fields{"ref": ref},
		)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.DownloadFailed, "failed to fetch snapshot manifest"),
			errors.Fields{"ref": ref},
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "model not found on hub"),
			errors.Fields{"ref": ref},
		)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.WithFields(
			errors.New(errors.DownloadFailed, fmt.Sprintf("manifest request failed with status code %d", resp.StatusCode)),
			errors.Fields{"ref": ref, "status_code": resp.StatusCode},
		)
	}

	var manifest snapshotManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidResponse, "failed to decode snapshot manifest"),
			errors.Fields{"ref": ref},
		)
	}
	if manifest.Revision == "" || len(manifest.Files) == 0 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidResponse, "snapshot manifest is missing revision or files"),
			errors.Fields{"ref": ref},
		)
	}

	return &manifest, nil
}

func (c *Client) downloadFile(ctx context.Context, ref, revision, path, stage string) error {
	url := fmt.Sprintf("%s/api/v1/models/%s/resolve/%s/%s", c.baseURL, ref, revision, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to create file request"),
			errors.Fields{"ref": ref, "file": path},
		)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.DownloadFailed, "failed to download snapshot file"),
			errors.Fields{"ref": ref, "file": path},
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.WithFields(
			errors.New(errors.DownloadFailed, fmt.Sprintf("file request failed with status code %d", resp.StatusCode)),
			errors.Fields{"ref": ref, "file": path, "status_code": resp.StatusCode},
		)
	}

	local := filepath.Join(stage, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.DownloadFailed, "failed to create file directory"),
			errors.Fields{"ref": ref, "file": path},
		)
	}

	out, err := os.Create(local)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.DownloadFailed, "failed to create local file"),
			errors.Fields{"ref": ref, "file": path},
		)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.DownloadFailed, "failed to write snapshot file"),
			errors.Fields{"ref": ref, "file": path},
		)
	}
	return nil
}
