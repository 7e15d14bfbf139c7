package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds the watch folder settings
type Config struct {
	Folder   string
	EventID  string
	APIBase  string
	Interval time.Duration
}

// Watcher posts every new file of a folder to the backend. Seen files
// are tracked in memory only, so a restart uploads the folder again.
type Watcher struct {
	cfg    Config
	client *http.Client

	mu   sync.RWMutex
	seen map[string]struct{}
}

// New creates a watcher
func New(cfg Config) (*Watcher, error) {
	if cfg.Folder == "" {
		return nil, fmt.Errorf("folder is required")
	}
	if cfg.EventID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	if cfg.APIBase == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")

	return &Watcher{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Minute},
		seen:   make(map[string]struct{}),
	}, nil
}

// Run polls the folder until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	log.Info().
		Str("folder", w.cfg.Folder).
		Str("event_id", w.cfg.EventID).
		Str("api", w.cfg.APIBase).
		Msg("Watching folder")

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := w.Scan(ctx); err != nil {
			log.Error().Err(err).Msg("Scan failed")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping uploader")
			return nil
		case <-ticker.C:
		}
	}
}

// Scan uploads every regular, non-hidden file not uploaded before. A
// failed upload is retried on the next scan.
func (w *Watcher) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.cfg.Folder)
	if err != nil {
		return fmt.Errorf("failed to read folder: %w", err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(w.cfg.Folder, entry.Name())
		if w.Seen(path) {
			continue
		}

		ids, err := w.upload(ctx, path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Upload failed")
			continue
		}
		w.mu.Lock()
		w.seen[path] = struct{}{}
		w.mu.Unlock()
		log.Info().Str("file", path).Strs("uploads", ids).Msg("File uploaded")
	}
	return nil
}

// Seen reports whether path was uploaded. Safe to call while Run is active.
func (w *Watcher) Seen(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.seen[path]
	return ok
}

func (w *Watcher) upload(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("event_id", w.cfg.EventID); err != nil {
		return nil, err
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.APIBase+"/uploads", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Uploads []string `json:"uploads"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Uploads, nil
}
