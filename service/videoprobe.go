package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// embedHosts are share-link providers accepted without an accessibility
// probe; their links are rewritten to embeddable form at render time only.
var embedHosts = map[string]bool{
	"youtube.com":      true,
	"www.youtube.com":  true,
	"m.youtube.com":    true,
	"youtu.be":         true,
	"drive.google.com": true,
	"docs.google.com":  true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".ogg":  true,
	".ogv":  true,
	".mov":  true,
	".m4v":  true,
	".m3u8": true,
}

// VideoProber validates video URLs before they are added to a module. Direct
// file URLs are probed with HEAD within a fixed budget; on an ambiguous
// transport failure it falls back to a one-byte ranged GET inside the same
// budget.
type VideoProber struct {
	client *http.Client
	budget time.Duration
	logger *logrus.Logger
}

func NewVideoProber(budget time.Duration, logger *logrus.Logger) *VideoProber {
	return &VideoProber{
		client: &http.Client{},
		budget: budget,
		logger: logger,
	}
}

// Validate rejects empty, duplicate and malformed URLs before any network
// traffic, then probes direct-file URLs for accessibility.
func (p *VideoProber) Validate(ctx context.Context, raw string, existing []string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NewValidationError(errors.New("video URL is required"),
			FieldError{Field: "url_video", Error: "la URL no puede estar vacía"})
	}
	for _, e := range existing {
		if e == raw {
			return NewValidationError(errors.New("duplicate video URL"),
				FieldError{Field: "url_video", Error: "la URL ya fue agregada"})
		}
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewValidationError(errors.New("malformed video URL"),
			FieldError{Field: "url_video", Error: "la URL no es válida"})
	}

	if embedHosts[strings.ToLower(u.Host)] {
		return nil
	}
	if !looksLikeDirectVideo(u) {
		// nothing client-side can verify for arbitrary pages
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	ok, transportErr := p.head(ctx, raw)
	if transportErr != nil {
		// ambiguous failure, retry with a minimal ranged GET
		ok, transportErr = p.rangedGet(ctx, raw)
		if transportErr != nil {
			p.logger.WithError(transportErr).WithField("url", raw).Warn("video probe failed")
			return fmt.Errorf("%w: %v", ErrVideoNotAccessible, transportErr)
		}
	}
	if !ok {
		return ErrVideoNotAccessible
	}
	return nil
}

func (p *VideoProber) head(ctx context.Context, raw string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
	if err != nil {
		return false, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299, nil
}

func (p *VideoProber) rangedGet(ctx context.Context, raw string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299, nil
}

func looksLikeDirectVideo(u *url.URL) bool {
	if videoExtensions[strings.ToLower(path.Ext(u.Path))] {
		return true
	}
	lower := strings.ToLower(u.Path)
	return strings.Contains(lower, "/video/") || strings.Contains(lower, "/videos/")
}
