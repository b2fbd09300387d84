// Package resolver transforma chaves e páginas externas em endereços de áudio tocáveis.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"soundboard-gateway/middleware/ratelimit/infra"
)

const DefaultBaseURL = "https://www.myinstants.com/media/sounds/"

const DefaultMaxPage int64 = 2 << 20

var (
	// ErrNotFound indica que a página foi lida mas não contém um som reconhecível.
	ErrNotFound    = errors.New("resolver: no media key found in page")
	ErrInvalidPage = errors.New("resolver: invalid page url")
)

// Locator compõe o endereço absoluto de um som a partir da chave.
type Locator struct {
	BaseURL string
}

func (l Locator) Resolve(key string) string {
	base := l.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + url.PathEscape(key)
}

var mediaKeyPattern = regexp.MustCompile(`/media/sounds/([^"'\s?#<>/]+\.mp3)`)

// ExtractKey devolve a primeira chave de áudio encontrada na página.
func ExtractKey(page []byte) (string, bool) {
	m := mediaKeyPattern.FindSubmatch(page)
	if m == nil {
		return "", false
	}
	key, err := url.PathUnescape(string(m[1]))
	if err != nil {
		key = string(m[1])
	}
	return key, key != ""
}

// PageResolver busca uma página externa e extrai dela a chave do som.
// As buscas passam por um token-bucket por host.
type PageResolver struct {
	client   *http.Client
	throttle *infra.Store
	maxPage  int64
}

type Option func(*PageResolver)

func WithThrottle(s *infra.Store) Option {
	return func(r *PageResolver) { r.throttle = s }
}

func WithMaxPage(n int64) Option {
	return func(r *PageResolver) {
		if n > 0 {
			r.maxPage = n
		}
	}
}

func NewPageResolver(client *http.Client, opts ...Option) *PageResolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	r := &PageResolver{client: client, maxPage: DefaultMaxPage}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PageResolver) Resolve(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPage, pageURL)
	}

	if r.throttle != nil {
		if err := r.throttle.Wait(ctx, u.Hostname()); err != nil {
			return "", fmt.Errorf("throttle %s: %w", u.Hostname(), err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "soundboard-gateway")
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch page: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxPage))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	key, ok := ExtractKey(body)
	if !ok {
		return "", ErrNotFound
	}
	return key, nil
}
