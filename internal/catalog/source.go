package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/asteroid-belt/spellbook/internal/config"
	"github.com/asteroid-belt/spellbook/pkg/version"
)

// DefaultPath is the catalog resource path relative to the deployment base.
const DefaultPath = "data/spells.json"

// DefaultMaxSize caps the size of a remote catalog document.
const DefaultMaxSize = 32 << 20

//go:embed data/spells.json
var bundled []byte

// Source fetches the raw catalog document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// NewSource builds the Source selected by cfg.
func NewSource(cfg config.CatalogConfig) (Source, error) {
	switch cfg.Source {
	case config.CatalogEmbedded, "":
		return EmbeddedSource(), nil
	case config.CatalogFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("catalog file source needs a path")
		}
		return FileSource{Path: cfg.Path}, nil
	case config.CatalogHTTP:
		src := NewHTTPSource(cfg.BaseURL)
		if cfg.Timeout > 0 {
			src.Client.Timeout = cfg.Timeout
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}

// HTTPSource fetches the catalog over HTTP. Path is resolved against BaseURL,
// so a deployment served under a sub-path keeps working.
type HTTPSource struct {
	BaseURL string
	Path    string
	Client  *http.Client
	// MaxSize limits the response body; 0 means DefaultMaxSize.
	MaxSize int64
}

// NewHTTPSource creates an HTTPSource with a default client timeout.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: baseURL,
		Path:    DefaultPath,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// URL returns the absolute catalog URL.
func (s *HTTPSource) URL() (string, error) {
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	p := s.Path
	if p == "" {
		p = DefaultPath
	}
	ref, err := url.Parse(strings.TrimPrefix(p, "/"))
	if err != nil {
		return "", fmt.Errorf("parse catalog path: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	u, err := s.URL()
	if err != nil {
		return nil, &LoadError{Location: s.BaseURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &LoadError{Location: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &LoadError{Location: u, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &LoadError{Location: u, StatusCode: resp.StatusCode}
	}

	limit := s.MaxSize
	if limit <= 0 {
		limit = DefaultMaxSize
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &LoadError{Location: u, Err: err}
	}
	if int64(len(body)) > limit {
		return nil, &LoadError{Location: u, Err: fmt.Errorf("catalog exceeds %d bytes", limit)}
	}
	return body, nil
}

func (s *HTTPSource) String() string {
	if u, err := s.URL(); err == nil {
		return u
	}
	return s.BaseURL
}

// FileSource reads the catalog from a local JSON file.
type FileSource struct {
	Path string
}

// Fetch implements Source.
func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Location: s.Path, Err: err}
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &LoadError{Location: s.Path, Err: err}
	}
	return data, nil
}

func (s FileSource) String() string { return s.Path }

// BytesSource serves an in-memory document.
type BytesSource []byte

// Fetch implements Source.
func (b BytesSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Location: "memory", Err: err}
	}
	return b, nil
}

func (b BytesSource) String() string { return "memory" }

// EmbeddedSource returns the dataset compiled into the binary.
func EmbeddedSource() Source {
	return embeddedSource{}
}

type embeddedSource struct{}

func (embeddedSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Location: "embedded", Err: err}
	}
	return bundled, nil
}

func (embeddedSource) String() string { return "embedded" }
