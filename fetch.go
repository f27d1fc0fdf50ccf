package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/pretty"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatusError is a non-200 answer from the item API.
type StatusError struct {
	Endpoint string
	Category string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s for %s: status %d: %s", e.Endpoint, e.Category, e.Code, e.Body)
}

const (
	endpointItems      = "items"
	endpointAttributes = "items_attributes"
)

// maxErrorBody caps how much of a failed response ends up in an error.
const maxErrorBody = 512

// Fetcher downloads item and attribute records per category.
type Fetcher struct {
	BaseURL     string
	Token       string
	Client      *http.Client
	Logger      *zap.Logger
	Concurrency int
}

// NewFetcher builds a fetcher from the UEX config section.
func NewFetcher(cfg UEXConfig, logger *zap.Logger) (*Fetcher, error) {
	timeout, err := cfg.timeout()
	if err != nil {
		return nil, fmt.Errorf("uex timeout: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		Token:       cfg.Token,
		Client:      &http.Client{Timeout: timeout},
		Logger:      logger,
		Concurrency: cfg.Concurrency,
	}, nil
}

// CategoryPayload is the raw, validated body of both endpoints for a category.
type CategoryPayload struct {
	Category   Category
	Items      []byte
	Attributes []byte
}

func (f *Fetcher) get(ctx context.Context, endpoint string, cat Category) ([]byte, error) {
	u, err := url.Parse(f.BaseURL + "/" + endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("id_category", strconv.Itoa(cat.ID))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s for %s: %w", endpoint, cat.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s for %s: %w", endpoint, cat.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		text := string(body)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, &StatusError{Endpoint: endpoint, Category: cat.Name, Code: resp.StatusCode, Body: text}
	}
	if _, err := envelopeData(body); err != nil {
		return nil, fmt.Errorf("%s for %s: %w", endpoint, cat.Name, err)
	}
	return body, nil
}

// FetchCategory downloads the item list and the attribute list of a category.
func (f *Fetcher) FetchCategory(ctx context.Context, cat Category) (*CategoryPayload, error) {
	start := time.Now()
	items, err := f.get(ctx, endpointItems, cat)
	if err != nil {
		return nil, err
	}
	attrs, err := f.get(ctx, endpointAttributes, cat)
	if err != nil {
		return nil, err
	}
	f.Logger.Debug("fetched category",
		zap.String("category", cat.Name),
		zap.Int("id", cat.ID),
		zap.Int("items_bytes", len(items)),
		zap.Int("attributes_bytes", len(attrs)),
		zap.Duration("elapsed", time.Since(start)))
	return &CategoryPayload{Category: cat, Items: items, Attributes: attrs}, nil
}

func rawItemsPath(dataDir, category string) string {
	return filepath.Join(dataDir, category+".json")
}

func rawAttributesPath(dataDir, category string) string {
	return filepath.Join(dataDir, category+"_attributes.json")
}

// Width 1 expands every array and object onto its own lines.
var prettyOptions = &pretty.Options{Width: 1, Prefix: "", Indent: "  "}

func writePretty(path string, body []byte) error {
	if err := os.WriteFile(path, pretty.PrettyOptions(body, prettyOptions), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Save writes <name>.json and <name>_attributes.json into dataDir.
func (p *CategoryPayload) Save(dataDir string) error {
	if err := writePretty(rawItemsPath(dataDir, p.Category.Name), p.Items); err != nil {
		return err
	}
	return writePretty(rawAttributesPath(dataDir, p.Category.Name), p.Attributes)
}

// FetchAll fetches every category and saves the payloads. One failing
// category does not stop the others; all failures come back joined.
func (f *Fetcher) FetchAll(ctx context.Context, categories []Category, dataDir string) ([]Category, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var (
		mu     sync.Mutex
		saved  = make([]bool, len(categories))
		failed []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(f.Concurrency, 1))
	for i, cat := range categories {
		g.Go(func() error {
			f.Logger.Info("fetching category", zap.String("category", cat.Name), zap.Int("id", cat.ID))
			p, err := f.FetchCategory(gctx, cat)
			if err == nil {
				err = p.Save(dataDir)
			}
			if err != nil {
				f.Logger.Warn("category failed", zap.String("category", cat.Name), zap.Error(err))
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
				return nil
			}
			f.Logger.Info("saved category", zap.String("category", cat.Name), zap.String("dir", dataDir))
			saved[i] = true
			return nil
		})
	}
	// Workers never return errors, so Wait only joins them.
	_ = g.Wait()

	var ok []Category
	for i, cat := range categories {
		if saved[i] {
			ok = append(ok, cat)
		}
	}
	return ok, errors.Join(failed...)
}
