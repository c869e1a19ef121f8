// Package sheets is the Google Sheets adapter: read feeds for the
// roster grid, the reception book and the per-brand schedule sheets,
// plus the booking write-back. The spreadsheets are the system of
// record; everything read here is re-fetched on every poll cycle.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"castboard/internal/config"
)

// ErrQuotaExceeded marks a 429 from the Sheets API. The poller treats it
// as a transient upstream failure and keeps the last good snapshot.
var ErrQuotaExceeded = errors.New("sheets api quota exceeded")

// SheetsService wraps the Sheets API client with a request rate limiter,
// an optional redis read-through cache for value ranges and an in-memory
// row cache for write-back targets.
type SheetsService struct {
	svc    *gsheets.Service
	cfg    *config.Config
	logger *zerolog.Logger

	limiter *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration

	mu       sync.RWMutex
	rowCache map[string]int
	titles   map[string][]*gsheets.SheetProperties
}

// NewSheetsService authenticates with the service-account credentials
// file from config and builds the API client.
func NewSheetsService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(cfg.Sheets.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := gsheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	rps, burst := cfg.SheetsRate()
	return &SheetsService{
		svc:      svc,
		cfg:      cfg,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		rowCache: make(map[string]int),
		titles:   make(map[string][]*gsheets.SheetProperties),
	}, nil
}

// UseRedisCache configures optional caching of fetched value ranges.
func (s *SheetsService) UseRedisCache(client *redis.Client, ttl time.Duration) {
	s.redis = client
	s.cacheTTL = ttl
}

// getRange fetches a value range and flattens every cell to a trimmed
// string. Ranges pass through the rate limiter and, when configured, the
// redis cache.
func (s *SheetsService) getRange(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	cacheKey := fmt.Sprintf("range:%s:%s", spreadsheetID, rng)

	var cached [][]string
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	rows, err := s.getRangeFresh(ctx, spreadsheetID, rng)
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, cacheKey, rows)
	return rows, nil
}

// getRangeFresh always hits the API. The write-back path uses it so a
// cached range can never point an insert at an occupied row.
func (s *SheetsService) getRangeFresh(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err)
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, cell := range raw {
			row[j] = strings.TrimSpace(fmt.Sprint(cell))
		}
		rows[i] = row
	}
	return rows, nil
}

// resolveSheet finds a sheet title: exact title match first, then the
// configured GID, then the first sheet. Sheet metadata is fetched once
// per spreadsheet and kept for the process lifetime; tab renames need a
// restart.
func (s *SheetsService) resolveSheet(ctx context.Context, spreadsheetID, title string, gid int64) (string, error) {
	props, err := s.sheetProperties(ctx, spreadsheetID)
	if err != nil {
		return "", err
	}
	for _, p := range props {
		if p.Title == title {
			return p.Title, nil
		}
	}
	for _, p := range props {
		if gid > 0 && p.SheetId == gid {
			return p.Title, nil
		}
	}
	if title == "" && len(props) > 0 {
		return props[0].Title, nil
	}
	return "", fmt.Errorf("sheet %q not found in %s", title, spreadsheetID)
}

func (s *SheetsService) sheetProperties(ctx context.Context, spreadsheetID string) ([]*gsheets.SheetProperties, error) {
	s.mu.RLock()
	props, ok := s.titles[spreadsheetID]
	s.mu.RUnlock()
	if ok {
		return props, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	meta, err := s.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err)
	}

	props = make([]*gsheets.SheetProperties, 0, len(meta.Sheets))
	for _, sh := range meta.Sheets {
		if sh.Properties != nil {
			props = append(props, sh.Properties)
		}
	}

	s.mu.Lock()
	s.titles[spreadsheetID] = props
	s.mu.Unlock()
	return props, nil
}

func wrapAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return err
}

func (s *SheetsService) readCache(ctx context.Context, key string, out any) bool {
	if s.redis == nil || s.cacheTTL <= 0 {
		return false
	}
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (s *SheetsService) writeCache(ctx context.Context, key string, val any) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = s.redis.Set(ctx, key, data, s.cacheTTL).Err()
}

// Row cache for write-back targets, keyed by booking identity.

func (s *SheetsService) setCachedRow(key string, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache[key] = row
}

func (s *SheetsService) getCachedRow(key string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rowCache[key]
	return row, ok
}

func (s *SheetsService) deleteCachedRow(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, key)
}

// ClearCache drops the in-memory row cache.
func (s *SheetsService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache = make(map[string]int)
}
