// Package history keeps the most recent analyses, deduplicated by video id.
package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Himanshu0815/Youtube-Agent/internal/util"
	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
	"github.com/Himanshu0815/Youtube-Agent/pkg/sanitize"
)

const (
	DefaultKey   = "youtube-agent:history"
	DefaultLimit = 10
)

// ErrCorruptState marks persisted history that could not be decoded. It is
// logged and the history is reset; callers never see it.
var ErrCorruptState = errors.New("corrupt history state")

// Store serializes all reads and writes of the history collection.
type Store struct {
	mu      sync.Mutex
	backend Backend
	key     string
	limit   int
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Store)

// WithKey sets the persistence key.
func WithKey(key string) Option {
	return func(s *Store) {
		if strings.TrimSpace(key) != "" {
			s.key = key
		}
	}
}

// WithLimit sets how many items are retained.
func WithLimit(limit int) Option {
	return func(s *Store) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now for synthetic ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore constructs a store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		key:     DefaultKey,
		limit:   DefaultLimit,
		logger:  zap.L(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Scoped returns a store over the same backend whose items are private to
// owner. The owner is hashed so arbitrary client ids map to fixed-length,
// filename-safe keys.
func (s *Store) Scoped(owner string) *Store {
	sum := sha256.Sum256([]byte(owner))
	return &Store{
		backend: s.backend,
		key:     s.key + ":" + hex.EncodeToString(sum[:16]),
		limit:   s.limit,
		logger:  s.logger,
		now:     s.now,
	}
}

// Key reports the persistence key.
func (s *Store) Key() string {
	return s.key
}

// storedItem mirrors domain.HistoryItem with the record left undecoded so it
// can be healed through the sanitizer.
type storedItem struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Timestamp int64            `json:"timestamp"`
	VideoType domain.VideoType `json:"videoType"`
	Thumbnail string           `json:"thumbnail,omitempty"`
	Data      json.RawMessage  `json:"data"`
}

// Save records rec as the newest item, replacing any item with the same id
// and dropping the oldest beyond the limit.
func (s *Store) Save(ctx context.Context, rec domain.AnalysisRecord, thumbnail string) (domain.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return domain.HistoryItem{}, err
	}
	now := s.now()
	id := strings.TrimSpace(rec.VideoID)
	if id == "" {
		// Two pastes within one millisecond must not replace each other.
		id = "local-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + util.NewID()[:8]
	}
	item := domain.HistoryItem{
		ID:        id,
		Title:     rec.Title,
		Timestamp: now.UnixMilli(),
		VideoType: rec.VideoType,
		Thumbnail: thumbnail,
		Data:      rec,
	}

	next := make([]domain.HistoryItem, 0, len(items)+1)
	next = append(next, item)
	for _, existing := range items {
		if existing.ID != id {
			next = append(next, existing)
		}
	}
	if len(next) > s.limit {
		next = next[:s.limit]
	}

	data, err := json.Marshal(next)
	if err != nil {
		return domain.HistoryItem{}, fmt.Errorf("encode history: %w", err)
	}
	if err := s.backend.Put(ctx, s.key, data); err != nil {
		return domain.HistoryItem{}, fmt.Errorf("persist history: %w", err)
	}
	return item, nil
}

// LoadAll returns items newest first. Unreadable state is discarded.
func (s *Store) LoadAll(ctx context.Context) ([]domain.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns the item with id.
func (s *Store) Get(ctx context.Context, id string) (domain.HistoryItem, bool, error) {
	items, err := s.LoadAll(ctx)
	if err != nil {
		return domain.HistoryItem{}, false, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, true, nil
		}
	}
	return domain.HistoryItem{}, false, nil
}

// Clear removes all history.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) ([]domain.HistoryItem, error) {
	data, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !ok || len(data) == 0 {
		return []domain.HistoryItem{}, nil
	}
	items, err := decode(data)
	if err != nil {
		s.logger.Warn("discarding unreadable history",
			zap.String("key", s.key),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		if delErr := s.backend.Delete(ctx, s.key); delErr != nil {
			s.logger.Error("reset history failed", zap.Error(delErr))
		}
		return []domain.HistoryItem{}, nil
	}
	return items, nil
}

func decode(data []byte) ([]domain.HistoryItem, error) {
	var stored []storedItem
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: not an array", ErrCorruptState)
	}
	items := make([]domain.HistoryItem, 0, len(stored))
	for _, st := range stored {
		var parsed any
		if len(st.Data) > 0 {
			if err := json.Unmarshal(st.Data, &parsed); err != nil {
				return nil, fmt.Errorf("%w: item %s: %v", ErrCorruptState, st.ID, err)
			}
		}
		rec := sanitize.Record(parsed)
		items = append(items, domain.HistoryItem{
			ID:        st.ID,
			Title:     st.Title,
			Timestamp: st.Timestamp,
			VideoType: st.VideoType,
			Thumbnail: st.Thumbnail,
			Data:      rec,
		})
	}
	return items, nil
}
