// Package journal keeps an append-only audit log of every emitted ledger
// event in a relational store.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"depinledger/core/events"
	"depinledger/core/types"
	"depinledger/observability/metrics"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultListLimit = 100
	maxListLimit     = 1000
)

// Entry is one journaled event.
type Entry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Seq        uint64    `gorm:"uniqueIndex;not null" json:"seq"`
	Type       string    `gorm:"index;not null" json:"type"`
	Subject    string    `gorm:"index" json:"subject,omitempty"`
	Attributes string    `gorm:"type:text" json:"attributes"`
	RecordedAt time.Time `gorm:"index" json:"recordedAt"`
}

// TableName pins the table name independent of gorm's pluralisation.
func (Entry) TableName() string { return "journal_entries" }

// Event decodes the stored attributes back into a types.Event.
func (e *Entry) Event() (*types.Event, error) {
	attrs := map[string]string{}
	if e.Attributes != "" {
		if err := json.Unmarshal([]byte(e.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("journal: decode entry %s: %w", e.ID, err)
		}
	}
	return &types.Event{Type: e.Type, Attributes: attrs}, nil
}

// Open connects to the configured database.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("journal: unsupported driver %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

var _ events.Emitter = (*Store)(nil)

// Store appends events to the journal table. It implements events.Emitter.
type Store struct {
	db      *gorm.DB
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *metrics.SettlementMetrics

	mu  sync.Mutex
	seq uint64
}

// New migrates the schema and resumes the sequence from the last entry.
func New(db *gorm.DB, clock clockwork.Clock, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: database required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	var last struct{ Seq uint64 }
	if err := db.Model(&Entry{}).Select("COALESCE(MAX(seq), 0) AS seq").Scan(&last).Error; err != nil {
		return nil, fmt.Errorf("journal: resume sequence: %w", err)
	}
	return &Store{db: db, clock: clock, logger: logger, seq: last.Seq}, nil
}

// SetMetrics publishes the last sequence number after every append.
func (s *Store) SetMetrics(m *metrics.SettlementMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
	m.SetJournalSequence(s.seq)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// subject picks the attribute that identifies who the event is about.
func subject(attrs map[string]string) string {
	for _, key := range []string{"lock", "license", "owner", "admin", "authority"} {
		if v := attrs[key]; v != "" {
			return v
		}
	}
	return ""
}

// Append writes evt and returns the stored entry.
func (s *Store) Append(ctx context.Context, evt *types.Event) (*Entry, error) {
	if evt == nil {
		return nil, fmt.Errorf("journal: nil event")
	}
	encoded, err := json.Marshal(evt.Attributes)
	if err != nil {
		return nil, fmt.Errorf("journal: encode attributes: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := &Entry{
		ID:         uuid.New(),
		Seq:        s.seq + 1,
		Type:       evt.Type,
		Subject:    subject(evt.Attributes),
		Attributes: string(encoded),
		RecordedAt: s.clock.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("journal: insert %s: %w", evt.Type, err)
	}
	s.seq = entry.Seq
	s.metrics.SetJournalSequence(entry.Seq)
	return entry, nil
}

// Emit implements events.Emitter. Failures are logged, never returned, so a
// journal outage cannot block the ledger.
func (s *Store) Emit(evt events.Event) {
	if s == nil || evt == nil {
		return
	}
	converted := evt.Event()
	if converted == nil {
		return
	}
	if _, err := s.Append(context.Background(), converted); err != nil {
		s.logger.Error("journal append failed", slog.String("type", converted.Type), slog.Any("error", err))
	}
}

// Filter narrows List.
type Filter struct {
	Type     string
	Subject  string
	AfterSeq uint64
	Limit    int
}

// List returns entries in sequence order.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query := s.db.WithContext(ctx).Model(&Entry{}).Where("seq > ?", f.AfterSeq)
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.Subject != "" {
		query = query.Where("subject = ?", f.Subject)
	}
	var out []Entry
	if err := query.Order("seq ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return out, nil
}
