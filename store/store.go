// Package store is the relational long-term memory of healthbot. It keeps
// symptom interactions and conversation logs in PostgreSQL (or SQLite for
// local runs and tests) through GORM.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/healthbot/core"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDriver is returned by Open for unknown database types.
	ErrUnsupportedDriver = errors.New("unsupported database type")
	// ErrCorruptRecord is returned when a stored row cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt record")
)

// Config contains the database configuration.
type Config struct {
	Type     string `mapstructure:"type"` // "postgres", "sqlite" or "memory" (no persistence)
	DSN      string `mapstructure:"dsn"`  // Connection string
	MaxConns int    `mapstructure:"max_conns"`
	LogLevel string `mapstructure:"log_level"`
}

// Store wraps the GORM connection and implements core.LongTermStore.
type Store struct {
	db *gorm.DB
}

var _ core.LongTermStore = (*Store)(nil)

// Open connects to the configured database.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Type)
	}

	// Configure logger
	logLevel := logger.Silent
	switch cfg.LogLevel {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	switch {
	case cfg.Type == "sqlite":
		// a second connection to an in-memory database would see an empty schema
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	}

	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Store{db: db}, nil
}

// New wraps an existing GORM connection.
func New(db *gorm.DB) *Store { return &Store{db: db} }

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&SymptomLog{}, &ConversationLog{})
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// LogSymptoms stores one symptom interaction.
func (s *Store) LogSymptoms(ctx context.Context, rec core.SymptomRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	log := SymptomLog{
		UserID:        rec.UserID,
		Query:         rec.Query,
		Symptoms:      strings.Join(rec.Symptoms, ", "),
		StressLevel:   rec.StressLevel,
		RiskScore:     rec.RiskScore,
		Timestamp:     ts.UTC(),
		FinalResponse: rec.FinalResponse,
	}

	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("failed to log symptoms: %w", err)
	}

	return nil
}

// SymptomFrequencies counts, per symptom, the interactions of the user since
// the given time whose symptom list mentions it.
func (s *Store) SymptomFrequencies(ctx context.Context, userID string, symptoms []string, since time.Time) (map[string]int, error) {
	freq := make(map[string]int, len(symptoms))

	for _, symptom := range symptoms {
		var count int64

		err := s.db.WithContext(ctx).Model(&SymptomLog{}).
			Where("user_id = ?", userID).
			Where(clause.Expr{SQL: "LOWER(?) LIKE ?", Vars: []any{clause.Column{Name: "symptoms"}, "%" + strings.ToLower(symptom) + "%"}}).
			Where(clause.Gte{Column: clause.Column{Name: "timestamp"}, Value: since.UTC()}).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count symptom %q: %w", symptom, err)
		}

		freq[symptom] = int(count)
	}

	return freq, nil
}

func (s *Store) recentSymptomLogs(ctx context.Context, userID string, limit int) ([]SymptomLog, error) {
	var logs []SymptomLog

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	reverse(logs)

	return logs, nil
}

// MessageHistory returns the most recent interactions, oldest first.
func (s *Store) MessageHistory(ctx context.Context, userID string, limit int) ([]core.HistoryEntry, error) {
	logs, err := s.recentSymptomLogs(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load message history: %w", err)
	}

	out := make([]core.HistoryEntry, 0, len(logs))
	for _, l := range logs {
		out = append(out, core.HistoryEntry{Symptoms: l.Symptoms, Response: l.FinalResponse, Timestamp: l.Timestamp})
	}

	return out, nil
}

// RecentQueries returns the most recent user queries, oldest first.
func (s *Store) RecentQueries(ctx context.Context, userID string, limit int) ([]string, error) {
	logs, err := s.recentSymptomLogs(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent queries: %w", err)
	}

	out := make([]string, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.Query)
	}

	return out, nil
}

// StoreConversation stores one chat turn.
func (s *Store) StoreConversation(ctx context.Context, rec core.ConversationRecord) error {
	results, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	log := ConversationLog{
		UserID:    rec.UserID,
		Message:   rec.Message,
		Intents:   strings.Join(rec.Intents, ", "),
		Results:   results,
		Timestamp: ts.UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("failed to store conversation: %w", err)
	}

	return nil
}

// MemoryPairs returns the most recent turns as user message and final
// answer, oldest first. Turns without a final summary fall back to the
// longest agent output.
func (s *Store) MemoryPairs(ctx context.Context, userID string, limit int) ([]core.MemoryPair, error) {
	var logs []ConversationLog

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}

	reverse(logs)

	pairs := make([]core.MemoryPair, 0, len(logs))
	for _, l := range logs {
		results := map[string]string{}
		if len(l.Results) > 0 {
			if err := json.Unmarshal(l.Results, &results); err != nil {
				return nil, fmt.Errorf("%w: conversation %d results: %v", ErrCorruptRecord, l.ID, err)
			}
		}

		pairs = append(pairs, core.MemoryPair{User: l.Message, Assistant: core.FinalAnswer(results)})
	}

	return pairs, nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
