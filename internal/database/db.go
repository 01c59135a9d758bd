package database

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gastro-analytics/internal/reporting"
	"gastro-analytics/internal/variance"
)

type JSONB json.RawMessage

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("failed to scan JSONB: %v", value)
		}
	}

	*j = append((*j)[0:0], bytes...)
	return nil
}

func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "{}", nil
	}
	return []byte(j), nil
}

func NewConnection(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		log.Fatal("DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

// IngredientCategory maps an ingredient to its reporting category.
type IngredientCategory struct {
	IngredientID string     `gorm:"primaryKey;size:100"`
	Category     string     `gorm:"size:100;not null"`
	CreatedAt    *time.Time `gorm:"autoCreateTime"`
	UpdatedAt    *time.Time `gorm:"autoUpdateTime"`
}

// ThresholdDocument holds a location's variance threshold configuration as
// one jsonb document.
type ThresholdDocument struct {
	LocationID string     `gorm:"primaryKey;size:100"`
	Thresholds JSONB      `gorm:"type:jsonb;not null"`
	CreatedAt  *time.Time `gorm:"autoCreateTime"`
	UpdatedAt  *time.Time `gorm:"autoUpdateTime"`
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&IngredientCategory{},
		&ThresholdDocument{},
		&reporting.ScheduledReport{},
		&reporting.AlertRule{},
		&reporting.ReportExecution{},
		&reporting.AlertExecution{},
	)
}

// CategoryStore resolves ingredient categories from the database with a
// read-through cache. Misses resolve to "General" and are cached too, so
// unknown ingredients cost one query each.
type CategoryStore struct {
	db *gorm.DB

	mu    sync.RWMutex
	cache map[string]string
}

func NewCategoryStore(db *gorm.DB) *CategoryStore {
	return &CategoryStore{db: db, cache: make(map[string]string)}
}

func (s *CategoryStore) CategoryFor(ingredientID string) string {
	s.mu.RLock()
	category, ok := s.cache[ingredientID]
	s.mu.RUnlock()
	if ok {
		return category
	}

	var row IngredientCategory
	category = "General"
	if err := s.db.First(&row, "ingredient_id = ?", ingredientID).Error; err == nil {
		category = row.Category
	}

	s.mu.Lock()
	s.cache[ingredientID] = category
	s.mu.Unlock()
	return category
}

func (s *CategoryStore) SaveCategory(ctx context.Context, ingredientID, category string) error {
	row := IngredientCategory{IngredientID: ingredientID, Category: category}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[ingredientID] = category
	s.mu.Unlock()
	return nil
}

var _ variance.CategoryResolver = (*CategoryStore)(nil)

// ThresholdStore persists per-location variance thresholds.
type ThresholdStore struct {
	db *gorm.DB
}

func NewThresholdStore(db *gorm.DB) *ThresholdStore {
	return &ThresholdStore{db: db}
}

func (s *ThresholdStore) Save(ctx context.Context, locationID string, thresholds variance.VarianceThresholds) error {
	payload, err := json.Marshal(thresholds)
	if err != nil {
		return err
	}
	row := ThresholdDocument{LocationID: locationID, Thresholds: JSONB(payload)}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *ThresholdStore) Get(ctx context.Context, locationID string) (variance.VarianceThresholds, bool, error) {
	var row ThresholdDocument
	err := s.db.WithContext(ctx).First(&row, "location_id = ?", locationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return variance.VarianceThresholds{}, false, nil
		}
		return variance.VarianceThresholds{}, false, err
	}

	var thresholds variance.VarianceThresholds
	if err := json.Unmarshal(row.Thresholds, &thresholds); err != nil {
		return variance.VarianceThresholds{}, false, err
	}
	return thresholds, true, nil
}

// LoadAll warms a tracker with every persisted threshold document at boot.
func (s *ThresholdStore) LoadAll(ctx context.Context, tracker *variance.Tracker) error {
	var rows []ThresholdDocument
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		var thresholds variance.VarianceThresholds
		if err := json.Unmarshal(row.Thresholds, &thresholds); err != nil {
			return fmt.Errorf("invalid thresholds for location %s: %w", row.LocationID, err)
		}
		tracker.SetThresholds(row.LocationID, thresholds)
	}
	return nil
}
