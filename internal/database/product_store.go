// internal/database/product_store.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/farmchain/internal/models"
	"github.com/javajoker/farmchain/internal/registry"
)

var ErrDuplicateProduct = errors.New("product id already persisted")

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = pq.ErrorCode("23505")

// ProductStore persists registry products and the id counter. It is the
// registry's journal when running against PostgreSQL.
type ProductStore struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewProductStore(db *gorm.DB, timeout time.Duration) *ProductStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ProductStore{db: db, timeout: timeout}
}

// Append writes the product row and the advanced counter in one transaction.
func (s *ProductStore) Append(p registry.Product, nextID registry.ProductID) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(models.NewProductRecord(p)).Error; err != nil {
			return err
		}
		state := models.RegistryState{ID: models.RegistryStateID, NextID: models.Uint64(nextID)}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"next_id", "updated_at"}),
		}).Create(&state).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %d", ErrDuplicateProduct, p.ID)
		}
		return fmt.Errorf("failed to persist product %d: %w", p.ID, err)
	}
	return nil
}

// Load reads every persisted product and the counter into a snapshot.
func (s *ProductStore) Load(ctx context.Context) (registry.Snapshot, error) {
	var records []models.ProductRecord
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return registry.Snapshot{}, fmt.Errorf("failed to load products: %w", err)
	}

	snapshot := registry.Snapshot{
		Products: make([]registry.Product, 0, len(records)),
		NextID:   1,
	}
	for _, record := range records {
		snapshot.Products = append(snapshot.Products, record.ToProduct())
	}

	var state models.RegistryState
	err := s.db.WithContext(ctx).First(&state, models.RegistryStateID).Error
	switch {
	case err == nil:
		snapshot.NextID = registry.ProductID(state.NextID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fresh database
	default:
		return registry.Snapshot{}, fmt.Errorf("failed to load registry state: %w", err)
	}

	return snapshot, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
