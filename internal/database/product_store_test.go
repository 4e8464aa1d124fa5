package database

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/farmchain/internal/models"
	"github.com/javajoker/farmchain/internal/registry"
)

// openTestDB connects to TEST_DATABASE_DSN and resets the registry tables.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := gorm.Open(postgres.New(postgres.Config{DriverName: DriverName, DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&models.ProductRecord{}, &models.RegistryState{}, &models.User{}))
	require.NoError(t, RunMigrations(db))
	t.Cleanup(func() { Close(db) })
	return db
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(assert.AnError))
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, gormLogLevel("silent"))
	assert.Equal(t, logger.Info, gormLogLevel("info"))
	assert.Equal(t, logger.Warn, gormLogLevel(""))
}

func TestProductStore_JournalAndLoad(t *testing.T) {
	db := openTestDB(t)
	store := NewProductStore(db, time.Second)
	ctx := context.Background()

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, registry.ProductID(1), empty.NextID)
	assert.Empty(t, empty.Products)

	reg := registry.New(registry.WithJournal(store))
	_, err = reg.Create("alice", []byte("Apples"), 250)
	require.NoError(t, err)
	_, err = reg.Create("bob", []byte{0x00, 0xfe}, math.MaxUint64)
	require.NoError(t, err)

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, reg.Snapshot(), snap)

	restored, err := registry.Restore(snap, registry.WithJournal(store))
	require.NoError(t, err)
	id, err := restored.Create("carol", []byte("Pears"), 99)
	require.NoError(t, err)
	assert.Equal(t, registry.ProductID(3), id)
}

func TestProductStore_DuplicateID(t *testing.T) {
	db := openTestDB(t)
	store := NewProductStore(db, time.Second)

	p := registry.Product{ID: 1, Name: []byte("Apples"), Price: 1, Owner: "alice"}
	require.NoError(t, store.Append(p, 2))
	assert.ErrorIs(t, store.Append(p, 2), ErrDuplicateProduct)
}

func TestGormUserStore(t *testing.T) {
	db := openTestDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	user := &models.User{Username: "farmer", PasswordHash: "x"}
	require.NoError(t, store.Create(ctx, user))
	assert.ErrorIs(t, store.Create(ctx, &models.User{Username: "farmer", PasswordHash: "y"}), ErrUserExists)

	found, err := store.FindByUsername(ctx, "FARMER")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	require.NoError(t, store.TouchLogin(ctx, user.ID, time.Now()))
	found, err = store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, found.LastLoginAt)
}
