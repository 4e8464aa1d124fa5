// internal/models/common.go
package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns an id when the database default is not in play.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Uint64 stores a full-range uint64 as decimal text. database/sql refuses
// uint64 values with the high bit set, so they go through numeric(20,0).
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

func (u *Uint64) Scan(value interface{}) error {
	var text string
	switch v := value.(type) {
	case nil:
		*u = 0
		return nil
	case []byte:
		text = string(v)
	case string:
		text = v
	case int64:
		if v < 0 {
			return fmt.Errorf("cannot scan negative value %d into Uint64", v)
		}
		*u = Uint64(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Uint64", value)
	}

	parsed, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return fmt.Errorf("cannot scan %q into Uint64: %w", text, err)
	}
	*u = Uint64(parsed)
	return nil
}
