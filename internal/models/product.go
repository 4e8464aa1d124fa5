// internal/models/product.go
package models

import (
	"time"

	"github.com/javajoker/farmchain/internal/registry"
)

// ProductRecord is the durable row behind one registry product.
type ProductRecord struct {
	ID        Uint64    `gorm:"type:numeric(20,0);primaryKey;autoIncrement:false"`
	Name      []byte    `gorm:"type:bytea;not null"`
	Price     Uint64    `gorm:"type:numeric(20,0);not null"`
	Owner     string    `gorm:"size:255;not null;index"`
	CreatedAt time.Time
}

func (ProductRecord) TableName() string {
	return "products"
}

func NewProductRecord(p registry.Product) *ProductRecord {
	name := p.Name
	if name == nil {
		name = []byte{}
	}
	return &ProductRecord{
		ID:    Uint64(p.ID),
		Name:  name,
		Price: Uint64(p.Price),
		Owner: string(p.Owner),
	}
}

func (r ProductRecord) ToProduct() registry.Product {
	name := r.Name
	if name == nil {
		name = []byte{}
	}
	return registry.Product{
		ID:    registry.ProductID(r.ID),
		Name:  name,
		Price: uint64(r.Price),
		Owner: registry.Identity(r.Owner),
	}
}

// RegistryStateID is the primary key of the single counter row.
const RegistryStateID = 1

// RegistryState holds the registry's next id.
type RegistryState struct {
	ID        int16  `gorm:"primaryKey;autoIncrement:false"`
	NextID    Uint64 `gorm:"type:numeric(20,0);not null"`
	UpdatedAt time.Time
}
