// internal/services/product_service.go
package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/farmchain/internal/registry"
	"github.com/javajoker/farmchain/internal/utils"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrNameTooLarge    = errors.New("product name too large")
	ErrInvalidName     = errors.New("invalid product name")
	ErrMissingOwner    = errors.New("caller identity is required")
)

type ProductService struct {
	registry       *registry.Registry
	storageService *StorageService
	maxNameBytes   int
	snapshotFolder string
}

// CreateProductRequest carries the name either as text or as base64 for
// arbitrary bytes. The owner never comes from the request body.
type CreateProductRequest struct {
	Name       string  `json:"name"`
	NameBase64 string  `json:"name_base64,omitempty" validate:"omitempty,base64,excluded_with=Name"`
	Price      *uint64 `json:"price" validate:"required"`
}

func (r *CreateProductRequest) NameBytes() ([]byte, error) {
	if r.NameBase64 == "" {
		return []byte(r.Name), nil
	}
	name, err := base64.StdEncoding.DecodeString(r.NameBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return name, nil
}

// ProductView is the JSON shape of a registry product.
type ProductView struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	NameBase64 string `json:"name_base64"`
	NameIsText bool   `json:"name_is_text"`
	Price      uint64 `json:"price"`
	Owner      string `json:"owner"`
}

func NewProductView(p registry.Product) ProductView {
	return ProductView{
		ID:         uint64(p.ID),
		Name:       string(p.Name),
		NameBase64: base64.StdEncoding.EncodeToString(p.Name),
		NameIsText: utf8.Valid(p.Name),
		Price:      p.Price,
		Owner:      string(p.Owner),
	}
}

func NewProductViews(products []registry.Product) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, NewProductView(p))
	}
	return views
}

type ExportResult struct {
	Location     string    `json:"location"`
	Key          string    `json:"key"`
	ProductCount int       `json:"product_count"`
	NextID       uint64    `json:"next_id"`
	SHA256       string    `json:"sha256"`
	ExportedAt   time.Time `json:"exported_at"`
}

func NewProductService(reg *registry.Registry, storageService *StorageService, maxNameBytes int, snapshotFolder string) *ProductService {
	return &ProductService{
		registry:       reg,
		storageService: storageService,
		maxNameBytes:   maxNameBytes,
		snapshotFolder: snapshotFolder,
	}
}

func (s *ProductService) MaxNameBytes() int {
	return s.maxNameBytes
}

func (s *ProductService) CreateProduct(owner registry.Identity, req *CreateProductRequest) (registry.Product, error) {
	if owner == "" {
		return registry.Product{}, ErrMissingOwner
	}

	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return registry.Product{}, fmt.Errorf("validation failed: %w", err)
	}

	name, err := req.NameBytes()
	if err != nil {
		return registry.Product{}, err
	}
	if s.maxNameBytes > 0 && len(name) > s.maxNameBytes {
		return registry.Product{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrNameTooLarge, len(name), s.maxNameBytes)
	}

	id, err := s.registry.Create(owner, name, *req.Price)
	if err != nil {
		logrus.WithError(err).WithField("owner", owner).Error("Failed to create product")
		return registry.Product{}, fmt.Errorf("failed to create product: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"product_id": id,
		"owner":      owner,
		"price":      *req.Price,
		"name_bytes": len(name),
	}).Info("Product created")

	return registry.Product{
		ID:    id,
		Name:  name,
		Price: *req.Price,
		Owner: owner,
	}, nil
}

func (s *ProductService) GetProduct(id registry.ProductID) (registry.Product, error) {
	product, ok := s.registry.Get(id)
	if !ok {
		return registry.Product{}, ErrProductNotFound
	}
	return product, nil
}

func (s *ProductService) ListProducts() []registry.Product {
	return s.registry.List()
}

// Count reports how many products are registered without copying them.
func (s *ProductService) Count() int {
	return s.registry.Len()
}

// ExportSnapshot writes the current registry snapshot through the storage service.
func (s *ProductService) ExportSnapshot(ctx context.Context) (*ExportResult, error) {
	return ExportSnapshot(ctx, s.storageService, s.snapshotFolder, s.registry.Snapshot())
}

// ExportSnapshot marshals snapshot to JSON and stores it under folder.
func ExportSnapshot(ctx context.Context, storage *StorageService, folder string, snapshot registry.Snapshot) (*ExportResult, error) {
	if storage == nil {
		return nil, errors.New("storage is not configured")
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	now := time.Now().UTC()
	key := path.Join(folder, fmt.Sprintf("registry-%s-%d.json", now.Format("20060102T150405Z"), snapshot.NextID))
	upload, err := storage.PutObject(ctx, key, "application/json", data)
	if err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	result := &ExportResult{
		Location:     upload.URL,
		Key:          upload.Key,
		ProductCount: len(snapshot.Products),
		NextID:       uint64(snapshot.NextID),
		SHA256:       utils.HashBytes(data),
		ExportedAt:   now,
	}

	logrus.WithFields(logrus.Fields{
		"key":      result.Key,
		"products": result.ProductCount,
		"sha256":   result.SHA256,
	}).Info("Registry snapshot exported")

	return result, nil
}
