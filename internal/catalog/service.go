package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

// Service exposes read-only catalog browsing.
type Service interface {
	ListProducts(ctx context.Context, filter ListFilter) (ProductPageDTO, error)
	GetProductBySlug(ctx context.Context, slug string) (ProductDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService builds a catalog service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repo is required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) (ProductPageDTO, error) {
	records, nextCursor, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return ProductPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	items := make([]ProductDTO, 0, len(records))
	for i := range records {
		items = append(items, newProductDTO(&records[i]))
	}
	return ProductPageDTO{Items: items, NextCursor: nextCursor}, nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (ProductDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}
	product, err := s.repo.FindProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return newProductDTO(product), nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	records, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	categories := make([]CategoryDTO, 0, len(records))
	for _, record := range records {
		categories = append(categories, CategoryDTO{ID: record.ID, Name: record.Name, Slug: record.Slug})
	}
	return categories, nil
}
