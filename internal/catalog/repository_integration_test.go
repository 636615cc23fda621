//go:build integration

package catalog_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/joao-fontenele/storefront-api/internal/catalog"
	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/testutil"
)

type catalogRepositorySuite struct {
	suite.Suite

	db   *sql.DB
	repo *catalog.Repository
}

func TestCatalogRepositorySuite(t *testing.T) {
	suite.Run(t, new(catalogRepositorySuite))
}

func (s *catalogRepositorySuite) SetupSuite() {
	s.db = testutil.StartPostgres(s.T())
	s.repo = catalog.NewRepository(s.db)
}

func (s *catalogRepositorySuite) SetupTest() {
	testutil.Truncate(s.T(), s.db)
}

func (s *catalogRepositorySuite) createCategory(name string) domain.Category {
	c := domain.Category{Name: name}
	s.Require().NoError(s.repo.CreateCategory(context.Background(), &c))
	return c
}

func (s *catalogRepositorySuite) createProduct(name, price string, categoryID int64) domain.Product {
	p := domain.Product{Name: name, Price: decimal.RequireFromString(price), CategoryID: categoryID}
	s.Require().NoError(s.repo.CreateProduct(context.Background(), &p))
	return p
}

func (s *catalogRepositorySuite) TestSearchProducts() {
	t := s.T()
	ctx := context.Background()

	phones := s.createCategory("Phones")
	laptops := s.createCategory("Laptops")
	s.createProduct("Pixel 9", "799.00", phones.ID)
	s.createProduct("iPhone 16", "999.00", phones.ID)
	s.createProduct("100%_Cotton Sleeve", "15.00", phones.ID)
	s.createProduct("ThinkPad", "1299.99", laptops.ID)

	all, total, err := s.repo.SearchProducts(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, all, 4)

	page, total, err := s.repo.SearchProducts(ctx, domain.ProductFilter{CategoryID: &phones.ID, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "100%_Cotton Sleeve", page[0].Name)

	found, total, err := s.repo.SearchProducts(ctx, domain.ProductFilter{Search: "IPHONE"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, found, 1)
	assert.True(t, found[0].Price.Equal(decimal.NewFromInt(999)))

	literal, _, err := s.repo.SearchProducts(ctx, domain.ProductFilter{Search: "0%_"})
	require.NoError(t, err)
	require.Len(t, literal, 1, "wildcards in the search term are matched literally")
}

func (s *catalogRepositorySuite) TestProductWrites() {
	t := s.T()
	ctx := context.Background()
	cat := s.createCategory("Phones")

	bad := domain.Product{Name: "Ghost", Price: decimal.NewFromInt(1), CategoryID: 4242}
	err := s.repo.CreateProduct(ctx, &bad)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	p := s.createProduct("Pixel", "10.50", cat.ID)
	p.Title = "Pixel 9 Pro"
	p.ImageURL = "abc.png"
	require.NoError(t, s.repo.UpdateProduct(ctx, &p))

	got, err := s.repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pixel 9 Pro", got.Title)
	assert.Equal(t, "abc.png", got.ImageURL)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	missing := domain.Product{ID: 999, Name: "x", CategoryID: cat.ID}
	assert.ErrorIs(t, s.repo.UpdateProduct(ctx, &missing), domain.ErrNotFound)

	require.NoError(t, s.repo.DeleteProduct(ctx, p.ID))
	assert.ErrorIs(t, s.repo.DeleteProduct(ctx, p.ID), domain.ErrNotFound)
	_, err = s.repo.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (s *catalogRepositorySuite) TestCategoryWrites() {
	t := s.T()
	ctx := context.Background()

	cat := s.createCategory("Phones")
	cat.Name = "Mobiles"
	require.NoError(t, s.repo.UpdateCategory(ctx, &cat))

	got, err := s.repo.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mobiles", got.Name)

	assert.ErrorIs(t, s.repo.UpdateCategory(ctx, &domain.Category{ID: 77, Name: "x"}), domain.ErrNotFound)

	p := s.createProduct("Pixel", "1", cat.ID)
	assert.ErrorIs(t, s.repo.DeleteCategory(ctx, cat.ID), domain.ErrConflict)

	require.NoError(t, s.repo.DeleteProduct(ctx, p.ID))
	require.NoError(t, s.repo.DeleteCategory(ctx, cat.ID))

	list, err := s.repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
