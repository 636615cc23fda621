package catalog

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-api/internal/auth"
	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/httpx"
	"github.com/joao-fontenele/storefront-api/internal/policy"
	"github.com/joao-fontenele/storefront-api/internal/storage"
	"github.com/joao-fontenele/storefront-api/internal/validation"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	store  Store
	files  storage.Store
	urls   *storage.URLs
	logger *slog.Logger
}

func NewHandler(store Store, files storage.Store, urls *storage.URLs, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		files:  files,
		urls:   urls,
		logger: logger,
	}
}

type productPage struct {
	PageNumber int              `json:"pageNumber"`
	PageSize   int              `json:"pageSize"`
	TotalItems int              `json:"totalItems"`
	TotalPages int              `json:"totalPages"`
	Items      []domain.Product `json:"items"`
}

// HandleListProducts returns a plain list unless both pageNumber and pageSize are given.
func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ProductFilter{Search: q.Get("search")}

	if raw := firstNonEmpty(q.Get("cateId"), q.Get("categoryId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid category id")
			return
		}
		filter.CategoryID = &id
	}

	rawPage, rawSize := q.Get("pageNumber"), q.Get("pageSize")
	paged := rawPage != "" && rawSize != ""

	var page, size int
	if paged {
		var err error
		page, err = strconv.Atoi(rawPage)
		if err != nil || page < 1 {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, "pageNumber must be a positive integer")
			return
		}
		size, err = strconv.Atoi(rawSize)
		if err != nil || size < 1 {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, "pageSize must be a positive integer")
			return
		}
		filter.Limit = size
		filter.Offset = (page - 1) * size
	}

	products, total, err := h.store.SearchProducts(r.Context(), filter)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to list products")
		return
	}

	for i := range products {
		products[i].ImageURL = h.urls.Product(products[i].ImageURL)
	}

	if !paged {
		httpx.WriteJSON(w, h.logger, http.StatusOK, products)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, productPage{
		PageNumber: page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: totalPages(total, size),
		Items:      products,
	})
}

func totalPages(total, size int) int {
	return int(math.Ceil(float64(total) / float64(size)))
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to get product", "product_id", id)
		return
	}

	product.ImageURL = h.urls.Product(product.ImageURL)
	httpx.WriteJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	if err := policy.Authorize(policy.CatalogWrite, caller, policy.Resource{}); err != nil {
		httpx.WriteFailure(w, h.logger, err, "product create rejected", "caller_id", caller.ID)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid multipart form")
		return
	}

	product := &domain.Product{}
	if err := applyProductForm(r, product, true); err != nil {
		httpx.WriteFailure(w, h.logger, err, "invalid product form")
		return
	}

	uploaded, err := h.saveImage(r, product)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to store product image")
		return
	}

	if err := h.store.CreateProduct(r.Context(), product); err != nil {
		h.discardImage(r, uploaded)
		httpx.WriteFailure(w, h.logger, err, "failed to create product")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "caller_id", caller.ID)
	product.ImageURL = h.urls.Product(product.ImageURL)
	httpx.WriteJSON(w, h.logger, http.StatusOK, product)
}

// HandlePatchProduct applies only the form fields that are present.
func (h *Handler) HandlePatchProduct(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	if err := policy.Authorize(policy.CatalogWrite, caller, policy.Resource{}); err != nil {
		httpx.WriteFailure(w, h.logger, err, "product update rejected", "caller_id", caller.ID)
		return
	}

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid multipart form")
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to load product", "product_id", id)
		return
	}

	if err := applyProductForm(r, product, false); err != nil {
		httpx.WriteFailure(w, h.logger, err, "invalid product form")
		return
	}

	uploaded, err := h.saveImage(r, product)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to store product image")
		return
	}

	if err := h.store.UpdateProduct(r.Context(), product); err != nil {
		h.discardImage(r, uploaded)
		httpx.WriteFailure(w, h.logger, err, "failed to update product", "product_id", id)
		return
	}

	h.logger.Info("product updated", "product_id", id, "caller_id", caller.ID)
	product.ImageURL = h.urls.Product(product.ImageURL)
	httpx.WriteJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	if err := policy.Authorize(policy.CatalogWrite, caller, policy.Resource{}); err != nil {
		httpx.WriteFailure(w, h.logger, err, "product delete rejected", "caller_id", caller.ID)
		return
	}

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to delete product", "product_id", id)
		return
	}

	h.logger.Info("product deleted", "product_id", id, "caller_id", caller.ID)
	w.WriteHeader(http.StatusNoContent)
}

// applyProductForm copies form fields onto p and validates the result. With required set,
// every field except the title, description and image must be present.
func applyProductForm(r *http.Request, p *domain.Product, required bool) error {
	form := r.PostForm
	has := func(key string) bool {
		_, ok := form[key]
		return ok
	}

	if has("name") || required {
		p.Name = strings.TrimSpace(form.Get("name"))
	}
	if has("title") {
		p.Title = form.Get("title")
	}
	if has("description") {
		p.Description = form.Get("description")
	}
	if has("price") || required {
		price, err := decimal.NewFromString(strings.TrimSpace(form.Get("price")))
		if err != nil {
			return domain.Invalidf("price must be a number")
		}
		p.Price = price.Round(2)
	}
	if has("categoryId") || required {
		id, err := strconv.ParseInt(form.Get("categoryId"), 10, 64)
		if err != nil {
			return domain.Invalidf("categoryId must be an integer")
		}
		p.CategoryID = id
	}

	return validation.Struct(p)
}

// saveImage stores an uploaded imageFile, if any, points p at it and returns the stored
// name. Storage failures are not retried.
func (h *Handler) saveImage(r *http.Request, p *domain.Product) (string, error) {
	file, header, err := r.FormFile("imageFile")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", domain.Invalidf("invalid imageFile")
	}
	defer func() { _ = file.Close() }()

	name, err := h.files.Save(r.Context(), storage.DirProducts, header.Filename, file)
	if err != nil {
		return "", err
	}

	p.ImageURL = name
	return name, nil
}

// discardImage removes an image whose product write failed.
func (h *Handler) discardImage(r *http.Request, name string) {
	if name == "" {
		return
	}
	if err := h.files.Delete(context.WithoutCancel(r.Context()), storage.DirProducts, name); err != nil {
		h.logger.Error("failed to remove orphaned product image", "error", err, "image", name)
	}
}

func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to list categories")
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, categories)
}

func (h *Handler) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	category, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to get category", "category_id", id)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, category)
}

type categoryRequest struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (req categoryRequest) validName() (string, error) {
	category := domain.Category{Name: strings.TrimSpace(req.Name)}
	if err := validation.Struct(category); err != nil {
		return "", err
	}
	return category.Name, nil
}

func (h *Handler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	if err := policy.Authorize(policy.CatalogWrite, caller, policy.Resource{}); err != nil {
		httpx.WriteFailure(w, h.logger, err, "category create rejected", "caller_id", caller.ID)
		return
	}

	var req categoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteFailure(w, h.logger, err, "invalid category body")
		return
	}

	name, err := req.validName()
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "invalid category body")
		return
	}

	category := &domain.Category{Name: name}
	if err := h.store.CreateCategory(r.Context(), category); err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to create category")
		return
	}

	h.logger.Info("category created", "category_id", category.ID, "caller_id", caller.ID)
	w.Header().Set("Location", "/api/category/"+strconv.FormatInt(category.ID, 10))
	httpx.WriteJSON(w, h.logger, http.StatusCreated, category)
}

func (h *Handler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	if err := policy.Authorize(policy.CatalogWrite, caller, policy.Resource{}); err != nil {
		httpx.WriteFailure(w, h.logger, err, "category update rejected", "caller_id", caller.ID)
		return
	}

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req categoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteFailure(w, h.logger, err, "invalid category body")
		return
	}

	if req.ID != id {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "id in body does not match path")
		return
	}

	name, err := req.validName()
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "invalid category body")
		return
	}

	if err := h.store.UpdateCategory(r.Context(), &domain.Category{ID: id, Name: name}); err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to update category", "category_id", id)
		return
	}

	h.logger.Info("category updated", "category_id", id, "caller_id", caller.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	if err := policy.Authorize(policy.CatalogWrite, caller, policy.Resource{}); err != nil {
		httpx.WriteFailure(w, h.logger, err, "category delete rejected", "caller_id", caller.ID)
		return
	}

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to delete category", "category_id", id)
		return
	}

	h.logger.Info("category deleted", "category_id", id, "caller_id", caller.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
