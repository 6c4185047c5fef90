package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/httpx"
	"github.com/joao-fontenele/storefront-api/internal/uploads"
)

const maxMultipartMemory = 32 << 20

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the category and product routes under prefix.
func (h *Handler) Register(mux *http.ServeMux, prefix string, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET "+prefix+"/categories", wrap(h.HandleListCategories))
	mux.HandleFunc("GET "+prefix+"/categories/{id}", wrap(h.HandleGetCategory))
	mux.HandleFunc("POST "+prefix+"/categories", wrap(h.HandleCreateCategory))
	mux.HandleFunc("PUT "+prefix+"/categories/{id}", wrap(h.HandleUpdateCategory))
	mux.HandleFunc("DELETE "+prefix+"/categories/{id}", wrap(h.HandleDeleteCategory))

	mux.HandleFunc("GET "+prefix+"/products", wrap(h.HandleListProducts))
	mux.HandleFunc("GET "+prefix+"/products/{id}", wrap(h.HandleGetProduct))
	mux.HandleFunc("POST "+prefix+"/products", wrap(h.HandleCreateProduct))
	mux.HandleFunc("PUT "+prefix+"/products/{id}", wrap(h.HandleUpdateProduct))
	mux.HandleFunc("DELETE "+prefix+"/products/{id}", wrap(h.HandleDeleteProduct))
	mux.HandleFunc("GET "+prefix+"/products/get/count", wrap(h.HandleCountProducts))
	mux.HandleFunc("GET "+prefix+"/products/get/featured/{count}", wrap(h.HandleFeaturedProducts))
	mux.HandleFunc("PUT "+prefix+"/products/gallery-images/{id}", wrap(h.HandleGalleryImages))
}

func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"categoryList": categories})
}

func (h *Handler) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"category": category})
}

func (h *Handler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in CategoryInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, category)
}

func (h *Handler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in CategoryInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), r.PathValue("id"), in)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"category": category})
}

func (h *Handler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteMessage(w, h.logger, http.StatusOK, "the category is deleted")
}

func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	var categoryIDs []string
	if raw := r.URL.Query().Get("categories"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				categoryIDs = append(categoryIDs, id)
			}
		}
	}

	products, err := h.service.ListProducts(r.Context(), categoryIDs)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"productList": products})
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"product": product})
}

func (h *Handler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httpx.WriteError(w, h.logger, fmt.Errorf("invalid multipart form: %w", domain.ErrValidation))
		return
	}

	in, err := productFromForm(r.MultipartForm)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	var image *uploads.Upload
	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		u, err := uploads.FromFileHeader(files[0], time.Now())
		if err != nil {
			httpx.WriteError(w, h.logger, err)
			return
		}
		image = &u
	}

	product, err := h.service.CreateProduct(r.Context(), in, image, resolverFor(r))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), r.PathValue("id"), in)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"product": product})
}

func (h *Handler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteMessage(w, h.logger, http.StatusOK, "the product is deleted")
}

func (h *Handler) HandleCountProducts(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountProducts(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"productCount": count})
}

func (h *Handler) HandleFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(r.PathValue("count"))
	if err != nil {
		httpx.WriteError(w, h.logger, fmt.Errorf("count must be a number: %w", domain.ErrValidation))
		return
	}

	products, err := h.service.FeaturedProducts(r.Context(), count)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) HandleGalleryImages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httpx.WriteError(w, h.logger, fmt.Errorf("invalid multipart form: %w", domain.ErrValidation))
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) > uploads.MaxGalleryImages {
		httpx.WriteError(w, h.logger, fmt.Errorf("at most %d gallery images are allowed: %w",
			uploads.MaxGalleryImages, domain.ErrValidation))
		return
	}

	now := time.Now()
	images := make([]uploads.Upload, 0, len(files))
	for _, fh := range files {
		u, err := uploads.FromFileHeader(fh, now)
		if err != nil {
			httpx.WriteError(w, h.logger, err)
			return
		}
		images = append(images, u)
	}

	product, err := h.service.SetGallery(r.Context(), r.PathValue("id"), images, resolverFor(r))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"product": product})
}

func resolverFor(r *http.Request) Resolver {
	return func(location string) string {
		return uploads.PublicURL(r, location)
	}
}

func productFromForm(form *multipart.Form) (ProductInput, error) {
	get := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	in := ProductInput{
		Name:            get("name"),
		Description:     get("description"),
		RichDescription: get("richDescription"),
		Brand:           get("brand"),
		CategoryID:      get("category"),
	}

	var errs []error
	parseFloat := func(key string, dst *float64) {
		if v := get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s must be a number", key))
				return
			}
			*dst = f
		}
	}
	parseInt := func(key string, dst *int) {
		if v := get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s must be an integer", key))
				return
			}
			*dst = n
		}
	}
	parseFloat("price", &in.Price)
	parseFloat("rating", &in.Rating)
	parseInt("countInStock", &in.CountInStock)
	parseInt("numReviews", &in.NumReviews)
	if v := get("isFeatured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, errors.New("isFeatured must be a boolean"))
		}
		in.IsFeatured = b
	}

	if len(errs) > 0 {
		return ProductInput{}, fmt.Errorf("%w: %w", errors.Join(errs...), domain.ErrValidation)
	}
	return in, nil
}
