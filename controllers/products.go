package controllers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"bookstore-backend/imagehost"
	"bookstore-backend/middlewares"
	"bookstore-backend/models"
	"bookstore-backend/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func optionalFloat(ctx *gin.Context, key string) (*float64, bool) {
	raw := ctx.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "Invalid "+key+": "+raw)
		return nil, false
	}
	return &v, true
}

// ListProducts serves the storefront catalogue with keyword, category, price
// and rating filters, one page of ResultPerPage at a time.
func (h *Handler) ListProducts(ctx *gin.Context) {
	f := store.ProductFilter{
		Keyword:  strings.TrimSpace(ctx.Query("keyword")),
		Category: ctx.Query("category"),
	}
	var ok bool
	if f.PriceGTE, ok = optionalFloat(ctx, "price[gte]"); !ok {
		return
	}
	if f.PriceLTE, ok = optionalFloat(ctx, "price[lte]"); !ok {
		return
	}
	if f.RatingsGTE, ok = optionalFloat(ctx, "ratings[gte]"); !ok {
		return
	}
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		sendErrorResponse(ctx, http.StatusBadRequest, "Invalid page: "+ctx.Query("page"))
		return
	}

	rctx := ctx.Request.Context()
	total, err := h.Store.CountProducts(rctx, store.ProductFilter{})
	if err != nil {
		h.fail(ctx, err)
		return
	}
	filtered, err := h.Store.CountProducts(rctx, f)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	products, err := h.Store.ListProducts(rctx, f, page)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"success":               true,
		"products":              products,
		"productsCount":         total,
		"resultPerPage":         store.ResultPerPage,
		"filteredProductsCount": filtered,
	})
}

func (h *Handler) AdminListProducts(ctx *gin.Context) {
	products, err := h.Store.ListProducts(ctx.Request.Context(), store.ProductFilter{}, 0)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "products": products})
}

// loadProduct reads through the product cache.
func (h *Handler) loadProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	p, version, ok := h.Cache.Get(ctx, id)
	if ok {
		return p, nil
	}
	p, err := h.Store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	h.Cache.Set(ctx, p, version)
	return p, nil
}

func (h *Handler) GetProduct(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	product, err := h.loadProduct(ctx.Request.Context(), id)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "product": product})
}

// productForm holds the multipart fields of the admin product form. Fields
// left empty keep their current value on update.
type productForm struct {
	name, description, category string
	price                       *float64
	stock                       *int
}

func readProductForm(ctx *gin.Context) (productForm, error) {
	form := productForm{
		name:        strings.TrimSpace(ctx.PostForm("name")),
		description: strings.TrimSpace(ctx.PostForm("description")),
		category:    strings.TrimSpace(ctx.PostForm("category")),
	}
	if raw := ctx.PostForm("price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return form, errors.New("Invalid price: " + raw)
		}
		form.price = &v
	}
	if raw := ctx.PostForm("Stock"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return form, errors.New("Invalid Stock: " + raw)
		}
		form.stock = &v
	}
	if form.category != "" && !models.ValidCategory(form.category) {
		return form, errors.New("Invalid category: " + form.category)
	}
	return form, nil
}

func productImageFiles(ctx *gin.Context) []*multipart.FileHeader {
	form, err := ctx.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File["images"]
}

// uploadImages uploads every file or none: on failure the ones already
// uploaded are destroyed again.
func (h *Handler) uploadImages(ctx *gin.Context, files []*multipart.FileHeader) ([]models.Image, error) {
	images := make([]models.Image, 0, len(files))
	for _, fh := range files {
		img, err := h.uploadFile(ctx, imagehost.FolderProducts, fh)
		if err != nil {
			h.destroyImages(ctx.Request.Context(), images)
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (h *Handler) destroyImages(ctx context.Context, images []models.Image) error {
	var errs []error
	for _, img := range images {
		if err := h.Images.Destroy(ctx, img.PublicID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) CreateProduct(ctx *gin.Context) {
	form, err := readProductForm(ctx)
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}
	if form.name == "" || form.description == "" || form.category == "" || form.price == nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "Please enter product name, price, description and category")
		return
	}

	images, err := h.uploadImages(ctx, productImageFiles(ctx))
	if err != nil {
		h.fail(ctx, err)
		return
	}

	product := &models.Product{
		Name:        form.name,
		Price:       *form.price,
		Description: form.description,
		Category:    form.category,
		Stock:       1,
		Images:      images,
		Reviews:     []models.Review{},
		User:        middlewares.CurrentUser(ctx).ID,
	}
	if form.stock != nil {
		product.Stock = *form.stock
	}
	if err := h.Store.CreateProduct(ctx.Request.Context(), product); err != nil {
		h.destroyImages(ctx.Request.Context(), images)
		h.fail(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusCreated, gin.H{"success": true, "product": product})
}

// UpdateProduct writes only the fields the form supplied. New images are
// uploaded and saved before the old ones are destroyed, so a failed upload
// leaves the product with its current images.
func (h *Handler) UpdateProduct(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	form, err := readProductForm(ctx)
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}

	rctx := ctx.Request.Context()
	current, err := h.Store.GetProduct(rctx, id)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	update := store.ProductUpdate{Price: form.price, Stock: form.stock}
	if form.name != "" {
		update.Name = &form.name
	}
	if form.description != "" {
		update.Description = &form.description
	}
	if form.category != "" {
		update.Category = &form.category
	}
	var uploaded []models.Image
	if files := productImageFiles(ctx); len(files) > 0 {
		if uploaded, err = h.uploadImages(ctx, files); err != nil {
			h.fail(ctx, err)
			return
		}
		update.Images = &uploaded
	}

	product, err := h.Store.UpdateProduct(rctx, id, update)
	if err != nil {
		if derr := h.destroyImages(rctx, uploaded); derr != nil {
			h.Logger.Error("destroying unsaved images failed", "product", id.Hex(), "error", derr)
		}
		h.fail(ctx, err)
		return
	}
	h.Cache.Invalidate(rctx, id)
	if update.Images != nil {
		if err := h.destroyImages(rctx, current.Images); err != nil {
			h.Logger.Warn("destroying replaced images failed", "product", id.Hex(), "error", err)
		}
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "product": product})
}

func (h *Handler) DeleteProduct(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	rctx := ctx.Request.Context()
	product, err := h.Store.GetProduct(rctx, id)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	if err := h.destroyImages(rctx, product.Images); err != nil {
		h.fail(ctx, err)
		return
	}
	if err := h.Store.DeleteProduct(rctx, id); err != nil {
		h.fail(ctx, err)
		return
	}
	h.Cache.Invalidate(rctx, id)
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "message": "Product Delete Successfully"})
}
