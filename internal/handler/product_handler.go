package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketplace-backend/internal/db"
	"github.com/shinyyama/marketplace-backend/internal/media"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/reqctx"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

// URLResolver turns a stored media reference into a client URL.
type URLResolver interface {
	URL(ref string) string
}

type ProductHandler struct {
	svc  service.ProductService
	urls URLResolver
	open func(*multipart.FileHeader) (multipart.File, error)
}

func NewProductHandler(svc service.ProductService, urls URLResolver) *ProductHandler {
	return &ProductHandler{svc: svc, urls: urls, open: openUpload}
}

func openUpload(fh *multipart.FileHeader) (multipart.File, error) {
	return fh.Open()
}

type ProductResponse struct {
	ID          uint64      `json:"id"`
	Name        string      `json:"name"`
	Username    *string     `json:"username"`
	Description *string     `json:"description"`
	Category    *string     `json:"category"`
	Price       json.Number `json:"price"`
	ImageURL    *string     `json:"imageUrl"`
	CreatedAt   string      `json:"createdAt"`
	UpdatedAt   string      `json:"updatedAt"`
}

func (h *ProductHandler) List(c echo.Context) error {
	products, err := h.svc.ListProducts(c.Request().Context(), service.ListFilter{
		Category: c.QueryParam("category"),
	})
	if err != nil {
		return h.fail(c, "list", err)
	}
	resp := make([]ProductResponse, 0, len(products))
	for i := range products {
		resp = append(resp, h.toProductResponse(&products[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid product id."))
	}
	ctx := reqctx.WithProductID(c.Request().Context(), id)
	c.SetRequest(c.Request().WithContext(ctx))
	p, err := h.svc.GetProduct(ctx, id)
	if err != nil {
		return h.fail(c, "get", err)
	}
	return c.JSON(http.StatusOK, h.toProductResponse(p))
}

// Create accepts multipart or urlencoded forms. The image part is optional.
func (h *ProductHandler) Create(c echo.Context) error {
	in := service.ListingInput{
		Name:        c.FormValue("name"),
		Username:    c.FormValue("username"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
		Price:       c.FormValue("price"),
	}
	if strings.TrimSpace(in.Username) == "" {
		if uid, ok := c.Get("uid").(string); ok {
			in.Username = uid
		}
	}

	var upload *service.Upload
	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		f, err := h.open(fh)
		if err != nil {
			// The request body could not be read back; nothing reached the store.
			log.Printf("[http] rid=%s op=create stage=upload_open_fail file=%q err=%v",
				reqctx.RID(c.Request().Context()), fh.Filename, err)
			return c.JSON(http.StatusInternalServerError, NewErrorResponse("Server error"))
		}
		defer f.Close()
		upload = &service.Upload{Filename: fh.Filename, Body: f}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Malformed form data."))
	}

	p, err := h.svc.CreateListing(c.Request().Context(), in, upload)
	if err != nil {
		return h.fail(c, "create", err)
	}
	return c.JSON(http.StatusCreated, h.toProductResponse(p))
}

func (h *ProductHandler) fail(c echo.Context, op string, err error) error {
	ctx := c.Request().Context()
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrInvalidPrice):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid price provided."))
	case errors.Is(err, service.ErrMissingName):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Name is required."))
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, NewErrorResponse(validationMessage(verr)))
	case errors.Is(err, media.ErrEmptyPayload):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Image file is empty."))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("Product not found."))
	case errors.Is(err, db.ErrPoolTimeout):
		log.Printf("[http] rid=%s op=%s product=%d stage=pool_timeout err=%v", reqctx.RID(ctx), op, reqctx.ProductID(ctx), err)
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("Server busy, try again."))
	}
	log.Printf("[http] rid=%s op=%s product=%d stage=error err=%v", reqctx.RID(ctx), op, reqctx.ProductID(ctx), err)
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("Server error"))
}

func validationMessage(e *service.ValidationError) string {
	field := e.Field
	if field != "" {
		field = strings.ToUpper(field[:1]) + field[1:]
	}
	switch e.Rule {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", field, e.Param)
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes.", field, e.Param)
	}
	return fmt.Sprintf("%s is invalid.", field)
}

func (h *ProductHandler) toProductResponse(p *model.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Username:    p.Username,
		Description: p.Description,
		Category:    p.Category,
		Price:       json.Number(p.Price.StringFixed(2)),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.ImageURL != nil && *p.ImageURL != "" {
		u := *p.ImageURL
		if h.urls != nil {
			u = h.urls.URL(u)
		}
		resp.ImageURL = &u
	}
	return resp
}
