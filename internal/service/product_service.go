package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shinyyama/marketplace-backend/internal/media"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/reqctx"
	"github.com/shinyyama/marketplace-backend/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DECIMAL(10,2)
var maxPrice = decimal.RequireFromString("99999999.99")

// Plain digits only. Exponents would make rounding allocate huge integers.
var plainPrice = regexp.MustCompile(`^\d{1,12}(\.\d{1,12})?$`)

// ListingInput is a listing submission as received from the client.
// Price stays a string so that parsing is part of validation.
type ListingInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Username    string `json:"username" validate:"max=100"`
	Description string `json:"description" validate:"maxbytes=65535"`
	Category    string `json:"category" validate:"max=255"`
	Price       string `json:"price"`
}

// Upload is an attached file. A nil *Upload means no file was sent.
type Upload struct {
	Filename string
	Body     io.Reader
}

type ListFilter struct {
	Category string
}

type ProductService interface {
	CreateListing(ctx context.Context, in ListingInput, file *Upload) (*model.Product, error)
	GetProduct(ctx context.Context, id uint64) (*model.Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]model.Product, error)
}

type productService struct {
	repo     repository.ProductRepository
	store    media.Store
	validate *validator.Validate
}

func NewProductService(repo repository.ProductRepository, store media.Store) ProductService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// TEXT columns are limited in bytes, not characters.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	return &productService{repo: repo, store: store, validate: v}
}

// CreateListing validates in, writes the image if any, then inserts the
// row. The media write always happens before the insert.
func (s *productService) CreateListing(ctx context.Context, in ListingInput, file *Upload) (*model.Product, error) {
	rid := reqctx.RID(ctx)

	in = normalize(in)
	if in.Name == "" {
		return nil, ErrMissingName
	}
	price, err := ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	p := &model.Product{
		Name:        in.Name,
		Username:    optional(in.Username),
		Description: optional(in.Description),
		Category:    optional(in.Category),
		Price:       price,
	}

	if file != nil {
		ref, err := s.store.Put(ctx, file.Body, file.Filename)
		if err != nil {
			log.Printf("[catalog] rid=%s stage=media_fail file=%q err=%v", rid, file.Filename, err)
			return nil, fmt.Errorf("%w: %w", ErrMediaFailure, err)
		}
		p.ImageURL = &ref
		log.Printf("[catalog] rid=%s stage=media_ok ref=%s", rid, ref)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if p.ImageURL != nil {
			log.Printf("[catalog] rid=%s stage=insert_fail orphan=%s err=%v", rid, *p.ImageURL, err)
		} else {
			log.Printf("[catalog] rid=%s stage=insert_fail err=%v", rid, err)
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}
	log.Printf("[catalog] rid=%s stage=created product=%d", rid, p.ID)
	return p, nil
}

func (s *productService) validateInput(in ListingInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Field() == "name" && fe.Tag() == "required" {
			return ErrMissingName
		}
		return &ValidationError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}
	return err
}

func (s *productService) GetProduct(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *productService) ListProducts(ctx context.Context, filter ListFilter) ([]model.Product, error) {
	return s.repo.List(ctx, repository.ProductFilter{Category: strings.TrimSpace(filter.Category)})
}

// ParsePrice accepts a plain decimal string and rounds it to cents.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if !plainPrice.MatchString(raw) {
		return decimal.Zero, ErrInvalidPrice
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}
	d = d.Round(2)
	if d.GreaterThan(maxPrice) {
		return decimal.Zero, ErrInvalidPrice
	}
	return d, nil
}

func normalize(in ListingInput) ListingInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	return in
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
