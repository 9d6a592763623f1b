package product

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/i18n"
	"github.com/wichananm65/storefront-backend/internal/money"
	"github.com/wichananm65/storefront-backend/internal/validation"
)

// CurrencyConverter converts an amount in the default currency to another currency.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, to string) (decimal.Decimal, error)
}

type Handler struct {
	service       *Service
	currencies    CurrencyConverter
	defaultLocale string
	log           *zap.Logger
}

func NewHandler(service *Service, currencies CurrencyConverter, defaultLocale string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, currencies: currencies, defaultLocale: defaultLocale, log: log}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/products", h.getProducts)
	r.Get("/products/:slug", h.getProduct)
	r.Get("/products/:slug/related", h.getRelated)
	r.Get("/search/suggestions", h.suggestions)
}

func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/products", h.adminList)
	r.Get("/products/:id", h.adminGet)
	r.Post("/products", h.createProduct)
	r.Put("/products/:id", h.updateProduct)
	r.Delete("/products/:id", h.deleteProduct)
	r.Patch("/products/:id/stock", h.adjustStock)
}

// view is a localized product with an optional converted price.
type view struct {
	Product
	DisplayPrice *decimal.Decimal `json:"displayPrice,omitempty"`
	Currency     string           `json:"currency,omitempty"`
}

type pageView struct {
	Items    []view `json:"items"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

func (h *Handler) views(c *fiber.Ctx, items []Product) ([]view, error) {
	locale := i18n.Locale(c, h.defaultLocale)
	currency := strings.ToUpper(strings.TrimSpace(c.Query("currency")))
	out := make([]view, 0, len(items))
	for _, p := range items {
		v := view{Product: p.Localize(locale)}
		if currency != "" && h.currencies != nil {
			amount, err := h.currencies.Convert(c.UserContext(), p.Price, currency)
			if err != nil {
				return nil, err
			}
			v.DisplayPrice = &amount
			v.Currency = currency
		}
		out = append(out, v)
	}
	return out, nil
}

func parseQuery(c *fiber.Ctx) (Query, map[string]string) {
	errs := map[string]string{}
	q := Query{
		CategorySlug: c.Query("category"),
		CategoryID:   c.Query("categoryId"),
		Search:       c.Query("q"),
		Sort:         c.Query("sort"),
		Page:         c.QueryInt("page", 1),
		PageSize:     c.QueryInt("pageSize", DefaultPageSize),
	}
	if v := c.Query("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs["featured"] = "featured must be true or false"
		} else {
			q.Featured = &b
		}
	}
	for name, dst := range map[string]**decimal.Decimal{"minPrice": &q.MinPrice, "maxPrice": &q.MaxPrice} {
		if v := c.Query(name); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				errs[name] = name + " must be a number"
				continue
			}
			*dst = &d
		}
	}
	if len(errs) > 0 {
		return q, errs
	}
	return q, nil
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	q, errs := parseQuery(c)
	if errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	page, err := h.service.List(c.UserContext(), q)
	if err != nil {
		return h.fail(c, err)
	}
	items, err := h.views(c, page.Items)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(pageView{Items: items, Total: page.Total, Page: page.Page, PageSize: page.PageSize})
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	p, err := h.service.GetBySlug(c.UserContext(), c.Params("slug"), false)
	if err != nil {
		return h.fail(c, err)
	}
	out, err := h.views(c, []Product{p})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out[0])
}

func (h *Handler) getRelated(c *fiber.Ctx) error {
	p, err := h.service.GetBySlug(c.UserContext(), c.Params("slug"), false)
	if err != nil {
		return h.fail(c, err)
	}
	related, err := h.service.Related(c.UserContext(), p.ID, ParseLimit(c.Query("limit"), 4))
	if err != nil {
		return h.fail(c, err)
	}
	out, err := h.views(c, related)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) suggestions(c *fiber.Ctx) error {
	locale := i18n.Locale(c, h.defaultLocale)
	items, err := h.service.Suggest(c.UserContext(), utils.CopyString(c.Query("q")), locale, ParseLimit(c.Query("limit"), DefaultSuggestLimit))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"suggestions": items})
}

func (h *Handler) adminList(c *fiber.Ctx) error {
	q, errs := parseQuery(c)
	if errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	q.IncludeAll = true
	page, err := h.service.List(c.UserContext(), q)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(page)
}

func (h *Handler) adminGet(c *fiber.Ctx) error {
	p, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	payload := new(Input)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	created, err := h.service.Create(c.UserContext(), *payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	payload := new(Input)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	updated, err := h.service.Update(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "product deleted"})
}

type stockRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

func (h *Handler) adjustStock(c *fiber.Ctx) error {
	payload := new(stockRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	p, err := h.service.AdjustStock(c.UserContext(), c.Params("id"), payload.Delta)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrSKUTaken), errors.Is(err, ErrSlugTaken), errors.Is(err, ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrInvalidSlug), errors.Is(err, ErrCategoryNotFound):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, money.ErrUnknownCurrency):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	default:
		h.log.Error("product request failed", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
