package httpapi

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
)

// Handlers переводит HTTP-запросы в вызовы сервисов.
type Handlers struct {
	stores   StoreService
	products ProductService
	orders   OrderService
	logger   *log.Entry
}

// Register монтирует маршруты.
func (h *Handlers) Register(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("API Running")
	})

	stores := api.Group("/stores")
	stores.Get("/all", h.listStores)
	stores.Post("/", h.createStore)
	stores.Put("/:storeId", h.updateStore)
	stores.Delete("/:storeId", h.deleteStore)

	stores.Get("/:storeId/products", h.listProducts)
	stores.Post("/:storeId/products", h.createProduct)
	stores.Put("/:storeId/products/:productId", h.updateProduct)
	stores.Delete("/:storeId/products/:productId", h.deleteProduct)

	orders := api.Group("/orders")
	orders.Post("/", h.createOrder)
	orders.Get("/:orderId", h.getOrder)
}

func (h *Handlers) listStores(c *fiber.Ctx) error {
	stores, err := h.stores.List(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(toStoreResponses(stores))
}

func (h *Handlers) createStore(c *fiber.Ctx) error {
	var req storeRequest
	if err := decodeBody(c, &req); err != nil {
		return h.writeError(c, err)
	}

	store, err := h.stores.Create(c.UserContext(), catalog.StoreInput{
		Name:     deref(req.Name),
		Location: deref(req.Location),
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toStoreResponse(store))
}

func (h *Handlers) updateStore(c *fiber.Ctx) error {
	var req storeRequest
	if err := decodeBody(c, &req); err != nil {
		return h.writeError(c, err)
	}

	store, err := h.stores.Update(c.UserContext(), c.Params("storeId"), catalog.StorePatch{
		Name:     req.Name,
		Location: req.Location,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(toStoreResponse(store))
}

func (h *Handlers) deleteStore(c *fiber.Ctx) error {
	result, err := h.stores.Delete(c.UserContext(), c.Params("storeId"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(messageResponse{
		Msg: fmt.Sprintf("Store '%s' and %d associated products deleted successfully", result.Store.Name, result.ProductsDeleted),
	})
}

func (h *Handlers) listProducts(c *fiber.Ctx) error {
	products, err := h.products.ListByStore(c.UserContext(), c.Params("storeId"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(toProductResponses(products))
}

func (h *Handlers) createProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := decodeBody(c, &req); err != nil {
		return h.writeError(c, err)
	}

	product, err := h.products.Create(c.UserContext(), c.Params("storeId"), catalog.ProductInput{
		Name:  deref(req.Name),
		Price: req.Price,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toProductResponse(product))
}

func (h *Handlers) updateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := decodeBody(c, &req); err != nil {
		return h.writeError(c, err)
	}

	product, err := h.products.Update(c.UserContext(), c.Params("storeId"), c.Params("productId"), catalog.ProductPatch{
		Name:  req.Name,
		Price: req.Price,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(toProductResponse(product))
}

func (h *Handlers) deleteProduct(c *fiber.Ctx) error {
	product, err := h.products.Delete(c.UserContext(), c.Params("storeId"), c.Params("productId"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(messageResponse{Msg: fmt.Sprintf("Product '%s' deleted successfully", product.Name)})
}

func (h *Handlers) createOrder(c *fiber.Ctx) error {
	var req orderRequest
	if err := decodeBody(c, &req); err != nil {
		return h.writeError(c, err)
	}

	order, err := h.orders.Create(c.UserContext(), req.submission())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order))
}

func (h *Handlers) getOrder(c *fiber.Ctx) error {
	order, err := h.orders.Get(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
