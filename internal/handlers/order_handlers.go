package handlers

import (
	"net/http"

	"storefront/internal/common"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/labstack/echo/v4"
)

// OrderHandlers handles HTTP requests for orders
type OrderHandlers struct {
	orderService services.OrderServiceInterface
	queryService services.OrderQueryServiceInterface
}

// NewOrderHandlers creates a new order handlers instance
func NewOrderHandlers(orderService services.OrderServiceInterface, queryService services.OrderQueryServiceInterface) *OrderHandlers {
	return &OrderHandlers{
		orderService: orderService,
		queryService: queryService,
	}
}

// Register mounts the order routes on g.
func (h *OrderHandlers) Register(g *echo.Group) {
	g.POST("/orders", h.CreateOrder)
	g.GET("/orders", h.GetOrders)
	g.GET("/orders/:id", h.GetOrder)
	g.PUT("/orders/:id", h.UpdateOrder)
	g.DELETE("/orders/:id", h.DeleteOrder)
}

// CreateOrder handles POST /orders
func (h *OrderHandlers) CreateOrder(c echo.Context) error {
	var req models.OrderCreate
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	order, err := h.orderService.CreateOrder(c.Request().Context(), &req)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// GetOrders handles GET /orders
func (h *OrderHandlers) GetOrders(c echo.Context) error {
	orders, err := h.queryService.ListOrders(c.Request().Context())
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandlers) GetOrder(c echo.Context) error {
	id, err := common.ParseID(c.Param("id"), "order id")
	if err != nil {
		return common.SendAppError(c, err)
	}

	order, err := h.queryService.GetOrder(c.Request().Context(), id)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateOrder handles PUT /orders/:id
func (h *OrderHandlers) UpdateOrder(c echo.Context) error {
	id, err := common.ParseID(c.Param("id"), "order id")
	if err != nil {
		return common.SendAppError(c, err)
	}

	var update models.OrderUpdate
	if err := c.Bind(&update); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	order, err := h.orderService.UpdateOrder(c.Request().Context(), id, &update)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// DeleteOrder handles DELETE /orders/:id
func (h *OrderHandlers) DeleteOrder(c echo.Context) error {
	id, err := common.ParseID(c.Param("id"), "order id")
	if err != nil {
		return common.SendAppError(c, err)
	}

	if err := h.orderService.DeleteOrder(c.Request().Context(), id); err != nil {
		return common.SendAppError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
