package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/dinein-api/internal/application/service"
	"github.com/sangkips/dinein-api/internal/presentation/http/dto/request"
	"github.com/sangkips/dinein-api/internal/presentation/http/dto/response"
	"github.com/sangkips/dinein-api/pkg/pagination"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Create handles placing an order from a table
func (h *OrderHandler) Create(c *gin.Context) {
	var req request.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	input := &service.CreateOrderInput{
		Table:     req.Table,
		SessionID: req.Session,
		Notes:     req.Notes,
		Items:     make([]service.OrderItemInput, len(req.Items)),
	}
	for i, item := range req.Items {
		input.Items[i] = service.OrderItemInput{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Notes:     item.Notes,
		}
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Order created successfully", order)
}

// Get handles retrieving an order by numeric ID or document ID
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order retrieved successfully", order)
}

// ListBySession handles listing the orders of a table session
func (h *OrderHandler) ListBySession(c *gin.Context) {
	sessionID, err := parseUUIDParam(c, "session")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req request.SessionOrdersRequest
	_ = c.ShouldBindQuery(&req)
	params := &pagination.PaginationParams{Page: req.Page, PerPage: req.PerPage}

	result, err := h.orderService.ListSessionOrders(c.Request.Context(), sessionID, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Page(c, "Orders retrieved successfully", result)
}

// Checkout handles creating a payment checkout for an order
func (h *OrderHandler) Checkout(c *gin.Context) {
	result, err := h.orderService.Checkout(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Checkout created successfully", result)
}
