package handler

import (
	"net/http"
	"strconv"

	"oryon/internal/middleware"
	"oryon/internal/model"
	"oryon/internal/service"
	"oryon/pkg/apperr"
	"oryon/pkg/pagination"
	"oryon/pkg/response"

	"github.com/gin-gonic/gin"
)

type RepairHandler struct {
	repairService service.RepairService
}

func NewRepairHandler(repairService service.RepairService) *RepairHandler {
	return &RepairHandler{repairService: repairService}
}

func (h *RepairHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleAdvisor, model.RoleTechnician)
	billing := middleware.RequireRole(model.RoleAdmin, model.RoleAdvisor)

	repairs := router.Group("/api/repairs")
	{
		repairs.GET("", staff, h.ListOrders)
		repairs.POST("", staff, h.CreateOrder)
		repairs.GET("/:id", staff, h.GetOrder)
		repairs.POST("/:id/status", staff, h.ChangeStatus)
		repairs.POST("/:id/invoice", billing, h.CreateInvoice)
		repairs.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteOrder)
	}
}

func repairID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		fail(c, apperr.Validation("invalid repair order id: %q", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

// CreateOrder registers a new repair order
// @Summary      Create repair order
// @Description  Creates a repair order in status "received" with its initial status log entry
// @Tags         repairs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRepairRequest  true  "Create Repair Payload"
// @Success      201      {object}  response.Response{data=service.RepairResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/repairs [post]
func (h *RepairHandler) CreateOrder(c *gin.Context) {
	var req service.CreateRepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, warning, err := h.repairService.CreateOrder(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusCreated, order, warning)
}

// GetOrder returns a repair order with its full status log
// @Summary      Get repair order
// @Tags         repairs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Repair Order ID"
// @Success      200  {object}  response.Response{data=service.RepairResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/repairs/{id} [get]
func (h *RepairHandler) GetOrder(c *gin.Context) {
	id, ok := repairID(c)
	if !ok {
		return
	}
	order, err := h.repairService.GetOrder(c.Request.Context(), middleware.ScopeFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ListOrders returns repair orders for the caller's branches
// @Summary      List repair orders
// @Tags         repairs
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        status  query     string  false  "Filter by status"
// @Param        search  query     string  false  "Search customer/device/problem/imei"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/repairs [get]
func (h *RepairHandler) ListOrders(c *gin.Context) {
	params := pagination.Parse(c)
	orders, total, err := h.repairService.ListOrders(c.Request.Context(), middleware.ScopeFrom(c),
		c.Query("status"), c.Query("search"), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"repairs": orders,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// ChangeStatus appends a status log entry and moves the order to the new status
// @Summary      Change repair status
// @Description  Appends an immutable status log entry; any status may follow any other
// @Tags         repairs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                           true  "Repair Order ID"
// @Param        payload  body      service.ChangeStatusRequest  true  "Status Change Payload"
// @Success      200      {object}  response.Response{data=service.RepairResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/repairs/{id}/status [post]
func (h *RepairHandler) ChangeStatus(c *gin.Context) {
	id, ok := repairID(c)
	if !ok {
		return
	}
	var req service.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, warning, err := h.repairService.ChangeStatus(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusOK, order, warning)
}

// CreateInvoice bills a completed repair order
// @Summary      Invoice repair order
// @Description  Creates the sale/invoice for a completed, not-yet-invoiced repair order and triggers ticket printing
// @Tags         repairs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                                  true  "Repair Order ID"
// @Param        payload  body      service.CreateRepairInvoiceRequest  true  "Invoice Payload"
// @Success      201      {object}  response.Response{data=service.RepairInvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/repairs/{id}/invoice [post]
func (h *RepairHandler) CreateInvoice(c *gin.Context) {
	id, ok := repairID(c)
	if !ok {
		return
	}
	var req service.CreateRepairInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, warning, err := h.repairService.CreateInvoice(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusCreated, invoice, warning)
}

// DeleteOrder hard-removes a repair order (admin only)
// @Summary      Delete repair order
// @Tags         repairs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Repair Order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/repairs/{id} [delete]
func (h *RepairHandler) DeleteOrder(c *gin.Context) {
	id, ok := repairID(c)
	if !ok {
		return
	}
	if err := h.repairService.DeleteOrder(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Repair order deleted"))
}
