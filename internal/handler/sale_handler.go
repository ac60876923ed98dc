package handler

import (
	"net/http"

	"oryon/internal/middleware"
	"oryon/internal/model"
	"oryon/internal/service"
	"oryon/pkg/pagination"
	"oryon/pkg/response"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService service.SaleService
}

func NewSaleHandler(saleService service.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup) {
	billing := middleware.RequireRole(model.RoleAdmin, model.RoleAdvisor)

	sales := router.Group("/api/sales", billing)
	{
		sales.GET("", h.List)
		sales.GET("/:id", h.Get)
	}
}

// Get returns one invoice with its line items
// @Summary      Get invoice
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.SaleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) Get(c *gin.Context) {
	sale, err := h.saleService.Get(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// List returns invoices for the caller's branches
// @Summary      List invoices
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	sales, total, err := h.saleService.List(c.Request.Context(), middleware.ScopeFrom(c), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"sales": sales,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}
