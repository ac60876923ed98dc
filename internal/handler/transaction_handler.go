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

type TransactionHandler struct {
	transactionService service.TransactionService
}

func NewTransactionHandler(transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

func (h *TransactionHandler) RegisterRoutes(router *gin.RouterGroup) {
	auditors := middleware.RequireRole(model.RoleAdmin, model.RoleAdvisor)

	router.GET("/api/transactions", auditors, h.Query)
}

// Query returns inventory transaction records, newest first
// @Summary      Query product transactions
// @Description  Read-only audit trail of inventory mutations, filterable by product, branch, action and actor
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Param        productId  query     string  false  "Filter by product id"
// @Param        branchId   query     string  false  "Filter by branch id"
// @Param        action     query     string  false  "Filter by action"
// @Param        actor      query     string  false  "Filter by actor name"
// @Param        search     query     string  false  "Search product name/description"
// @Success      200        {object}  response.Response{data=object}
// @Failure      403        {object}  response.Response
// @Router       /api/transactions [get]
func (h *TransactionHandler) Query(c *gin.Context) {
	params := pagination.Parse(c)
	q := service.TransactionQuery{
		ProductID: c.Query("productId"),
		BranchID:  c.Query("branchId"),
		Action:    c.Query("action"),
		ActorName: c.Query("actor"),
		Search:    c.Query("search"),
		Page:      params.Page,
		Limit:     params.Limit,
	}

	records, total, err := h.transactionService.Query(c.Request.Context(), middleware.ScopeFrom(c), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"transactions": records,
		"total":        total,
		"page":         params.Page,
		"limit":        params.Limit,
	}))
}
