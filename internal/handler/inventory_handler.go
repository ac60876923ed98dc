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

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleAdvisor, model.RoleTechnician)
	stock := middleware.RequireRole(model.RoleAdmin, model.RoleAdvisor)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	products := router.Group("/api/products")
	{
		products.GET("", staff, h.ListProducts)
		products.POST("", stock, h.CreateProduct)
		products.GET("/:id", staff, h.GetProduct)
		products.PUT("/:id", stock, h.UpdateProduct)
		products.DELETE("/:id", adminOnly, h.DeleteProduct)

		products.GET("/:id/stock", staff, h.GetAvailableStock)
		products.POST("/:id/adjust", adminOnly, h.AdjustStock)
		products.POST("/:id/add-stock", stock, h.AddStock)
		products.POST("/:id/transfer", stock, h.Transfer)
		products.POST("/:id/transfer-units", stock, h.TransferUnits)

		products.GET("/:id/units", staff, h.ListUnits)
		products.POST("/:id/units", stock, h.AddUnit)
		products.POST("/:id/units/bulk", stock, h.BulkAddUnits)
		products.DELETE("/:id/units/:unitId", stock, h.DeleteUnit)

		products.GET("/:id/variants", staff, h.ListVariants)
		products.POST("/:id/variants", stock, h.AddVariant)
		products.PUT("/:id/variants/:variantId", stock, h.SetVariantStock)
		products.DELETE("/:id/variants/:variantId", stock, h.DeleteVariant)
	}
}

// CreateProduct registers a new product at a branch
// @Summary      Create product
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/products [post]
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	product, warning, err := h.inventoryService.CreateProduct(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusCreated, product, warning)
}

// UpdateProduct edits product identity and pricing fields
// @Summary      Update product
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Update Product Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *InventoryHandler) UpdateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	product, warning, err := h.inventoryService.UpdateProduct(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusOK, product, warning)
}

// DeleteProduct soft-deletes a product
// @Summary      Delete product
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *InventoryHandler) DeleteProduct(c *gin.Context) {
	warning, err := h.inventoryService.DeleteProduct(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusOK, "Product deleted", warning)
}

// GetProduct returns one product with its computed available stock
// @Summary      Get product
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *InventoryHandler) GetProduct(c *gin.Context) {
	product, err := h.inventoryService.GetProduct(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// ListProducts returns products across the caller's branches
// @Summary      List products
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Param        category  query     string  false  "Filter by category"
// @Param        search    query     string  false  "Search name/sku"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/products [get]
func (h *InventoryHandler) ListProducts(c *gin.Context) {
	params := pagination.Parse(c)
	products, total, err := h.inventoryService.ListProducts(c.Request.Context(), middleware.ScopeFrom(c),
		c.Query("category"), c.Query("search"), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetAvailableStock returns the sellable quantity for a product
// @Summary      Get available stock
// @Description  Simple products report their quantity, per-unit products count available units, per-variant products sum variant stock
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/products/{id}/stock [get]
func (h *InventoryHandler) GetAvailableStock(c *gin.Context) {
	available, err := h.inventoryService.GetAvailableStock(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{"available": available}))
}

// AdjustStock applies a signed delta to a simple-tracked product
// @Summary      Adjust stock
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Product ID"
// @Param        payload  body      service.AdjustStockRequest  true  "Adjustment Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/products/{id}/adjust [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	product, warning, err := h.inventoryService.AdjustStock(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusOK, product, warning)
}

// AddStock increases quantity of a simple-tracked product
// @Summary      Add stock
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Product ID"
// @Param        payload  body      service.AddStockRequest  true  "Addition Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Router       /api/products/{id}/add-stock [post]
func (h *InventoryHandler) AddStock(c *gin.Context) {
	var req service.AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	product, warning, err := h.inventoryService.AddStock(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusOK, product, warning)
}

// Transfer moves stock of a simple or per-variant product to another branch
// @Summary      Transfer stock between branches
// @Description  Decrements at the source and increments the mirror product at the target branch, creating it if needed
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Product ID"
// @Param        payload  body      service.TransferRequest  true  "Transfer Payload"
// @Success      200      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/products/{id}/transfer [post]
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	warning, err := h.inventoryService.TransferBetweenBranches(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusOK, "Transfer completed", warning)
}

// TransferUnits moves specific tracked units to another branch
// @Summary      Transfer units between branches
// @Description  All-or-nothing: if any unit id is unknown or not available the whole transfer is rejected
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.TransferUnitsRequest  true  "Unit Transfer Payload"
// @Success      200      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/products/{id}/transfer-units [post]
func (h *InventoryHandler) TransferUnits(c *gin.Context) {
	var req service.TransferUnitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	warning, err := h.inventoryService.TransferUnits(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusOK, "Units transferred", warning)
}

// ListUnits returns the tracked units of a per-unit product
// @Summary      List product units
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id      path      string  true   "Product ID"
// @Param        status  query     string  false  "Filter by unit status"
// @Success      200     {object}  response.Response{data=[]service.UnitResponse}
// @Router       /api/products/{id}/units [get]
func (h *InventoryHandler) ListUnits(c *gin.Context) {
	units, err := h.inventoryService.ListUnits(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"), c.Query("status"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, units))
}

// AddUnit registers a single tracked unit
// @Summary      Add product unit
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Product ID"
// @Param        payload  body      service.AddUnitRequest  true  "Unit Payload"
// @Success      201      {object}  response.Response{data=service.UnitResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/products/{id}/units [post]
func (h *InventoryHandler) AddUnit(c *gin.Context) {
	var req service.AddUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	unit, warning, err := h.inventoryService.AddUnit(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusCreated, unit, warning)
}

// BulkAddUnits registers many units from pasted text
// @Summary      Bulk add product units
// @Description  One unit per line, IMEI first then serial; blank lines and duplicates are skipped
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Product ID"
// @Param        payload  body      service.BulkAddUnitsRequest  true  "Bulk Units Payload"
// @Success      201      {object}  response.Response{data=object}
// @Router       /api/products/{id}/units/bulk [post]
func (h *InventoryHandler) BulkAddUnits(c *gin.Context) {
	var req service.BulkAddUnitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	added, warning, err := h.inventoryService.BulkAddUnits(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusCreated, map[string]interface{}{"added": added}, warning)
}

// DeleteUnit removes a tracked unit that is still available
// @Summary      Delete product unit
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id      path      string  true  "Product ID"
// @Param        unitId  path      string  true  "Unit ID"
// @Success      200     {object}  response.Response
// @Failure      409     {object}  response.Response
// @Router       /api/products/{id}/units/{unitId} [delete]
func (h *InventoryHandler) DeleteUnit(c *gin.Context) {
	warning, err := h.inventoryService.DeleteUnit(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"), c.Param("unitId"))
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusOK, "Unit deleted", warning)
}

// ListVariants returns the variants of a per-variant product
// @Summary      List product variants
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=[]service.VariantResponse}
// @Router       /api/products/{id}/variants [get]
func (h *InventoryHandler) ListVariants(c *gin.Context) {
	variants, err := h.inventoryService.ListVariants(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, variants))
}

// AddVariant registers a new variant of a product
// @Summary      Add product variant
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Product ID"
// @Param        payload  body      service.AddVariantRequest  true  "Variant Payload"
// @Success      201      {object}  response.Response{data=service.VariantResponse}
// @Router       /api/products/{id}/variants [post]
func (h *InventoryHandler) AddVariant(c *gin.Context) {
	var req service.AddVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	variant, warning, err := h.inventoryService.AddVariant(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusCreated, variant, warning)
}

// SetVariantStock sets the absolute stock count of a variant
// @Summary      Set variant stock
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id         path      string                          true  "Product ID"
// @Param        variantId  path      string                          true  "Variant ID"
// @Param        payload    body      service.SetVariantStockRequest  true  "Stock Payload"
// @Success      200        {object}  response.Response{data=service.VariantResponse}
// @Router       /api/products/{id}/variants/{variantId} [put]
func (h *InventoryHandler) SetVariantStock(c *gin.Context) {
	var req service.SetVariantStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	variant, warning, err := h.inventoryService.SetVariantStock(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"), c.Param("variantId"), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusOK, variant, warning)
}

// DeleteVariant removes a variant
// @Summary      Delete product variant
// @Description  Deleting a variant that still has stock is allowed with a warning unless strict mode is enabled
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id         path      string  true  "Product ID"
// @Param        variantId  path      string  true  "Variant ID"
// @Success      200        {object}  response.Response
// @Failure      409        {object}  response.Response
// @Router       /api/products/{id}/variants/{variantId} [delete]
func (h *InventoryHandler) DeleteVariant(c *gin.Context) {
	warning, err := h.inventoryService.DeleteVariant(c.Request.Context(), middleware.ScopeFrom(c), actorFrom(c), c.Param("id"), c.Param("variantId"))
	if err != nil {
		fail(c, err)
		return
	}
	okMaybeWarn(c, http.StatusOK, "Variant deleted", warning)
}
