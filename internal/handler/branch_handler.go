package handler

import (
	"net/http"

	"oryon/internal/middleware"
	"oryon/internal/model"
	"oryon/internal/service"
	"oryon/pkg/response"

	"github.com/gin-gonic/gin"
)

type BranchHandler struct {
	branchService service.BranchService
}

func NewBranchHandler(branchService service.BranchService) *BranchHandler {
	return &BranchHandler{branchService: branchService}
}

func (h *BranchHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleAdvisor, model.RoleTechnician)

	branches := router.Group("/api/branches")
	{
		branches.GET("", staff, h.List)
		branches.GET("/:id", staff, h.Get)
		branches.POST("", middleware.RequireRole(model.RoleAdmin), h.Create)
	}
}

// Create registers a new branch
// @Summary      Create branch
// @Tags         branches
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BranchRequest  true  "Branch Payload"
// @Success      201      {object}  response.Response{data=service.BranchResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/branches [post]
func (h *BranchHandler) Create(c *gin.Context) {
	var req service.BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	branch, err := h.branchService.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, branch))
}

// Get returns one branch
// @Summary      Get branch
// @Tags         branches
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Branch ID"
// @Success      200  {object}  response.Response{data=service.BranchResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/branches/{id} [get]
func (h *BranchHandler) Get(c *gin.Context) {
	branch, err := h.branchService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branch))
}

// List returns all branches
// @Summary      List branches
// @Tags         branches
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.BranchResponse}
// @Router       /api/branches [get]
func (h *BranchHandler) List(c *gin.Context) {
	branches, err := h.branchService.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branches))
}
