package handler

import (
	"errors"
	"log"
	"net/http"

	"accessctl/internal/middleware"
	"accessctl/internal/model"
	"accessctl/internal/service"
	"accessctl/pkg/pagination"
	"accessctl/pkg/response"

	"github.com/gin-gonic/gin"
)

type AccessControlHandler struct {
	acService service.AccessControlService
}

func NewAccessControlHandler(acService service.AccessControlService) *AccessControlHandler {
	return &AccessControlHandler{acService: acService}
}

func (h *AccessControlHandler) RegisterRoutes(router *gin.RouterGroup) {
	controls := router.Group("/api/admin/complex-access-control")
	controls.Use(middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin))
	{
		controls.GET("", h.ListAccessControls)
		controls.POST("", h.CreateAccessControl)
		controls.PUT("", h.UpdateAccessControl)
		controls.DELETE("", h.DeleteAccessControls)
	}
}

// ListAccessControls returns a page of complex access controls
// @Summary      List complex access controls
// @Description  Paginated list of complex access controls, fully hydrated with their rule tree. Search matches resource id or rule group names.
// @Tags         access-control
// @Produce      json
// @Security     BearerAuth
// @Param        page          query  int     false  "Page number"
// @Param        limit         query  int     false  "Page size"
// @Param        resourceType  query  string  false  "Filter by resource type"
// @Param        search        query  string  false  "Free-text search"
// @Success      200  {object}  response.Response{data=response.Paginated}
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/admin/complex-access-control [get]
func (h *AccessControlHandler) ListAccessControls(c *gin.Context) {
	params := pagination.Parse(c)

	controls, meta, err := h.acService.List(c.Request.Context(), service.ListAccessControlsQuery{
		Page:         params.Page,
		Limit:        params.Limit,
		ResourceType: c.Query("resourceType"),
		Search:       c.Query("search"),
	})
	if err != nil {
		log.Println("failed to list access controls:", err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paginated{Items: controls, Meta: meta}))
}

// CreateAccessControl creates an access control with its full rule tree
// @Summary      Create a complex access control
// @Description  Creates the access control and its rule groups, rules and conditions atomically. One control per (resource_type, resource_id).
// @Tags         access-control
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateAccessControlRequest  true  "Access control payload"
// @Success      201      {object}  response.Response{data=service.AccessControlResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/admin/complex-access-control [post]
func (h *AccessControlHandler) CreateAccessControl(c *gin.Context) {
	var req service.CreateAccessControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	control, err := h.acService.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccessControlExists):
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
		case errors.Is(err, service.ErrInternal):
			log.Println("failed to create access control:", err)
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
		default:
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		}
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, control))
}

// UpdateAccessControl applies a partial update to an access control
// @Summary      Update a complex access control
// @Description  Updates the scalar fields present in the payload. When rule_groups is present the whole subtree is replaced; when absent it is left untouched.
// @Tags         access-control
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdateAccessControlRequest  true  "Partial payload with id"
// @Success      200      {object}  response.Response{data=service.AccessControlResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/admin/complex-access-control [put]
func (h *AccessControlHandler) UpdateAccessControl(c *gin.Context) {
	var req service.UpdateAccessControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if req.ID == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "id is required"))
		return
	}

	control, err := h.acService.Update(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccessControlNotFound):
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		case errors.Is(err, service.ErrAccessControlExists):
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
		case errors.Is(err, service.ErrInternal):
			log.Println("failed to update access control:", err)
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
		default:
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, control))
}

type deleteAccessControlsRequest struct {
	IDs []string `json:"ids"`
}

// DeleteAccessControls removes complex access controls in bulk
// @Summary      Delete complex access controls
// @Description  Deletes the listed controls and their rule trees. Ids of non-complex controls are skipped and not counted.
// @Tags         access-control
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      deleteAccessControlsRequest  true  "Ids to delete"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/admin/complex-access-control [delete]
func (h *AccessControlHandler) DeleteAccessControls(c *gin.Context) {
	var req deleteAccessControlsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "ids must be a non-empty array"))
		return
	}

	deleted, err := h.acService.Delete(c.Request.Context(), c.GetString("userID"), req.IDs)
	if err != nil {
		if errors.Is(err, service.ErrInternal) {
			log.Println("failed to delete access controls:", err)
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted_count": deleted}))
}
