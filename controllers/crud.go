// controllers/crud.go
package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"medibill-backend/config"
	"medibill-backend/models"
	"medibill-backend/services"
	"medibill-backend/utils"
)

// CrudController exposes generic list/create/update/delete over the closed
// entity registry. Every mutation runs in its own unit of work and is rolled
// back in full on any failure.
type CrudController struct {
	Registry *services.Registry
}

func NewCrudController(registry *services.Registry) *CrudController {
	return &CrudController{Registry: registry}
}

func (ctl *CrudController) ListRecords(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	entity, err := ctl.Registry.Lookup(c.Param("table"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !entity.CanRead(user.RoleName()) {
		utils.RespondWithError(c, http.StatusForbidden, "Permission denied.")
		return
	}

	rows, err := entity.List(config.DB)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (ctl *CrudController) CreateRecord(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	entity, err := ctl.Registry.Lookup(c.Param("table"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if entity.Create == nil || !entity.CanWrite(user.RoleName()) {
		utils.RespondWithError(c, http.StatusForbidden, "This action is not allowed.")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid data provided.")
		return
	}

	tx := config.DB.Begin()
	record, err := entity.Create(tx, body, user)
	if err != nil {
		tx.Rollback()
		respondServiceError(c, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		respondServiceError(c, services.Storagef(err, "commit create"))
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (ctl *CrudController) UpdateRecord(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	entity, err := ctl.Registry.Lookup(c.Param("table"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if entity.Update == nil || !entity.CanWrite(user.RoleName()) {
		utils.RespondWithError(c, http.StatusForbidden, "This action is not allowed.")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid data provided.")
		return
	}

	tx := config.DB.Begin()
	record, err := entity.Update(tx, c.Param("id"), body, user)
	if err != nil {
		tx.Rollback()
		respondServiceError(c, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		respondServiceError(c, services.Storagef(err, "commit update"))
		return
	}
	c.JSON(http.StatusOK, record)
}

func (ctl *CrudController) DeleteRecord(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	entity, err := ctl.Registry.Lookup(c.Param("table"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if entity.Delete == nil || !entity.CanDelete(user.RoleName()) {
		utils.RespondWithError(c, http.StatusForbidden, "This action is not allowed for this table.")
		return
	}

	tx := config.DB.Begin()
	if err := entity.Delete(tx, c.Param("id"), user); err != nil {
		tx.Rollback()
		respondServiceError(c, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		respondServiceError(c, services.Storagef(err, "commit delete"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully."})
}

// GetRoles lists the assignable roles, for the user-management screen.
func (ctl *CrudController) GetRoles(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	if user.RoleName() != models.RoleSuperAdmin {
		utils.RespondWithError(c, http.StatusForbidden, "Permission denied.")
		return
	}

	var roles []struct {
		RoleID   uint   `json:"role_id"`
		RoleName string `json:"role_name"`
	}
	if err := config.DB.Table("roles").Find(&roles).Error; err != nil {
		respondServiceError(c, services.Storagef(err, "fetch roles"))
		return
	}
	c.JSON(http.StatusOK, roles)
}
