package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/payrecon/internal/interfaces/http/middleware"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	"github.com/orris-inc/payrecon/internal/shared/utils"
)

// requireActor reads the authenticated caller. It writes the 401 itself.
func requireActor(c *gin.Context) (uint, authorization.UserRole, bool) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return 0, "", false
	}
	role, ok := middleware.RoleFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return 0, "", false
	}
	return userID, role, true
}
