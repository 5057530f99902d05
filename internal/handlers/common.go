package handlers

import (
	"net/http"
	"strconv"

	"healthbridge-server/internal/middleware"
	"healthbridge-server/internal/stores"
	"healthbridge-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// workspace resolves the stores of the authenticated user. On failure the
// response has been written.
func workspace(c *gin.Context, reg *stores.Registry) (*stores.Workspace, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == "" {
		utils.Unauthorized(c, "User ID not found in token")
		return nil, false
	}
	ws, err := reg.For(userID)
	if err != nil {
		utils.Error(c, http.StatusServiceUnavailable, "Service is shutting down")
		return nil, false
	}
	return ws, true
}

// intParam parses a numeric path parameter.
func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		utils.BadRequest(c, "Invalid "+name+": must be a number")
		return 0, false
	}
	return v, true
}

// bindOptional binds a JSON body when one was sent.
func bindOptional(c *gin.Context, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return utils.BindAndValidate(c, obj)
}
