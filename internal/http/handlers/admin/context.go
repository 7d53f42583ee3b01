package admin

import (
	handlershared "github.com/voltdrop/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}

func currentIsSuper(c *gin.Context) bool {
	return c.GetBool("admin_is_super")
}

func parseIDParam(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintParam(c, "id")
}
