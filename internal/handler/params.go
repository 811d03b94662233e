package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/youth-hoops-tracker/internal/service"
)

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, service.NewInvalidInputError([]service.FieldError{{Field: name, Message: "must be a valid integer > 0"}})
	}
	return id, nil
}

// queryInt reads an optional integer query parameter; absent means def.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, service.NewInvalidInputError([]service.FieldError{{Field: name, Message: "must be an integer"}})
	}
	return n, nil
}
