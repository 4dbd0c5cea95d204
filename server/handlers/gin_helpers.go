package handlers

import (
	"github.com/gin-gonic/gin"
)

// SendJSONResponse отправляет JSON ответ через Gin context
func SendJSONResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// ListResponse ответ со списком и количеством элементов
type ListResponse struct {
	Count int         `json:"count"`
	Items interface{} `json:"items"`
}

func newListResponse[T any](items []T) ListResponse {
	if items == nil {
		items = []T{}
	}
	return ListResponse{Count: len(items), Items: items}
}
