package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}

type DataBody struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type DeleteBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Result  interface{} `json:"result,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, DataBody{Success: true, Data: data})
}

func Deleted(c *gin.Context, result interface{}) {
	c.JSON(http.StatusOK, DeleteBody{Success: true, Message: "Deleted successfully", Result: result})
}

func JSON(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

func Error(c *gin.Context, status int, title string) {
	c.JSON(status, ErrorBody{Error: title})
}

func ErrorWithDetails(c *gin.Context, status int, title, details string) {
	c.JSON(status, ErrorBody{Error: title, Details: details})
}

func ErrorWithMessage(c *gin.Context, status int, title, message string) {
	c.JSON(status, ErrorBody{Error: title, Message: message})
}
