package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError はエラー応答の本体
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope はエラー応答の外枠
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError はエラーを JSON で返す
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondOK は 200 で payload を返す
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
