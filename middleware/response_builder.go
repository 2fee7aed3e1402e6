package middleware

import (
	"net/http"

	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/gin-gonic/gin"
)

// ResponseBuilder writes successful StandardResponse envelopes. Failures go
// through c.Error and ErrorHandler instead.
type ResponseBuilder struct {
	requestID string
}

func NewResponseBuilder(c *gin.Context) *ResponseBuilder {
	return &ResponseBuilder{requestID: c.GetString(string(RequestIDKey))}
}

func (rb *ResponseBuilder) meta() *types.MetaInfo {
	if rb.requestID == "" {
		return nil
	}
	return &types.MetaInfo{RequestID: rb.requestID}
}

func (rb *ResponseBuilder) Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, types.StandardResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    rb.meta(),
	})
}

func (rb *ResponseBuilder) Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, types.StandardResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    rb.meta(),
	})
}

// SuccessWithPagination adds limit, offset and total to the meta block.
func (rb *ResponseBuilder) SuccessWithPagination(c *gin.Context, data interface{}, limit, offset, total int) {
	meta := rb.meta()
	if meta == nil {
		meta = &types.MetaInfo{}
	}
	meta.Limit = limit
	meta.Offset = offset
	meta.Total = total
	c.JSON(http.StatusOK, types.StandardResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}
