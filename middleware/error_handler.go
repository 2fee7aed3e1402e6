package middleware

import (
	"net/http"

	"github.com/NomadCrew/nomadnova-backend/errors"
	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error attached with c.Error as a
// StandardResponse. Handlers must not write a body after attaching one.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		log := logger.GetLogger()
		fields := []interface{}{
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(string(RequestIDKey)),
		}

		if appError, ok := errors.As(last.Err); ok {
			status := appError.GetHTTPStatus()
			fields = append(fields, "error_type", appError.Type, "code", appError.Code, "error", appError)
			if status >= http.StatusInternalServerError {
				log.Errorw("Request failed", fields...)
			} else {
				log.Debugw("Request rejected", fields...)
			}

			info := &types.ErrorInfo{
				Code:    appError.Code,
				Type:    string(appError.Type),
				TraceID: c.GetString(string(RequestIDKey)),
			}
			// Details are safe to expose for client errors only
			if appError.Detail != "" && (gin.IsDebugging() ||
				appError.Type == errors.ValidationError ||
				appError.Type == errors.NotFoundError) {
				info.Details = appError.Detail
			}
			c.JSON(status, types.StandardResponse{Success: false, Message: appError.Message, Error: info})
			return
		}

		if last.Type == gin.ErrorTypeBind {
			log.Debugw("Request binding error", append(fields, "error", last.Err)...)
			c.JSON(http.StatusBadRequest, types.StandardResponse{
				Success: false,
				Message: "Failed to bind request",
				Error: &types.ErrorInfo{
					Code:    errors.CodeInvalidRequest,
					Type:    string(errors.ValidationError),
					Details: last.Err.Error(),
				},
			})
			return
		}

		log.Errorw("Unexpected server error", append(fields, "error", last.Err)...)
		info := &types.ErrorInfo{Type: string(errors.ServerError), TraceID: c.GetString(string(RequestIDKey))}
		if gin.IsDebugging() {
			info.Details = last.Err.Error()
		}
		c.JSON(http.StatusInternalServerError, types.StandardResponse{
			Success: false,
			Message: "Internal Server Error",
			Error:   info,
		})
	}
}
