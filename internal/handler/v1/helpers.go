package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:        http.StatusBadRequest,
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindForbidden:         http.StatusForbidden,
	domain.KindConflict:          http.StatusConflict,
	domain.KindIllegalTransition: http.StatusConflict,
	domain.KindInsufficientStock: http.StatusConflict,
}

// respondServiceError maps a service failure to a status by its kind.
// Anything unclassified is logged and hidden behind a generic 500.
func respondServiceError(c *gin.Context, log *zap.Logger, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_FAILED",
			Fields: validErr.Fields,
		})
		return
	}

	if de, ok := domain.AsError(err); ok {
		status, known := kindStatus[de.Kind]
		if !known {
			status = http.StatusInternalServerError
		}
		resp := ErrorResponse{Error: de.Message, Code: de.Code}

		var shortage *prescription.ShortageError
		if errors.As(err, &shortage) {
			resp.Error = shortage.Error()
			resp.Details = shortage.Shortages
		}
		c.JSON(status, resp)
		return
	}

	log.Error("unhandled service error",
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL"})
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error(), Code: "INVALID_REQUEST"})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID", Code: "INVALID_REQUEST"})
		return uuid.Nil, false
	}
	return id, true
}

// parseQueryUUIDs accepts a repeated or comma separated id list.
func parseQueryUUIDs(c *gin.Context, key string) ([]uuid.UUID, bool) {
	var out []uuid.UUID
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": must be UUIDs", Code: "INVALID_REQUEST"})
				return nil, false
			}
			out = append(out, id)
		}
	}
	return out, true
}

func parseQueryUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": must be a valid UUID", Code: "INVALID_REQUEST"})
		return nil, false
	}
	return &id, true
}

// parseQueryTime reads an RFC 3339 instant.
func parseQueryTime(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": expected RFC 3339", Code: "INVALID_REQUEST"})
		return nil, false
	}
	return &t, true
}

// parseQueryDate reads a civil date in loc.
func parseQueryDate(c *gin.Context, key string, loc *time.Location) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": expected YYYY-MM-DD", Code: "INVALID_REQUEST"})
		return nil, false
	}
	return &t, true
}

// actorFrom returns the caller identity set by the auth middleware.
func actorFrom(c *gin.Context) domain.Actor {
	v, _ := c.Get(actorKey)
	actor, _ := v.(domain.Actor)
	return actor
}
