package response

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/voxroom/core/internal/pkg/errs"
)

// Pagination metadata returned with paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"has_next_page"`
}

// pagedResponse is the envelope for paginated list responses.
type pagedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// OK sends a 200 response. Arrays/slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// Paged sends a paginated response.
func Paged(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, pagedResponse{
		Data:       data,
		Pagination: pagination,
	})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, string(errs.CodeValidationFailed), message)
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context) {
	abort(c, http.StatusUnauthorized, string(errs.CodeUnauthenticated), "authentication required")
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	abort(c, http.StatusNotFound, string(errs.CodeNotFound), "not found")
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	abort(c, http.StatusMethodNotAllowed, string(errs.CodeValidationFailed), "method not allowed")
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, err error) {
	abort(c, http.StatusInternalServerError, string(errs.CodeStoreUnavailable), err.Error())
}

// Err maps a coded domain error onto the HTTP error envelope. Unknown errors
// surface as a retryable 503 per the propagation policy.
func Err(c *gin.Context, err error) {
	e, ok := errs.As(err)
	if !ok {
		abort(c, http.StatusServiceUnavailable, string(errs.CodeStoreUnavailable), "store temporarily unavailable")
		return
	}
	status := statusOf(e.Code)
	if e.Code == errs.CodeRateLimited && e.RetryAfter > 0 {
		c.Header("Retry-After", e.RetryAfter.Round(1e9).String())
	}
	abort(c, status, string(e.Code), e.Message)
}

func statusOf(code errs.Code) int {
	switch code {
	case errs.CodeUnauthenticated:
		return http.StatusUnauthorized
	case errs.CodeUnauthorized, errs.CodeBanned, errs.CodeMuted, errs.CodeNotAMember:
		return http.StatusForbidden
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeRoomInactive, errs.CodeInvalidTarget, errs.CodeValidationFailed:
		return http.StatusUnprocessableEntity
	case errs.CodeInsufficientBalance:
		return http.StatusPaymentRequired
	case errs.CodeDuplicateTransact:
		return http.StatusConflict
	case errs.CodeRateLimited:
		return http.StatusTooManyRequests
	case errs.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": 0, "code": code, "message": message})
}
