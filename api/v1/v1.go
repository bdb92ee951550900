package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// The dashboard's axios client consumes response bodies directly as the
// DTO (no {code,message,data} envelope) and dispatches on HTTP status
// alone, so success handlers write the bare payload and failures write
// a small {"error": ...} body.

type ErrorResponse struct {
	Error string `json:"error"`
}

func HandleSuccess(ctx *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	ctx.JSON(http.StatusOK, data)
}

func HandleError(ctx *gin.Context, httpCode int, err error) {
	if err == nil {
		err = ErrInternalServerError
	}
	ctx.JSON(httpCode, ErrorResponse{Error: err.Error()})
}

// HandleAppError maps the service-layer sentinel errors onto HTTP
// statuses. Anything unrecognized is a 500.
func HandleAppError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidTierTransition),
		errors.Is(err, ErrModelTypeNotAllowed):
		HandleError(ctx, http.StatusBadRequest, err)
	case errors.Is(err, ErrUnauthorized):
		HandleError(ctx, http.StatusUnauthorized, err)
	case errors.Is(err, ErrInsufficientFunds):
		HandleError(ctx, http.StatusPaymentRequired, err)
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrAccountSuspended),
		errors.Is(err, ErrModelNotAccessible), errors.Is(err, ErrStorageQuotaExceeded):
		HandleError(ctx, http.StatusForbidden, err)
	case errors.Is(err, ErrNotFound):
		HandleError(ctx, http.StatusNotFound, err)
	case errors.Is(err, ErrEmailAlreadyUse), errors.Is(err, ErrUsernameAlreadyUse),
		errors.Is(err, ErrInstanceExists), errors.Is(err, ErrRechargeClosed):
		HandleError(ctx, http.StatusConflict, err)
	case errors.Is(err, ErrNoCapacity), errors.Is(err, ErrInstanceUnavailable):
		HandleError(ctx, http.StatusServiceUnavailable, err)
	default:
		HandleError(ctx, http.StatusInternalServerError, ErrInternalServerError)
	}
}

type Error struct {
	Code    int
	Message string
}

var errorCodeMap = map[error]int{}

func newError(code int, msg string) error {
	err := errors.New(msg)
	errorCodeMap[err] = code
	return err
}

func (e Error) Error() string {
	return e.Message
}
