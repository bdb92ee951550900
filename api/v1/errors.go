package v1

var (
	// common errors
	ErrSuccess             = newError(0, "ok")
	ErrBadRequest          = newError(400, "bad request")
	ErrUnauthorized        = newError(401, "unauthorized")
	ErrForbidden           = newError(403, "forbidden")
	ErrNotFound            = newError(404, "not found")
	ErrInternalServerError = newError(500, "internal server error")

	// account errors
	ErrEmailAlreadyUse    = newError(1001, "The email is already in use.")
	ErrUsernameAlreadyUse = newError(1002, "The username is already in use.")
	ErrAccountSuspended   = newError(1003, "account suspended")

	// pool / scheduling errors
	ErrNoCapacity          = newError(2001, "no instance has capacity for this task")
	ErrInstanceUnavailable = newError(2002, "instance became unavailable")
	ErrInstanceExists      = newError(2003, "instance id already registered")

	// billing errors
	ErrInsufficientFunds     = newError(3001, "insufficient balance")
	ErrInvalidTierTransition = newError(3002, "invalid tier transition")
	ErrRechargeClosed        = newError(3003, "recharge record already finalized")

	// model errors
	ErrModelTypeNotAllowed  = newError(4001, "model type not allowed")
	ErrStorageQuotaExceeded = newError(4002, "storage quota exceeded")
	ErrModelNotAccessible   = newError(4003, "model not accessible at current tier")
)
