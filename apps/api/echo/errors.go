package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/auth"
)

// machine readable error codes
const (
	codeValidation         = "validation_error"
	codeInvalidCredentials = "invalid_credentials"
	codeUnauthorized       = "unauthorized"
	codeTokenExpired       = "token_expired"
	codeTokenInvalid       = "token_invalid"
	codeForbidden          = "forbidden"
	codeNotFound           = "not_found"
	codeMethodNotAllowed   = "method_not_allowed"
	codeStoreUnavailable   = "store_unavailable"
	codeInternal           = "internal_error"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code   string            `json:"code"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		status, resp, unexpected := errorResponse(err, translator)

		if unexpected {
			claims, _ := getContextClaims(ctx)
			logger.Error(resp.Error, errors.Wrap(err, resp.Error), claims)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && status >= http.StatusInternalServerError {
			resp.Error = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(status)
			} else {
				err = ctx.JSON(status, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// errorResponse maps err to a status code and body. unexpected reports errors that must be logged.
func errorResponse(err error, translator ut.Translator) (status int, resp ErrorResponse, unexpected bool) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		return origErr.Code, ErrorResponse{Code: httpErrorCode(origErr.Code), Error: fmt.Sprint(origErr.Message)}, false

	case validator.ValidationErrors:
		return validationResponse(core.TranslateValidationErrors(origErr, translator))

	case *core.ValidationError:
		return validationResponse(origErr)
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Code: codeInvalidCredentials, Error: auth.ErrInvalidCredentials.Error()}, false
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, ErrorResponse{Code: codeTokenExpired, Error: auth.ErrTokenExpired.Error()}, false
	case errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized, ErrorResponse{Code: codeTokenInvalid, Error: auth.ErrTokenInvalid.Error()}, false
	case errors.Is(err, auth.ErrRefreshExpired):
		return http.StatusForbidden, ErrorResponse{Code: codeForbidden, Error: auth.ErrRefreshExpired.Error()}, false
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Code: codeForbidden, Error: core.ErrForbidden.Error()}, false
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Code: codeNotFound, Error: core.ErrNotFound.Error()}, false
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{Code: codeStoreUnavailable, Error: core.ErrStoreUnavailable.Error()}, true
	}

	// any other error is a server error
	return http.StatusInternalServerError, ErrorResponse{Code: codeInternal, Error: http.StatusText(http.StatusInternalServerError)}, true
}

func validationResponse(err error) (int, ErrorResponse, bool) {
	resp := ErrorResponse{Code: codeValidation, Error: "invalid input"}
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		if vErr.Err != nil {
			resp.Error = vErr.Err.Error()
		}
		if len(vErr.Fields) > 0 {
			resp.Fields = make(map[string]string, len(vErr.Fields))
			for _, fErr := range vErr.Fields {
				resp.Fields[fErr.Field] = fErr.Error
			}
		}
	}
	return http.StatusBadRequest, resp, false
}

func httpErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return codeValidation
	case http.StatusUnauthorized:
		return codeUnauthorized
	case http.StatusForbidden:
		return codeForbidden
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusMethodNotAllowed:
		return codeMethodNotAllowed
	case http.StatusServiceUnavailable:
		return codeStoreUnavailable
	}
	if status >= http.StatusInternalServerError {
		return codeInternal
	}
	return http.StatusText(status)
}
