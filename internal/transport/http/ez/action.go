// Package ez registers one-line JSON actions on a gin group: bind the input, run the
// handler, and wrap the result or the error in the response envelope.
package ez

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"estate-portal/internal/domain"
	resp "estate-portal/internal/transport/http/response"
)

type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none" // the handler reads c.Param itself
)

// AErr carries an explicit envelope code, overriding the domain error mapping.
type AErr struct {
	Code int
	Msg  string
	Err  error
	Data any
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func NotFound(msg string) error   { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// Fielder is implemented by validation errors that know which form fields failed.
type Fielder interface {
	Fields() map[string]string
}

type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Handler func(c *gin.Context, in *I) (O, error)
}

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, log *zap.Logger) EZ {
	if log == nil {
		log = zap.NewNop()
	}
	return EZ{g: g, log: log}
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			e.fail(c, bindError(bindErr))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			e.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &AErr{Code: resp.CodeEntityTooLarge, Msg: "request body too large", Err: err}
	}
	return &AErr{Code: resp.CodeBadRequest, Msg: err.Error(), Err: err}
}

func (e EZ) fail(c *gin.Context, err error) {
	code, msg, data := Classify(err)
	_ = c.Error(err)
	if code >= 500 {
		e.log.Warn("action failed", zap.String("path", c.FullPath()), zap.Int("code", code), zap.Error(err))
	}
	c.AbortWithStatusJSON(resp.Status(code), resp.ErrorWith(code, msg, data))
}

// Classify maps err onto an envelope code and the user-facing message.
func Classify(err error) (code int, msg string, data any) {
	var ae *AErr
	if errors.As(err, &ae) {
		return ae.Code, ae.Error(), ae.Data
	}
	var f Fielder
	if errors.As(err, &f) {
		data = gin.H{"fields": f.Fields()}
	}
	msg = domain.UserMessage(err)
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrCredential),
		errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrPopupClosed):
		return resp.CodeBadRequest, msg, data
	case errors.Is(err, domain.ErrInvalidCredentials):
		return resp.CodeUnauthorized, msg, data
	case errors.Is(err, domain.ErrAuthorization):
		return resp.CodeForbidden, msg, data
	case errors.Is(err, domain.ErrNotFound):
		return resp.CodeNotFound, msg, data
	case errors.Is(err, domain.ErrTooManyAttempts):
		return resp.CodeTooManyRequests, msg, data
	case errors.Is(err, context.DeadlineExceeded):
		return resp.CodeTimeout, "The request timed out. Please try again.", data
	case errors.Is(err, domain.ErrNetwork):
		return resp.CodeBadGateway, msg, data
	}
	return resp.CodeServerError, msg, data
}
