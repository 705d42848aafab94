package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// defaultErrorCases is checked in order; the first match wins.
var defaultErrorCases = []ErrorCase{
	{Err: common.ErrorUnauthorized, Status: http.StatusUnauthorized, Message: "unauthorized"},
	{Err: common.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "unauthorized"},
	{Err: common.ErrTokenExpired, Status: http.StatusUnauthorized, Message: "unauthorized"},
	{Err: common.ErrorNotFound, Status: http.StatusNotFound, Message: "not found"},
	{Err: common.ErrorAlreadyExists, Status: http.StatusConflict, Message: "email has already been taken"},
	{Err: common.ErrWeakPassword, Status: http.StatusUnprocessableEntity, Message: "password is too weak"},
	{Err: common.ErrorValidation, Status: http.StatusUnprocessableEntity, Message: ""},
	{Err: common.ErrBillingCustomerMissing, Status: http.StatusConflict, Message: "billing customer is missing"},
	{Err: common.ErrUpstreamUnavailable, Status: http.StatusBadGateway, Message: "billing provider unavailable"},
}

// respondWithMappedError resolves err against cases or falls back to a
// generic 500. An empty case message means the error text is safe to show.
func (s *Server) respondWithMappedError(c *gin.Context, err error, cases []ErrorCase) {
	for _, cs := range cases {
		if errors.Is(err, cs.Err) {
			msg := cs.Message
			if msg == "" {
				msg = err.Error()
			}
			c.AbortWithStatusJSON(cs.Status, ErrorResponse{Error: msg})
			return
		}
	}

	if errors.Is(err, common.ErrDuplicateTokenID) {
		s.logger.Error(c.Request.Context(), "token id collision", "error", err)
	} else {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func (s *Server) respondError(c *gin.Context, err error) {
	s.respondWithMappedError(c, err, defaultErrorCases)
}
