package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/ytdl-relay/internal/domain"
)

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error   domain.ErrorKind `json:"error"`
	Message string           `json:"message"`
}

// statusForKind maps the error taxonomy onto HTTP status codes
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidSource, domain.KindNoMatchingEncoding:
		return http.StatusBadRequest
	case domain.KindUpstreamFailure:
		return http.StatusBadGateway
	case domain.KindClientDisconnected:
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.KindInternal
	}

	message := err.Error()
	var te *domain.TransferError
	if errors.As(err, &te) && te.Err != nil {
		message = te.Err.Error()
	}

	c.AbortWithStatusJSON(statusForKind(kind), ErrorResponse{Error: kind, Message: message})
}
