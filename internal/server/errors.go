package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/smallbiznis/partnerpay/internal/commission/domain"
	integritydomain "github.com/smallbiznis/partnerpay/internal/integrity/domain"
)

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, commissiondomain.ErrInvalidID),
		errors.Is(err, commissiondomain.ErrInvalidStatus):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, commissiondomain.ErrNotFound),
		errors.Is(err, integritydomain.ErrCommissionNotFound),
		errors.Is(err, integritydomain.ErrOrderNotFound),
		errors.Is(err, integritydomain.ErrAffiliateNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
