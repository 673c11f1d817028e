package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/partnerpay/pkg/db/pagination"
)

type GetCommissionRequest struct {
	ID string
}

type ListCommissionRequest struct {
	AffiliateID string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	PageToken   string
	PageSize    int32
}

type ListCommissionResponse struct {
	pagination.PageInfo
	Commissions []Commission `json:"commissions"`
}

type Service interface {
	GetByID(context.Context, GetCommissionRequest) (Commission, error)
	List(context.Context, ListCommissionRequest) (ListCommissionResponse, error)
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrNotFound      = errors.New("commission_not_found")
)
