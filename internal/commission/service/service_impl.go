package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/commission/domain"
	"github.com/smallbiznis/partnerpay/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize int32 = 50
	maxPageSize     int32 = 250
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("commission.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCommissionRequest) (domain.Commission, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Commission{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Commission{}, err
	}
	if item == nil {
		return domain.Commission{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCommissionRequest) (domain.ListCommissionResponse, error) {
	affiliateID, err := parseID(req.AffiliateID)
	if err != nil {
		return domain.ListCommissionResponse{}, err
	}

	status := strings.TrimSpace(req.Status)
	switch status {
	case "", domain.StatusPending, domain.StatusApproved, domain.StatusPaid, domain.StatusCancelled:
	default:
		return domain.ListCommissionResponse{}, domain.ErrInvalidStatus
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, err := s.repo.ListByAffiliate(ctx, s.db, affiliateID, domain.ListCommissionFilter{
		Status:      status,
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListCommissionResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(commission *domain.Commission) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        commission.ID.String(),
			CreatedAt: commission.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	commissions := make([]domain.Commission, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		commissions = append(commissions, *item)
	}

	resp := domain.ListCommissionResponse{Commissions: commissions}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
