package notification

import (
	"context"

	"wexcommerce/internal/domain"
	notificationrepo "wexcommerce/internal/repository/notification"
)

const maxPageSize = 100

type Page struct {
	Notifications []domain.Notification `json:"resultData"`
	TotalRecords  int                   `json:"totalRecords"`
}

type Service struct {
	repo notificationrepo.Repository
}

func New(repo notificationrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID string, page, size int) (*Page, error) {
	if err := domain.RequireID("user", userID); err != nil {
		return nil, err
	}
	page, size, err := pageBounds(page, size)
	if err != nil {
		return nil, err
	}
	items, total, err := s.repo.List(ctx, userID, page, size)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return &Page{Notifications: items, TotalRecords: total}, nil
}

func (s *Service) Counter(ctx context.Context, userID string) (int, error) {
	if err := domain.RequireID("user", userID); err != nil {
		return 0, err
	}
	return s.repo.Counter(ctx, userID)
}

func (s *Service) MarkAsRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if err := validateIDs(userID, ids); err != nil {
		return 0, err
	}
	return s.repo.SetRead(ctx, userID, ids, true)
}

func (s *Service) MarkAsUnread(ctx context.Context, userID string, ids []string) (int64, error) {
	if err := validateIDs(userID, ids); err != nil {
		return 0, err
	}
	return s.repo.SetRead(ctx, userID, ids, false)
}

func (s *Service) Delete(ctx context.Context, userID string, ids []string) (int64, error) {
	if err := validateIDs(userID, ids); err != nil {
		return 0, err
	}
	return s.repo.Delete(ctx, userID, ids)
}

func validateIDs(userID string, ids []string) error {
	if err := domain.RequireID("user", userID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return domain.Invalid("ids", "is required")
	}
	for _, id := range ids {
		if !domain.ValidID(id) {
			return domain.Invalid("ids", "contains an invalid id")
		}
	}
	return nil
}

func pageBounds(page, size int) (int, int, error) {
	if page < 1 {
		return 0, 0, domain.Invalid("page", "must be >= 1")
	}
	if size < 1 || size > maxPageSize {
		return 0, 0, domain.Invalid("size", "must be between 1 and 100")
	}
	return page, size, nil
}
