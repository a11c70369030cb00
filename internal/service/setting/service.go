package setting

import (
	"context"

	"wexcommerce/internal/domain"
	"wexcommerce/internal/repository/deliverytype"
	"wexcommerce/internal/repository/paymenttype"
	settingrepo "wexcommerce/internal/repository/setting"
)

// Service exposes delivery types, payment types and store settings.
type Service struct {
	deliveryTypes deliverytype.Repository
	paymentTypes  paymenttype.Repository
	settings      settingrepo.Repository
}

func New(deliveryTypes deliverytype.Repository, paymentTypes paymenttype.Repository, settings settingrepo.Repository) *Service {
	return &Service{deliveryTypes: deliveryTypes, paymentTypes: paymentTypes, settings: settings}
}

func (s *Service) DeliveryTypes(ctx context.Context, enabledOnly bool) ([]domain.DeliveryType, error) {
	all, err := s.deliveryTypes.List(ctx)
	if err != nil || !enabledOnly {
		return all, err
	}
	out := make([]domain.DeliveryType, 0, len(all))
	for _, d := range all {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Service) PaymentTypes(ctx context.Context, enabledOnly bool) ([]domain.PaymentType, error) {
	all, err := s.paymentTypes.List(ctx)
	if err != nil || !enabledOnly {
		return all, err
	}
	out := make([]domain.PaymentType, 0, len(all))
	for _, p := range all {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpdateDeliveryTypes applies enabled/price changes. At least one delivery
// type has to stay enabled.
func (s *Service) UpdateDeliveryTypes(ctx context.Context, updates []domain.DeliveryType) error {
	if len(updates) == 0 {
		return domain.Invalid("deliveryTypes", "is required")
	}
	current, err := s.deliveryTypes.List(ctx)
	if err != nil {
		return err
	}
	enabled := make(map[string]bool, len(current))
	for _, d := range current {
		enabled[d.ID] = d.Enabled
	}
	for _, u := range updates {
		if _, ok := enabled[u.ID]; !ok {
			return domain.ErrNotFound
		}
		if u.PriceCents < 0 {
			return domain.Invalid("priceCents", "must be >= 0")
		}
		enabled[u.ID] = u.Enabled
	}
	if !anyTrue(enabled) {
		return domain.Invalid("deliveryTypes", "at least one must be enabled")
	}
	for _, u := range updates {
		if err := s.deliveryTypes.Update(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) UpdatePaymentTypes(ctx context.Context, updates []domain.PaymentType) error {
	if len(updates) == 0 {
		return domain.Invalid("paymentTypes", "is required")
	}
	current, err := s.paymentTypes.List(ctx)
	if err != nil {
		return err
	}
	enabled := make(map[string]bool, len(current))
	for _, p := range current {
		enabled[p.ID] = p.Enabled
	}
	for _, u := range updates {
		if _, ok := enabled[u.ID]; !ok {
			return domain.ErrNotFound
		}
		enabled[u.ID] = u.Enabled
	}
	if !anyTrue(enabled) {
		return domain.Invalid("paymentTypes", "at least one must be enabled")
	}
	for _, u := range updates {
		if err := s.paymentTypes.Update(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context) (*domain.Setting, error) {
	return s.settings.Get(ctx)
}

func (s *Service) Update(ctx context.Context, in domain.Setting) (*domain.Setting, error) {
	if len(in.Currency) != 3 {
		return nil, domain.Invalid("currency", "must be a 3-letter ISO code")
	}
	if err := s.settings.Update(ctx, in); err != nil {
		return nil, err
	}
	return s.settings.Get(ctx)
}

func anyTrue(m map[string]bool) bool {
	for _, v := range m {
		if v {
			return true
		}
	}
	return false
}
