package transaction

import (
	"context"

	"github.com/mic-e/abrechnung/internal/domain"
)

// CreateChange explicitly opens a draft for the caller, cloned from the
// committed revision. Mutating operations open a draft implicitly; this
// exists for clients that want to signal "user started editing" up front.
// Opening a draft that already exists is a no-op.
func (s *Service) CreateChange(ctx context.Context, input CreateChangeInput) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}

	t, err := s.withDraft(ctx, input.TransactionID, input.UserID,
		func(_ *domain.Transaction, _ *domain.TransactionDetails) error {
			return nil
		})
	if err != nil {
		return View{}, err
	}

	return NewView(t, input.UserID), nil
}
