package dataflows

import (
	"context"

	"github.com/dyike/StockAgent/internal/models"
)

// Provider returns a fresh snapshot for one ticker. Errors wrap
// ErrInvalidTicker when the symbol does not exist and ErrProviderUnavailable
// on transport failures.
type Provider interface {
	Fetch(ctx context.Context, ticker string) (*models.Snapshot, error)
}

// QuoteSource supplies the price, the one-month series and whatever company
// metadata the quote endpoint carries.
type QuoteSource interface {
	Name() string
	Quote(ctx context.Context, ticker string) (*models.Snapshot, error)
}

// ProfileSource supplies sector, industry and website details.
type ProfileSource interface {
	Name() string
	Profile(ctx context.Context, ticker string) (*models.CompanyProfile, error)
}

// HeadlineSource supplies recent news titles.
type HeadlineSource interface {
	Headlines(ctx context.Context, ticker string, limit int) ([]models.Headline, error)
}
