package extract

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Paginator drains every result page of a job.
type Paginator struct {
	// MaxPages caps the number of result pages followed. Zero means unlimited.
	MaxPages int

	// Limiter paces retrieval calls. Nil means no pacing.
	Limiter *rate.Limiter
}

// FetchAllPages retrieves all result pages of a job with an unlimited Paginator.
func FetchAllPages(ctx context.Context, svc Service, jobID string) ([]ResultPage, error) {
	var p Paginator
	return p.FetchAll(ctx, svc, jobID)
}

// FetchAll issues an initial retrieval and follows continuation tokens until a
// response carries none. Pages are returned in arrival order. Retrieval errors
// are returned as-is (wrapped) and never retried.
func (p *Paginator) FetchAll(ctx context.Context, svc Service, jobID string) ([]ResultPage, error) {
	var pages []ResultPage
	token := ""

	for {
		if p.MaxPages > 0 && len(pages) >= p.MaxPages {
			return nil, fmt.Errorf("job %s: %w (limit %d)", jobID, ErrTooManyPages, p.MaxPages)
		}

		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		page, err := svc.Retrieve(ctx, jobID, token)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve page %d of job %s: %w", len(pages)+1, jobID, err)
		}

		pages = append(pages, *page)

		if page.NextToken == "" {
			return pages, nil
		}
		token = page.NextToken
	}
}
