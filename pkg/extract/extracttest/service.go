// Package extracttest provides an in-memory extract.Service for tests.
package extracttest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/gardar/ocrtable/pkg/extract"
)

var _ extract.Service = (*Service)(nil)

// Service serves canned result pages for known jobs. Continuation tokens are
// the decimal index of the next page.
type Service struct {
	mu sync.Mutex

	Jobs map[string][]extract.ResultPage

	// SubmitErr is returned by Submit when set
	SubmitErr error

	Submitted []extract.SubmitRequest
	Calls     []Call
}

// Call records one Retrieve invocation
type Call struct {
	JobID string
	Token string
}

// New returns a Service serving blocks for a single job, one result page per slice.
func New(jobID string, pages ...[]extract.ContentBlock) *Service {
	s := &Service{
		Jobs: make(map[string][]extract.ResultPage),
	}

	var result []extract.ResultPage
	for _, blocks := range pages {
		result = append(result, extract.ResultPage{Blocks: blocks})
	}
	s.Jobs[jobID] = result

	return s
}

func (s *Service) Submit(ctx context.Context, req extract.SubmitRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SubmitErr != nil {
		return "", s.SubmitErr
	}

	s.Submitted = append(s.Submitted, req)
	return fmt.Sprintf("job-%d", len(s.Submitted)), nil
}

func (s *Service) Retrieve(ctx context.Context, jobID string, token string) (*extract.ResultPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, Call{JobID: jobID, Token: token})

	pages, ok := s.Jobs[jobID]
	if !ok {
		return nil, extract.ErrJobNotFound
	}

	index := 0
	if token != "" {
		i, err := strconv.Atoi(token)
		if err != nil || i < 0 || i >= len(pages) {
			return nil, fmt.Errorf("invalid token %q", token)
		}
		index = i
	}

	if len(pages) == 0 {
		return &extract.ResultPage{}, nil
	}

	page := pages[index]
	page.NextToken = ""
	if index+1 < len(pages) {
		page.NextToken = strconv.Itoa(index + 1)
	}

	return &page, nil
}

// Line returns a LINE block
func Line(page int, text string) extract.ContentBlock {
	return extract.ContentBlock{Page: page, Type: extract.BlockTypeLine, Text: text}
}

// Annotation returns an ANNOTATION block
func Annotation(page int, text string) extract.ContentBlock {
	return extract.ContentBlock{Page: page, Type: extract.BlockTypeAnnotation, Text: text}
}
