package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// DefaultRedactPatterns match e-mail addresses and international or French national phone numbers.
var DefaultRedactPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`\+\d[\d .\-]{7,}\d`,
	`\b0\d([ .\-]?\d{2}){4}\b`,
}

type redactionMiddleware struct {
	next     ports.SessionRepository
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks dialogue text matching
// any of the patterns before the record reaches the store.
// Reads are passed through; what was masked is gone.
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, 0, len(patternStrings))
	for _, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return func(next ports.SessionRepository) ports.SessionRepository {
		return &redactionMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Put(ctx context.Context, record *domain.SessionRecord) error {
	// The caller keeps its unmasked copy.
	cloned := record.Clone()
	for i := range cloned.DialogueHistory {
		cloned.DialogueHistory[i].Text = m.mask(cloned.DialogueHistory[i].Text)
	}
	return m.next.Put(ctx, cloned)
}

func (m *redactionMiddleware) Get(ctx context.Context, userID string) (*domain.SessionRecord, error) {
	return m.next.Get(ctx, userID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, userID string) error {
	return m.next.Delete(ctx, userID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactionMiddleware) mask(text string) string {
	for _, p := range m.patterns {
		text = p.ReplaceAllString(text, Mask)
	}
	return text
}
