// Package auth establishes who the caller is and whether they may use the
// diary at all. Verification (token → Identity) and authorization (Identity →
// allowed) are separate so either can be swapped without touching the other.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/diarykeeper/internal/common"
)

// Identity is a verified caller. Subject becomes the owner id of everything
// the caller creates.
type Identity struct {
	Subject string
	Email   string
}

// Verifier turns a raw bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}

// Policy decides whether a verified identity may proceed.
type Policy interface {
	Authorize(ctx context.Context, id Identity) error
}

// EmailAllowList admits identities whose email is on the list. Comparison
// ignores case. An empty list admits nobody.
type EmailAllowList struct {
	allowed map[string]struct{}
}

func NewEmailAllowList(emails ...string) *EmailAllowList {
	l := &EmailAllowList{allowed: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			l.allowed[e] = struct{}{}
		}
	}
	return l
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func (l *EmailAllowList) Authorize(_ context.Context, id Identity) error {
	if id.Subject == "" {
		return fmt.Errorf("%w: identity has no subject", common.ErrorUnauthorized)
	}
	if _, ok := l.allowed[normalizeEmail(id.Email)]; !ok || id.Email == "" {
		return fmt.Errorf("%w: email not allowed", common.ErrorUnauthorized)
	}
	return nil
}
