package service

import "context"

// Actor is the already-authenticated identity performing an operation,
// plus optional request provenance for the audit trail.
type Actor struct {
	ID        string
	IPAddress string
	UserAgent string
}

// AccessChecker answers tenant-scoping questions. Authentication and
// role decisions live outside the engine.
type AccessChecker interface {
	HasAccess(ctx context.Context, tenantID, actorID string) (bool, error)
}

// AllowAll grants every actor access to every tenant. Useful for
// single-tenant deployments and tests.
type AllowAll struct{}

func (AllowAll) HasAccess(ctx context.Context, tenantID, actorID string) (bool, error) {
	return true, nil
}

// QuotaReporter is informed of version-count growth. The engine only
// enforces its own hard ceiling; tenant-level quota decisions live
// elsewhere.
type QuotaReporter interface {
	ReportVersionCount(ctx context.Context, tenantID string, count int64)
}

// NopQuotaReporter drops every report.
type NopQuotaReporter struct{}

func (NopQuotaReporter) ReportVersionCount(ctx context.Context, tenantID string, count int64) {}
