// Package models - finding.go defines the Finding model, the persisted record
// a detector produces when a rule fires. Details is a variant-tagged struct
// per finding type so each detector gets compile-time safety, while the
// persisted shape stays an untyped JSONB document.
package models

import (
	"encoding/json"
	"time"
)

// Finding types, one per detection rule. New rules add new values; readers
// must tolerate unknown types.
const (
	FindingTypeHighPurchase  = "high_purchase"
	FindingTypeAuthFailure   = "auth_failure"
	FindingTypeUnusualAccess = "unusual_access"
)

// Finding severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Finding represents a persisted anomaly record. Created exclusively by the
// finding repository; mutated later only by the resolution workflow, which
// flips IsResolved.
//
// Invariant: ResolvedAt and ResolvedBy are set if and only if IsResolved.
type Finding struct {
	ID         string          `db:"id"`
	Type       string          `db:"type"`
	Severity   string          `db:"severity"`
	UserID     *string         `db:"user_id"` // Nullable: auth bursts against unknown accounts have no subject
	Details    json.RawMessage `db:"details"`
	DetectedAt time.Time       `db:"detected_at"`
	IsResolved bool            `db:"is_resolved"`
	ResolvedAt *time.Time      `db:"resolved_at"`
	ResolvedBy *string         `db:"resolved_by"`
	Notes      *string         `db:"notes"`
}

// HighPurchaseDetails is the Details payload for high_purchase findings.
type HighPurchaseDetails struct {
	OrderID     string  `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	Amount      float64 `json:"amount"`
	Average     float64 `json:"average"`
}

// AuthFailureDetails is the Details payload for auth_failure findings.
type AuthFailureDetails struct {
	IPAddress string  `json:"ip_address"`
	UserID    *string `json:"user_id,omitempty"`
	Count     int     `json:"count"`
}

// UnusualAccessDetails is the Details payload for unusual_access findings.
type UnusualAccessDetails struct {
	Username         string   `json:"username"`
	UnusualResources []string `json:"unusual_resources,omitempty"`
	UnusualIPs       []string `json:"unusual_ips,omitempty"`
}

// EncodeDetails marshals a typed details payload into the opaque form stored
// on the finding row.
func EncodeDetails(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}
