package models

import "time"

// Status is the terminal state recorded for a processed identity.
type Status string

const (
	StatusSuccess   Status = "Success"
	StatusFailed    Status = "Failed"
	StatusSkipped   Status = "Skipped"
	StatusSimulated Status = "Simulated"
)

// ChangeRecord is the append-only line written once per processed identity.
// Records are never mutated after being handed to a recorder.
type ChangeRecord struct {
	Timestamp     time.Time
	RunID         string
	IdentityKind  IdentityKind
	PrincipalName string
	OldPrimary    string
	NewPrimary    string
	Removed       []string
	Added         []string
	RemovedCount  int
	AddedCount    int
	Status        Status
	Err           string
}

// Outcome is the processor's result for one identity, handed to recorders
// and aggregated by the orchestrator.
type Outcome struct {
	Identity Identity
	Plan     RewritePlan
	Status   Status
	Err      error
}

// Record flattens the outcome into its change record.
func (o Outcome) Record(runID string, now time.Time) ChangeRecord {
	rec := ChangeRecord{
		Timestamp:     now,
		RunID:         runID,
		IdentityKind:  o.Identity.Kind,
		PrincipalName: o.Identity.PrincipalName,
		Removed:       entryTokens(o.Plan.Removals),
		Added:         entryTokens(o.Plan.Additions),
		RemovedCount:  len(o.Plan.Removals),
		AddedCount:    len(o.Plan.Additions),
		Status:        o.Status,
	}
	rec.OldPrimary = PrimaryToken(o.Identity.ProxyAddresses)
	if o.Plan.NewPrimary != nil {
		rec.NewPrimary = o.Plan.NewPrimary.Address()
	}
	if o.Err != nil {
		rec.Err = o.Err.Error()
	}
	return rec
}

func entryTokens(entries []AddressEntry) []string {
	if len(entries) == 0 {
		return nil
	}
	tokens := make([]string, len(entries))
	for i, e := range entries {
		tokens[i] = e.String()
	}
	return tokens
}
