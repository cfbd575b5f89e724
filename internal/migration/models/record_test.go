package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeRecord(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	newPrimary := AddressEntry{Primary: true, LocalPart: "ana", Domain: "new.example.com"}

	outcome := Outcome{
		Identity: Identity{
			Kind:          KindUserMailbox,
			PrincipalName: "ana@old.example.com",
			ProxyAddresses: []string{
				"SMTP:ana@old.example.com",
				"smtp:ana@partner.example.net",
			},
		},
		Plan: RewritePlan{
			Removals:   []AddressEntry{{Primary: true, LocalPart: "ana", Domain: "old.example.com"}},
			Additions:  []AddressEntry{newPrimary},
			NewPrimary: &newPrimary,
		},
		Status: StatusSuccess,
	}

	rec := outcome.Record("run-7", now)

	assert.Equal(t, now, rec.Timestamp)
	assert.Equal(t, "run-7", rec.RunID)
	assert.Equal(t, KindUserMailbox, rec.IdentityKind)
	assert.Equal(t, "ana@old.example.com", rec.PrincipalName)
	assert.Equal(t, "ana@old.example.com", rec.OldPrimary)
	assert.Equal(t, "ana@new.example.com", rec.NewPrimary)
	assert.Equal(t, []string{"SMTP:ana@old.example.com"}, rec.Removed)
	assert.Equal(t, []string{"SMTP:ana@new.example.com"}, rec.Added)
	assert.Equal(t, 1, rec.RemovedCount)
	assert.Equal(t, 1, rec.AddedCount)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Empty(t, rec.Err)
}

func TestOutcomeRecord_Failure(t *testing.T) {
	outcome := Outcome{
		Identity: Identity{
			Kind:           KindSharedMailbox,
			PrincipalName:  "billing@old.example.com",
			ProxyAddresses: []string{"smtp:billing@old.example.com"},
		},
		Status: StatusFailed,
		Err:    errors.New("apply address set failed"),
	}

	rec := outcome.Record("run-7", time.Now())

	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "apply address set failed", rec.Err)
	assert.Empty(t, rec.NewPrimary, "a failed identity has no new primary")
	assert.Empty(t, rec.OldPrimary, "no SMTP token means no recorded old primary")
	assert.Zero(t, rec.RemovedCount)
}
