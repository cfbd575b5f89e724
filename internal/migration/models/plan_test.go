package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSet(t *testing.T, tokens ...string) AddressSet {
	t.Helper()
	set, err := ParseAddressSet(tokens)
	require.NoError(t, err)
	return set
}

func TestRewritePlan_IsNoOp(t *testing.T) {
	assert.True(t, RewritePlan{NoOpReason: "no old-domain references"}.IsNoOp())
	assert.False(t, RewritePlan{}.IsNoOp(), "an empty plan without a reason is not a valid no-op")
	assert.False(t, RewritePlan{
		Removals:   []AddressEntry{{LocalPart: "a", Domain: "old.example.com"}},
		NoOpReason: "no old-domain references",
	}.IsNoOp())
}

func TestRewritePlan_Final(t *testing.T) {
	t.Run("no-op copies the input", func(t *testing.T) {
		current := mustSet(t, "SMTP:a@new.example.com", "smtp:b@partner.example.net")
		plan := RewritePlan{NoOpReason: "no old-domain references"}

		final := plan.Final(current)
		assert.Equal(t, current.Tokens(), final.Tokens())

		final[0].LocalPart = "tampered"
		assert.Equal(t, "a", current[0].LocalPart)
	})

	t.Run("removals and synthesized primary", func(t *testing.T) {
		current := mustSet(t, "SMTP:a@old.example.com", "smtp:b@partner.example.net")
		newPrimary := AddressEntry{Primary: true, LocalPart: "a", Domain: "new.example.com"}
		plan := RewritePlan{
			Removals:   []AddressEntry{{Primary: true, LocalPart: "a", Domain: "old.example.com"}},
			Additions:  []AddressEntry{newPrimary},
			NewPrimary: &newPrimary,
		}

		final := plan.Final(current)
		assert.Equal(t, []string{"SMTP:a@new.example.com", "smtp:b@partner.example.net"}, final.Tokens())
	})

	t.Run("flag delta replaces in place instead of duplicating", func(t *testing.T) {
		// The survivor on the new domain is promoted; the old primary goes.
		current := mustSet(t, "SMTP:a@old.example.com", "smtp:a@new.example.com")
		promoted := AddressEntry{Primary: true, LocalPart: "a", Domain: "new.example.com"}
		plan := RewritePlan{
			Removals:   []AddressEntry{{Primary: true, LocalPart: "a", Domain: "old.example.com"}},
			Additions:  []AddressEntry{promoted},
			NewPrimary: &promoted,
		}

		final := plan.Final(current)
		assert.Equal(t, []string{"SMTP:a@new.example.com"}, final.Tokens())
	})

	t.Run("duplicate slots collapse to one promoted entry", func(t *testing.T) {
		// The same slot listed twice with differing prefix case must not
		// yield two primaries after promotion.
		current := mustSet(t,
			"SMTP:a@old.example.com",
			"smtp:a@new.example.com",
			"SMTP:a@new.example.com",
		)
		promoted := AddressEntry{Primary: true, LocalPart: "a", Domain: "new.example.com"}
		plan := RewritePlan{
			Removals:   []AddressEntry{{Primary: true, LocalPart: "a", Domain: "old.example.com"}},
			Additions:  []AddressEntry{promoted},
			NewPrimary: &promoted,
		}

		final := plan.Final(current)
		assert.Equal(t, []string{"SMTP:a@new.example.com"}, final.Tokens())

		primaries := 0
		for _, e := range final {
			if e.Primary {
				primaries++
			}
		}
		assert.Equal(t, 1, primaries)
	})

	t.Run("primary leads, survivors keep their order", func(t *testing.T) {
		current := mustSet(t,
			"smtp:zeta@partner.example.net",
			"smtp:alpha@partner.example.net",
			"SMTP:a@old.example.com",
		)
		newPrimary := AddressEntry{Primary: true, LocalPart: "a", Domain: "new.example.com"}
		plan := RewritePlan{
			Removals:   []AddressEntry{{Primary: true, LocalPart: "a", Domain: "old.example.com"}},
			Additions:  []AddressEntry{newPrimary},
			NewPrimary: &newPrimary,
		}

		final := plan.Final(current)
		assert.Equal(t, []string{
			"SMTP:a@new.example.com",
			"smtp:zeta@partner.example.net",
			"smtp:alpha@partner.example.net",
		}, final.Tokens())
	})
}
