package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailmove/internal/directory"
	"mailmove/internal/migration/models"
	"mailmove/pkg/platform/sentinel"
)

func seed() *Directory {
	return New(
		models.Identity{
			Kind:           models.KindUserMailbox,
			PrincipalName:  "ana@old.example.com",
			ProxyAddresses: []string{"SMTP:ana@old.example.com", "smtp:ana.alias@partner.example.net"},
		},
		models.Identity{
			Kind:           models.KindUserMailbox,
			PrincipalName:  "ben@new.example.com",
			ProxyAddresses: []string{"SMTP:ben@new.example.com"},
		},
		models.Identity{
			Kind:           models.KindDistributionGroup,
			PrincipalName:  "dg-sales@old.example.com",
			ProxyAddresses: []string{"SMTP:dg-sales@old.example.com"},
		},
	)
}

func TestGet(t *testing.T) {
	d := seed()
	ctx := context.Background()

	t.Run("by principal name, case-insensitive", func(t *testing.T) {
		id, err := d.Get(ctx, models.KindUserMailbox, "ANA@OLD.EXAMPLE.COM")
		require.NoError(t, err)
		assert.Equal(t, "ana@old.example.com", id.PrincipalName)
	})

	t.Run("by secondary address", func(t *testing.T) {
		id, err := d.Get(ctx, models.KindUserMailbox, "ana.alias@partner.example.net")
		require.NoError(t, err)
		assert.Equal(t, "ana@old.example.com", id.PrincipalName)
	})

	t.Run("kind mismatch is a miss", func(t *testing.T) {
		_, err := d.Get(ctx, models.KindSharedMailbox, "ana@old.example.com")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("unknown principal", func(t *testing.T) {
		_, err := d.Get(ctx, models.KindUserMailbox, "ghost@old.example.com")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	d := seed()
	ctx := context.Background()

	t.Run("filters by kind and domain", func(t *testing.T) {
		ids, err := d.List(ctx, models.KindUserMailbox, directory.Filter{AnyDomain: []string{"old.example.com"}})
		require.NoError(t, err)
		require.Len(t, ids, 1)
		assert.Equal(t, "ana@old.example.com", ids[0].PrincipalName)
	})

	t.Run("zero filter lists the whole kind", func(t *testing.T) {
		ids, err := d.List(ctx, models.KindUserMailbox, directory.Filter{})
		require.NoError(t, err)
		assert.Len(t, ids, 2)
	})

	t.Run("ordered by principal name", func(t *testing.T) {
		ids, err := d.List(ctx, models.KindUserMailbox, directory.Filter{})
		require.NoError(t, err)
		require.Len(t, ids, 2)
		assert.Equal(t, "ana@old.example.com", ids[0].PrincipalName)
		assert.Equal(t, "ben@new.example.com", ids[1].PrincipalName)
	})

	t.Run("unparsable token keeps the identity visible", func(t *testing.T) {
		d := New(models.Identity{
			Kind:           models.KindUserMailbox,
			PrincipalName:  "broken@old.example.com",
			ProxyAddresses: []string{"smtp:not-an-address"},
		})
		ids, err := d.List(ctx, models.KindUserMailbox, directory.Filter{AnyDomain: []string{"old.example.com"}})
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})
}

func TestApplyAddressSet(t *testing.T) {
	d := seed()
	ctx := context.Background()

	id, err := d.Get(ctx, models.KindUserMailbox, "ana@old.example.com")
	require.NoError(t, err)

	final, err := models.ParseAddressSet([]string{"SMTP:ana@new.example.com", "smtp:ana.alias@partner.example.net"})
	require.NoError(t, err)
	primary, ok := final.PrimaryEntry()
	require.True(t, ok)

	require.NoError(t, d.ApplyAddressSet(ctx, id, final, primary))

	got, err := d.Get(ctx, models.KindUserMailbox, "ana@old.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"SMTP:ana@new.example.com", "smtp:ana.alias@partner.example.net"}, got.ProxyAddresses)

	t.Run("unknown identity", func(t *testing.T) {
		err := d.ApplyAddressSet(ctx, models.Identity{
			Kind:          models.KindUserMailbox,
			PrincipalName: "ghost@old.example.com",
		}, final, primary)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("listed identities are copies", func(t *testing.T) {
		ids, err := d.List(ctx, models.KindUserMailbox, directory.Filter{})
		require.NoError(t, err)
		ids[0].ProxyAddresses[0] = "SMTP:tampered@example.com"

		again, err := d.List(ctx, models.KindUserMailbox, directory.Filter{})
		require.NoError(t, err)
		assert.NotEqual(t, "SMTP:tampered@example.com", again[0].ProxyAddresses[0])
	})
}
