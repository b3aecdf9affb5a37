package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/bunx"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

// setupTestDB opens an in-memory SQLite database and creates the tables the
// repositories under test need. Production schemas come from migrations; for
// tests the model definitions are authoritative enough.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.User)(nil),
		(*models.Org)(nil),
		(*models.OrgMembership)(nil),
		(*models.OrgRoleMapping)(nil),
		(*models.RoleGrant)(nil),
		(*models.RolePreference)(nil),
		(*models.Session)(nil),
		(*models.RevokedJTI)(nil),
		(*models.Campaign)(nil),
		(*models.AdSpace)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	return db
}
