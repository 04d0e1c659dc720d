package integration

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmreyes/storegate/internal/auth"
	"github.com/tmreyes/storegate/internal/config"
	"github.com/tmreyes/storegate/internal/models"
	"github.com/tmreyes/storegate/internal/repositories"
	"github.com/tmreyes/storegate/internal/security"
	"github.com/tmreyes/storegate/internal/services"
)

func newIntegrationService(repo *repositories.UserRepository) *services.AuthService {
	logger := slog.Default()
	codec := auth.NewTokenCodec(config.AuthConfig{
		AccessTokenSecret:  "access-secret-for-tests-0123456789",
		RefreshTokenSecret: "refresh-secret-for-tests-0123456789",
		SessionTokenSecret: "session-secret-for-tests-0123456789",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 30 * 24 * time.Hour,
		SessionTokenExpiry: 7 * 24 * time.Hour,
	})
	return services.NewAuthService(
		repo,
		codec,
		security.NewRateLimiter(),
		security.NewLockoutTracker(5, 30*time.Minute, logger),
		logger,
	)
}

func TestAuthFlow_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err, "docker is required for integration tests")
	defer testDB.Teardown(ctx)

	repo := repositories.NewUserRepository(testDB.DB)

	t.Run("register then login", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		svc := newIntegrationService(repo)

		resp, err := svc.Register(ctx, "new@example.com", "SecurePassword123", "New User", "1.2.3.4")
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)

		loginResp, err := svc.Login(ctx, "New@Example.com", "SecurePassword123", "5.6.7.8")
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, loginResp.User.ID)
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		svc := newIntegrationService(repo)

		_, err := svc.Register(ctx, "dup@example.com", "SecurePassword123", "First", "1.2.3.4")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "dup@example.com", "SecurePassword123", "Second", "5.6.7.8")
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("refresh token round trip", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		svc := newIntegrationService(repo)

		user, err := SeedUser(ctx, repo, "seeded@example.com", "SecurePassword123", models.RoleUser)
		require.NoError(t, err)

		loginResp, err := svc.Login(ctx, "seeded@example.com", "SecurePassword123", "1.2.3.4")
		require.NoError(t, err)

		refreshResp, err := svc.RefreshToken(ctx, loginResp.RefreshToken, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, user.ID, refreshResp.User.ID)
	})

	t.Run("lockout engages and clears", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		svc := newIntegrationService(repo)

		_, err := SeedUser(ctx, repo, "victim@example.com", "SecurePassword123", models.RoleUser)
		require.NoError(t, err)

		ips := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "4.4.4.4", "5.5.5.5"}
		var lastErr error
		for i := 0; i < 5; i++ {
			_, lastErr = svc.Login(ctx, "victim@example.com", "WrongPassword123", ips[i])
		}
		require.ErrorIs(t, lastErr, models.ErrAccountLocked)

		svc.ClearLockout("victim@example.com")

		_, err = svc.Login(ctx, "victim@example.com", "SecurePassword123", "6.6.6.6")
		assert.NoError(t, err)
	})
}
