package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/logging"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/auth"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/config"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/allowlist"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/revocation"
)

const strongPassword = "Tr0ub4dour&3-vN8#qzLr2"

type userFixture struct {
	svc      *UserService
	mock     sqlmock.Sqlmock
	users    *fakeUsersRepo
	store    *allowlist.MemoryRepository
	strategy *revocation.AllowlistStrategy
	provider *fakeProvider
	now      time.Time
}

func newUserFixture(t *testing.T, provider *fakeProvider) *userFixture {
	t.Helper()
	store := allowlist.NewMemoryRepository()
	f := newUserFixtureOn(t, provider, store)
	f.store = store
	return f
}

// newUserFixtureOn builds the fixture over an arbitrary allowlist backend.
func newUserFixtureOn(t *testing.T, provider *fakeProvider, store allowlist.Repository) *userFixture {
	t.Helper()
	db, mock := newSQLMockDB(t)

	users := newFakeUsersRepo()
	rm := &fakeRepoManager{u: users, a: store}
	strategy := revocation.NewAllowlistStrategy(store, logging.Nop(), nil)

	cfg := &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
		MinPasswordScore:            3,
	}

	var bs *BillingService
	if provider != nil {
		bs = NewBillingService(db, rm, provider, logging.Nop(), nil, cfg)
	} else {
		bs = NewBillingService(db, rm, nil, logging.Nop(), nil, cfg)
	}

	svc := NewUserService(db, rm, strategy, bs, logging.Nop(), nil, cfg)
	svc.bcryptCost = bcrypt.MinCost
	now := time.Now()
	svc.now = func() time.Time { return now }

	return &userFixture{svc: svc, mock: mock, users: users, strategy: strategy, provider: provider, now: now}
}

func (f *userFixture) addUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return f.users.add(models.User{ID: "u-" + email, Email: email, PasswordHash: hash})
}

func TestRegister_CreatesUserAndCustomer(t *testing.T) {
	f := newUserFixture(t, &fakeProvider{})
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	u, err := f.svc.Register(context.Background(), "  Alice@Example.com ", strongPassword)
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "cus_"+u.ID, u.StripeCustomerID)
	assert.NoError(t, bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(strongPassword)))
	assert.Equal(t, "cus_"+u.ID, f.users.get(u.ID).StripeCustomerID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRegister_BillingFailureRollsBack(t *testing.T) {
	f := newUserFixture(t, &fakeProvider{err: errUpstream})
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Register(context.Background(), "bob@example.com", strongPassword)
	require.ErrorIs(t, err, common.ErrUpstreamUnavailable)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRegister_WithoutBilling(t *testing.T) {
	f := newUserFixture(t, nil)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	u, err := f.svc.Register(context.Background(), "carol@example.com", strongPassword)
	require.NoError(t, err)
	assert.Empty(t, u.StripeCustomerID)
}

func TestRegister_Validation(t *testing.T) {
	f := newUserFixture(t, nil)

	cases := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"bad email", "not-an-email", strongPassword, common.ErrorValidation},
		{"display name", "Dan <dan@example.com>", strongPassword, common.ErrorValidation},
		{"short password", "dan@example.com", "abc", common.ErrorValidation},
		{"weak password", "dan@example.com", "password", common.ErrWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.email, tc.password)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newUserFixture(t, nil)
	f.addUser(t, "erin@example.com", strongPassword)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Register(context.Background(), "erin@example.com", strongPassword)
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestSignIn_IssuesAllowlistedToken(t *testing.T) {
	f := newUserFixture(t, nil)
	u := f.addUser(t, "frank@example.com", strongPassword)
	ctx := context.Background()

	tok, err := f.svc.SignIn(ctx, "frank@example.com", strongPassword, "curl/8.0", "10.0.0.1")
	require.NoError(t, err)

	claims, err := auth.ParseToken(tok.AccessToken, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.OwnerID())
	assert.Equal(t, tok.TokenID, claims.TokenID())
	assert.Equal(t, "curl/8.0", claims.Audience())

	assert.True(t, f.strategy.IsAllowlisted(ctx, u.ID, tok.TokenID, f.now))
	assert.False(t, f.strategy.IsAllowlisted(ctx, u.ID, tok.TokenID, tok.ExpiresAt))

	stored := f.users.get(u.ID)
	assert.Equal(t, 1, stored.SignInCount)
	assert.Equal(t, "10.0.0.1", stored.CurrentSignInIP)
}

func TestSignIn_TwoSessionsCoexist(t *testing.T) {
	f := newUserFixture(t, nil)
	u := f.addUser(t, "gina@example.com", strongPassword)
	ctx := context.Background()

	a, err := f.svc.SignIn(ctx, "gina@example.com", strongPassword, "phone", "")
	require.NoError(t, err)
	b, err := f.svc.SignIn(ctx, "gina@example.com", strongPassword, "laptop", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.TokenID, b.TokenID)
	active, err := f.store.ListActive(ctx, u.ID, f.now)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestSignIn_BadCredentials(t *testing.T) {
	f := newUserFixture(t, nil)
	f.addUser(t, "hank@example.com", strongPassword)

	_, err := f.svc.SignIn(context.Background(), "hank@example.com", "wrong password", "", "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.svc.SignIn(context.Background(), "nobody@example.com", strongPassword, "", "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	assert.Equal(t, 0, f.store.Len())
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newUserFixture(t, nil)
	u := f.addUser(t, "ivy@example.com", strongPassword)
	ctx := context.Background()

	old, err := f.svc.SignIn(ctx, "ivy@example.com", strongPassword, "app", "")
	require.NoError(t, err)

	fresh, err := f.svc.Refresh(ctx, u.ID, old.TokenID, "app")
	require.NoError(t, err)

	assert.False(t, f.strategy.IsAllowlisted(ctx, u.ID, old.TokenID, f.now))
	assert.True(t, f.strategy.IsAllowlisted(ctx, u.ID, fresh.TokenID, f.now))
}

func TestRefresh_RevokedTokenWithdrawsNewOne(t *testing.T) {
	f := newUserFixture(t, nil)
	u := f.addUser(t, "jack@example.com", strongPassword)

	_, err := f.svc.Refresh(context.Background(), u.ID, "already-gone", "app")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Equal(t, 0, f.store.Len())
}

func TestSignOut(t *testing.T) {
	f := newUserFixture(t, nil)
	u := f.addUser(t, "kim@example.com", strongPassword)
	ctx := context.Background()

	tok, err := f.svc.SignIn(ctx, "kim@example.com", strongPassword, "", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, u.ID, tok.TokenID))
	assert.False(t, f.strategy.IsAllowlisted(ctx, u.ID, tok.TokenID, f.now))
	assert.ErrorIs(t, f.svc.SignOut(ctx, u.ID, tok.TokenID), common.ErrorNotFound)
}

func TestDeleteAccount(t *testing.T) {
	f := newUserFixture(t, nil)
	u := f.addUser(t, "leo@example.com", strongPassword)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.SignIn(ctx, "leo@example.com", strongPassword, "", "")
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.DeleteAccount(ctx, u.ID))
	assert.Equal(t, 0, f.store.Len())
	_, err := f.svc.Profile(ctx, u.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeleteAccount_RedisBackendLeavesNoTokens(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	store := allowlist.NewRedisRepository(client, "t", time.Hour)
	f := newUserFixtureOn(t, nil, store)
	u := f.addUser(t, "noa@example.com", strongPassword)
	ctx := context.Background()

	first, err := f.svc.SignIn(ctx, "noa@example.com", strongPassword, "cli", "")
	require.NoError(t, err)

	// A sign-in landing after the first revoke-all but before the row goes.
	var late *IssuedToken
	f.users.beforeDelete = func() {
		late, err = f.svc.SignIn(ctx, "noa@example.com", strongPassword, "web", "")
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.DeleteAccount(ctx, u.ID))
	require.NotNil(t, late)

	now := time.Now()
	assert.False(t, f.strategy.IsAllowlisted(ctx, u.ID, first.TokenID, now))
	assert.False(t, f.strategy.IsAllowlisted(ctx, u.ID, late.TokenID, now))

	active, err := store.ListActive(ctx, u.ID, now)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Empty(t, server.Keys())
}

func TestDeleteAccount_RepoError(t *testing.T) {
	f := newUserFixture(t, nil)
	u := f.addUser(t, "mia@example.com", strongPassword)
	f.users.deleteErr = errBoom{}

	err := f.svc.DeleteAccount(context.Background(), u.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoom{}))
}
