package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/dbx"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/allowlist"
	usersrepo "github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// fakeUsersRepo keeps users in memory. Errors set on the struct are
// returned by the matching method.
type fakeUsersRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	nextID int

	createErr    error
	setStripeErr error
	deleteErr    error

	// beforeDelete runs ahead of Delete, outside the lock.
	beforeDelete func()
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) add(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = &u
	return &u
}

func (f *fakeUsersRepo) get(id string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("u-%d", f.nextID)
	cp := *u
	f.byID[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if u := f.get(id); u != nil {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) SetStripeCustomerID(_ context.Context, id, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setStripeErr != nil {
		return f.setStripeErr
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.StripeCustomerID = customerID
	return nil
}

func (f *fakeUsersRepo) RecordSignIn(_ context.Context, id, ip string, at time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.LastSignInAt, u.LastSignInIP = u.CurrentSignInAt, u.CurrentSignInIP
	u.CurrentSignInAt, u.CurrentSignInIP = &at, ip
	u.SignInCount++
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) Delete(_ context.Context, id string) error {
	if f.beforeDelete != nil {
		f.beforeDelete()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

var _ usersrepo.Repository = (*fakeUsersRepo)(nil)

type fakeRepoManager struct {
	u *fakeUsersRepo
	a allowlist.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Allowlist(db dbx.DBTX) allowlist.Repository   { return m.a }

// fakeProvider records billing calls.
type fakeProvider struct {
	mu        sync.Mutex
	err       error
	statuses  []string
	calls     []string
	lastPrice string
}

func (p *fakeProvider) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.err
}

func (p *fakeProvider) CreateCustomer(_ context.Context, email, userID string) (string, error) {
	if err := p.record("create_customer:" + userID); err != nil {
		return "", err
	}
	return "cus_" + userID, nil
}

func (p *fakeProvider) ListSubscriptionStatuses(_ context.Context, customerID string) ([]string, error) {
	if err := p.record("list:" + customerID); err != nil {
		return nil, err
	}
	return p.statuses, nil
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, customerID, priceID, successURL, cancelURL string) (string, error) {
	if err := p.record("checkout:" + customerID); err != nil {
		return "", err
	}
	p.lastPrice = priceID
	return "https://checkout.test/" + priceID + "?ok=" + successURL, nil
}

func (p *fakeProvider) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	if err := p.record("portal:" + customerID); err != nil {
		return "", err
	}
	return "https://portal.test/" + customerID, nil
}

var errUpstream = errors.New("provider exploded")
