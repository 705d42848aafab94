package revocation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/logging"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/allowlist"
)

type logEntry struct {
	level string
	msg   string
}

// recLogger records messages for assertions.
type recLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, msg})
}

func (l *recLogger) Debug(_ context.Context, msg string, _ ...any) { l.add("debug", msg) }
func (l *recLogger) Info(_ context.Context, msg string, _ ...any)  { l.add("info", msg) }
func (l *recLogger) Warn(_ context.Context, msg string, _ ...any)  { l.add("warn", msg) }
func (l *recLogger) Error(_ context.Context, msg string, _ ...any) { l.add("error", msg) }
func (l *recLogger) With(_ ...any) logging.Logger                 { return l }

func (l *recLogger) levels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.level)
	}
	return out
}

// brokenRepo fails every call with err.
type brokenRepo struct {
	err error
}

func (b brokenRepo) Put(context.Context, *models.AllowlistedToken) error { return b.err }
func (b brokenRepo) Get(context.Context, string, string) (*models.AllowlistedToken, error) {
	return nil, b.err
}
func (b brokenRepo) ListActive(context.Context, string, time.Time) ([]models.AllowlistedToken, error) {
	return nil, b.err
}
func (b brokenRepo) Delete(context.Context, string, string) error { return b.err }
func (b brokenRepo) DeleteAll(context.Context, string) error      { return b.err }
func (b brokenRepo) PurgeExpired(context.Context, time.Time) ([]models.AllowlistedToken, error) {
	return nil, b.err
}

func newStrategy(t *testing.T) (*AllowlistStrategy, *allowlist.MemoryRepository) {
	t.Helper()
	repo := allowlist.NewMemoryRepository()
	return NewAllowlistStrategy(repo, logging.Nop(), nil), repo
}

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestIsAllowlisted_UntilExpiry(t *testing.T) {
	s, _ := newStrategy(t)
	ctx := context.Background()
	exp := t0.Add(3600 * time.Second)

	require.NoError(t, s.OnIssue(ctx, "42", "abc123", exp, "curl"))

	assert.True(t, s.IsAllowlisted(ctx, "42", "abc123", t0.Add(10*time.Second)))
	assert.True(t, s.IsAllowlisted(ctx, "42", "abc123", exp.Add(-time.Nanosecond)))
	assert.False(t, s.IsAllowlisted(ctx, "42", "abc123", exp), "expiry instant is already invalid")
	assert.False(t, s.IsAllowlisted(ctx, "42", "abc123", t0.Add(3601*time.Second)))
}

func TestOnRevoke(t *testing.T) {
	s, _ := newStrategy(t)
	ctx := context.Background()

	require.NoError(t, s.OnIssue(ctx, "42", "abc123", t0.Add(time.Hour), "curl"))
	require.NoError(t, s.OnRevoke(ctx, "42", "abc123"))

	assert.False(t, s.IsAllowlisted(ctx, "42", "abc123", t0.Add(10*time.Second)))
	assert.ErrorIs(t, s.OnRevoke(ctx, "42", "abc123"), common.ErrorNotFound)
}

func TestOnRevokeAll(t *testing.T) {
	s, repo := newStrategy(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.OnIssue(ctx, "7", id, t0.Add(time.Hour), ""))
	}
	require.NoError(t, s.OnRevokeAll(ctx, "7"))
	require.NoError(t, s.OnRevokeAll(ctx, "7"))

	active, err := repo.ListActive(ctx, "7", t0)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestOnIssue_IdempotentAndIsolated(t *testing.T) {
	s, repo := newStrategy(t)
	ctx := context.Background()
	exp := t0.Add(time.Hour)

	require.NoError(t, s.OnIssue(ctx, "A", "t1", exp, "x"))
	require.NoError(t, s.OnIssue(ctx, "A", "t1", exp, "x"))
	assert.Equal(t, 1, repo.Len())

	assert.False(t, s.IsAllowlisted(ctx, "B", "t1", t0))
	assert.ErrorIs(t, s.OnRevoke(ctx, "B", "t1"), common.ErrorNotFound)
	assert.True(t, s.IsAllowlisted(ctx, "A", "t1", t0))
}

func TestOnIssue_DuplicateIsLoggedAsError(t *testing.T) {
	repo := allowlist.NewMemoryRepository()
	log := &recLogger{}
	s := NewAllowlistStrategy(repo, log, nil)
	ctx := context.Background()

	require.NoError(t, s.OnIssue(ctx, "A", "t1", t0.Add(time.Hour), ""))
	err := s.OnIssue(ctx, "B", "t1", t0.Add(time.Hour), "")

	require.ErrorIs(t, err, common.ErrDuplicateTokenID)
	assert.Equal(t, []string{"error"}, log.levels())
}

func TestIsAllowlisted_FailsClosed(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{"not found", common.ErrorNotFound, "debug"},
		{"backend down", errors.New("connection refused"), "warn"},
		{"wrapped not found", errors.Join(errors.New("ctx"), common.ErrorNotFound), "debug"},
		{"context canceled", context.Canceled, "warn"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log := &recLogger{}
			s := NewAllowlistStrategy(brokenRepo{err: tc.err}, log, nil)

			assert.False(t, s.IsAllowlisted(ctx, "42", "abc123", t0))
			assert.Equal(t, []string{tc.wantLevel}, log.levels())
		})
	}
}

func TestIsAllowlisted_EmptyIdentifiers(t *testing.T) {
	s, _ := newStrategy(t)
	ctx := context.Background()
	require.NoError(t, s.OnIssue(ctx, "", "", t0.Add(time.Hour), ""))

	assert.False(t, s.IsAllowlisted(ctx, "", "", t0))
}

func TestDecisionMetrics(t *testing.T) {
	m, ok := metrics.Init(true, prometheus.NewRegistry()).(*metrics.Metrics)
	require.True(t, ok)

	repo := allowlist.NewMemoryRepository()
	s := NewAllowlistStrategy(repo, logging.Nop(), m)
	ctx := context.Background()

	require.NoError(t, s.OnIssue(ctx, "1", "live", t0.Add(time.Hour), ""))
	require.NoError(t, s.OnIssue(ctx, "1", "old", t0.Add(-time.Hour), ""))

	s.IsAllowlisted(ctx, "1", "live", t0)
	s.IsAllowlisted(ctx, "1", "old", t0)
	s.IsAllowlisted(ctx, "1", "nope", t0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokensIssuedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllowlistDecisionsTotal.WithLabelValues(metrics.DecisionAllowed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllowlistDecisionsTotal.WithLabelValues(metrics.DecisionExpired)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllowlistDecisionsTotal.WithLabelValues(metrics.DecisionMissing)))
}
