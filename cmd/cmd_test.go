package cmd

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"cardbase/config"
	"cardbase/model"
	"cardbase/service"
)

func TestFilterSets(t *testing.T) {
	sets := []config.ScrapeSet{{Prefix: "ST01", Count: 20}, {Prefix: "GD01", Count: 150}, {Prefix: "T", Count: 50}}
	assert.Equal(t, []config.ScrapeSet{{Prefix: "GD01", Count: 150}, {Prefix: "T", Count: 50}}, filterSets(sets, []string{"gd01", "t"}))
	assert.Empty(t, filterSets(sets, []string{"ST99"}))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "scrape", "import", "migrate"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.Error(t, importCmd.Args(importCmd, nil))
}

type countingStore struct{ calls atomic.Int32 }

func (s *countingStore) ListCards(context.Context, *model.FilterState) ([]model.Card, error) {
	s.calls.Add(1)
	return []model.Card{{ID: "ST01-001", Name: "Gundam"}}, nil
}
func (s *countingStore) UpsertCards(context.Context, []model.Card) error { return nil }
func (s *countingStore) DeleteCard(context.Context, string) error        { return nil }
func (s *countingStore) RenameCard(context.Context, string, string) (int, error) {
	return 0, nil
}

func TestRefreshLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	st := &countingStore{}
	catalog, err := service.NewCatalogService(st, "", 4, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refreshLoop(ctx, catalog, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return st.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	snap, err := catalog.Snapshot(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, snap.Revision, uint64(2))
}
