package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardbase/config"
	"cardbase/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "cards.db"),
	})
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fixtureCards() []model.Card {
	return []model.Card{
		{ID: "st01-010", Name: "ガンダム", Type: model.TypeUnit, Color: "Blue", Rarity: "LR", ExpansionSet: "ST01", Level: 4, Cost: 3, AP: 3, HP: 4, Zone: "地球", Link: "「アムロ・レイ」", ImageURL: "ST01-010.webp"},
		{ID: "ST01-002", Name: "ザク", Type: model.TypeUnit, Color: "Green", Rarity: "C", ExpansionSet: "ST01", Level: 2, Cost: 1, AP: 2, HP: 1, Zone: "宇宙/地球"},
		{ID: "ST01-011", Name: "アムロ・レイ", Type: model.TypePilot, Color: "Blue", Rarity: "R", ExpansionSet: "ST01", Level: 4, Cost: 1, AP: 2, HP: 1, Traits: "(地球連邦)"},
		{ID: "GD01-001", Name: "ホワイトベース", Type: model.TypeBase, Color: "White", Rarity: "U", ExpansionSet: "GD01", Level: 3, Cost: 2, HP: 5, Zone: "宇宙"},
	}
}

func ids(cards []model.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

func TestUpsertAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertCards(ctx, fixtureCards()))

	cards, err := s.ListCards(ctx, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"GD01-001", "ST01-002", "ST01-010", "ST01-011"}, ids(cards))

	updated := fixtureCards()[1]
	updated.Name = "ザクII"
	updated.Cost = 2
	require.NoError(t, s.UpsertCard(ctx, updated))

	got, err := s.GetCard(ctx, "st01-002")
	require.NoError(t, err)
	assert.Equal(t, "ザクII", got.Name)
	assert.Equal(t, 2, got.Cost)

	_, err = s.GetCard(ctx, "XX-999")
	assert.ErrorIs(t, err, ErrCardNotFound)

	assert.ErrorIs(t, s.UpsertCard(ctx, model.Card{ID: "ST09-001"}), ErrInvalidCard)
}

func TestCardIDShape(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, id := range []string{"../escaped", "ST01/001", `ST01\001`, "ST01-", "-001", "ST01-001.png", "ST01 001", "ST01-00-1"} {
		assert.False(t, ValidID(NormalizeID(id)), id)
		assert.ErrorIs(t, s.UpsertCard(ctx, model.Card{ID: id, Name: "x"}), ErrInvalidCard, id)
	}
	for _, id := range []string{"ST01-001", "gd01-100", "T-001", " P-1 "} {
		assert.True(t, ValidID(NormalizeID(id)), id)
	}

	require.NoError(t, s.UpsertCards(ctx, fixtureCards()))
	_, err := s.RenameCard(ctx, "ST01-002", "../ST01-002")
	assert.ErrorIs(t, err, ErrInvalidCard)
	_, err = s.GetCard(ctx, "ST01-002")
	assert.NoError(t, err)

	err = s.Import(ctx, model.Backup{Cards: []model.Card{{ID: "../X", Name: "x"}}})
	assert.ErrorIs(t, err, ErrInvalidCard)
}

func TestListCardsPrefilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertCards(ctx, fixtureCards()))

	cases := []struct {
		name   string
		filter model.FilterState
		want   []string
	}{
		{"colors", model.FilterState{Colors: []string{"Blue"}}, []string{"ST01-010", "ST01-011"}},
		{"types and cost", model.FilterState{Types: []string{model.TypeUnit}, Costs: []string{"1", "9"}}, []string{"ST01-002"}},
		{"non numeric option", model.FilterState{Levels: []string{"four"}}, nil},
		{"zone substring", model.FilterState{Zones: []string{"地球"}}, []string{"ST01-002", "ST01-010"}},
		{"zone wildcard is literal", model.FilterState{Zones: []string{"%"}}, nil},
		{"hp range", model.FilterState{HPMin: intPtr(4)}, []string{"GD01-001", "ST01-010"}},
		{"sets", model.FilterState{ExpansionSets: []string{"GD01"}}, []string{"GD01-001"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cards, err := s.ListCards(ctx, &c.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, c.want, ids(cards))
		})
	}
}

func intPtr(v int) *int { return &v }

func TestDeleteCardGuard(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertCards(ctx, fixtureCards()))

	_, _, err := s.SaveDeck(ctx, model.Deck{Title: "青単", Cards: model.DeckCards{"ST01-010": 4}})
	require.NoError(t, err)

	err = s.DeleteCard(ctx, "ST01-010")
	var inUse *CardInUseError
	require.True(t, errors.As(err, &inUse))
	assert.Equal(t, []string{"青単"}, inUse.Decks)

	// ST01-01 是 ST01-010 的前缀，不能被误判为引用
	require.NoError(t, s.UpsertCard(ctx, model.Card{ID: "ST01-01", Name: "x"}))
	require.NoError(t, s.DeleteCard(ctx, "ST01-01"))

	require.NoError(t, s.DeleteCard(ctx, "ST01-002"))
	assert.ErrorIs(t, s.DeleteCard(ctx, "ST01-002"), ErrCardNotFound)
}

func TestRenameCard(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertCards(ctx, fixtureCards()))

	deckID, created, err := s.SaveDeck(ctx, model.Deck{Title: "A", Cards: model.DeckCards{"ST01-010": 2, "ST01-002": 1}})
	require.NoError(t, err)
	require.True(t, created)
	_, _, err = s.SaveDeck(ctx, model.Deck{Title: "B", Cards: model.DeckCards{"ST01-002": 4}})
	require.NoError(t, err)

	n, err := s.RenameCard(ctx, "ST01-010", "st01-099")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetCard(ctx, "ST01-010")
	assert.ErrorIs(t, err, ErrCardNotFound)
	renamed, err := s.GetCard(ctx, "ST01-099")
	require.NoError(t, err)
	assert.Equal(t, "ST01-099.webp", renamed.ImageURL)

	deck, err := s.GetDeck(ctx, deckID)
	require.NoError(t, err)
	assert.Equal(t, model.DeckCards{"ST01-099": 2, "ST01-002": 1}, deck.Cards)

	_, err = s.RenameCard(ctx, "ST01-002", "ST01-011")
	assert.ErrorIs(t, err, ErrCardExists)
	_, err = s.RenameCard(ctx, "NOPE-001", "NOPE-002")
	assert.ErrorIs(t, err, ErrCardNotFound)
	_, err = s.RenameCard(ctx, "", "X")
	assert.ErrorIs(t, err, ErrInvalidCard)
}

func TestDeckLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, _, err := s.SaveDeck(ctx, model.Deck{Title: " "})
	assert.ErrorIs(t, err, ErrInvalidDeck)

	thumb := "ST01-010"
	id, created, err := s.SaveDeck(ctx, model.Deck{Title: "テスト", Cards: model.DeckCards{"ST01-010": 4}, ThumbnailID: &thumb})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, id, 36)

	list, err := s.ListDecks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "テスト", list[0].Title)
	require.NotNil(t, list[0].ThumbnailID)
	assert.Equal(t, thumb, *list[0].ThumbnailID)

	_, created, err = s.SaveDeck(ctx, model.Deck{ID: id, Title: "改名", Cards: model.DeckCards{"ST01-002": 1}})
	require.NoError(t, err)
	assert.False(t, created)

	deck, err := s.GetDeck(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "改名", deck.Title)
	assert.Equal(t, model.DeckCards{"ST01-002": 1}, deck.Cards)
	assert.Nil(t, deck.ThumbnailID)
	assert.False(t, deck.CreatedAt.IsZero())

	_, _, err = s.SaveDeck(ctx, model.Deck{ID: "missing", Title: "x", Cards: model.DeckCards{}})
	assert.ErrorIs(t, err, ErrDeckNotFound)

	require.NoError(t, s.DeleteDeck(ctx, id))
	assert.ErrorIs(t, s.DeleteDeck(ctx, id), ErrDeckNotFound)
	_, err = s.GetDeck(ctx, id)
	assert.ErrorIs(t, err, ErrDeckNotFound)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	require.NoError(t, src.UpsertCards(ctx, fixtureCards()))
	_, _, err := src.SaveDeck(ctx, model.Deck{Title: "A", Cards: model.DeckCards{"ST01-010": 2}})
	require.NoError(t, err)

	backup, err := src.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, BackupVersion, backup.Version)
	assert.Len(t, backup.Cards, 4)
	require.Len(t, backup.Decks, 1)

	dst := newTestStore(t)
	require.NoError(t, dst.Import(ctx, backup))
	// 重复导入是幂等的
	require.NoError(t, dst.Import(ctx, backup))

	cards, err := dst.ListCards(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, cards, 4)
	deck, err := dst.GetDeck(ctx, backup.Decks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeckCards{"ST01-010": 2}, deck.Cards)

	bad := model.Backup{Cards: []model.Card{{ID: "ok-1", Name: "ok"}, {ID: "", Name: "broken"}}}
	assert.ErrorIs(t, dst.Import(ctx, bad), ErrInvalidCard)
	_, err = dst.GetCard(ctx, "OK-1")
	assert.ErrorIs(t, err, ErrCardNotFound, "a failed import must not leave partial rows")
}
