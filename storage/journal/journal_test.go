package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tastefun/core/types"
)

type testEvent struct {
	kind  string
	attrs map[string]string
}

func (e testEvent) EventType() string { return e.kind }

func (e testEvent) Event() *types.Event {
	return &types.Event{Type: e.kind, Attributes: e.attrs}
}

func openTest(t *testing.T, path string) *Journal {
	t.Helper()
	j, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	return j
}

func TestAppendAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j := openTest(t, path)

	idea := map[string]string{"initiator": "0x11", "ideaId": "1", "amount": "5"}
	theme := map[string]string{"creator": "0xc1", "themeId": "2"}
	j.Emit(testEvent{kind: "ideas.vote.cast", attrs: idea})
	j.Emit(testEvent{kind: "market.tokens.swapped", attrs: theme})
	rec, err := j.Append(context.Background(), testEvent{kind: "ideas.vote.cast", attrs: idea})
	require.NoError(t, err)
	require.Equal(t, uint64(3), rec.Sequence)

	all, err := j.Query(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "idea:0x11/1", all[0].Subject)
	require.Equal(t, "5", all[0].Attrs()["amount"])

	votes, err := j.Query(context.Background(), Filter{Type: "ideas.vote.cast", AfterSequence: 1})
	require.NoError(t, err)
	require.Len(t, votes, 1)
	require.Equal(t, uint64(3), votes[0].Sequence)

	themes, err := j.Query(context.Background(), Filter{Subject: "theme:0xc1/2"})
	require.NoError(t, err)
	require.Len(t, themes, 1)
	require.NoError(t, j.Close())

	reopened := openTest(t, path)
	defer reopened.Close()
	next, err := reopened.Append(context.Background(), testEvent{kind: "x", attrs: map[string]string{}})
	require.NoError(t, err)
	require.Equal(t, uint64(4), next.Sequence)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	require.True(t, errors.Is(err, ErrUnknownDriver))
}
