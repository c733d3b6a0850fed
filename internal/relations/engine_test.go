package relations

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/geopal/internal/failure"
	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/journal"
	"github.com/m3rciful/geopal/internal/notify"
)

type memJournal struct{ entries []journal.Entry }

func (m *memJournal) Append(_ context.Context, e journal.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memJournal) kinds() []journal.Kind {
	out := make([]journal.Kind, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Kind)
	}
	return out
}

func setup(t *testing.T, ids ...identity.ID) (*Engine, *identity.Registry, *memJournal) {
	t.Helper()
	reg := identity.NewRegistry()
	for _, id := range ids {
		reg.GetOrRegister(identity.Profile{ID: id, Address: notify.Address(id * 10), Handle: "u" + string(rune('a'+id))})
	}
	j := &memJournal{}
	return NewEngine(reg, j), reg, j
}

func lookup(t *testing.T, reg *identity.Registry, id identity.ID) identity.Person {
	t.Helper()
	p, ok := reg.Lookup(id)
	require.True(t, ok)
	return p
}

func TestSendRequestRecordsBothSides(t *testing.T) {
	eng, reg, _ := setup(t, 1, 2)
	ctx := context.Background()

	sent, err := eng.SendRequest(ctx, 1, 2, "hi", notify.MessageRef{MessageID: 7})
	require.NoError(t, err)

	assert.True(t, sent.Replaced.IsZero())
	assert.Equal(t, sent.PendingRequest, lookup(t, reg, 1).Outgoing[2])
	assert.Equal(t, sent.PendingRequest, lookup(t, reg, 2).Incoming[1])
}

func TestSendRequestUnregisteredReceiver(t *testing.T) {
	eng, reg, j := setup(t, 1)
	_, err := eng.SendRequest(context.Background(), 1, 2, "", notify.MessageRef{})
	assert.ErrorIs(t, err, failure.ErrPeerNotRegistered)
	assert.Empty(t, lookup(t, reg, 1).Outgoing)
	assert.Empty(t, j.entries)
}

func TestSendRequestReplacesPrevious(t *testing.T) {
	eng, reg, j := setup(t, 1, 2)
	ctx := context.Background()
	_, err := eng.SendRequest(ctx, 1, 2, "first", notify.MessageRef{MessageID: 1})
	require.NoError(t, err)
	sent, err := eng.SendRequest(ctx, 1, 2, "second", notify.MessageRef{MessageID: 2})
	require.NoError(t, err)

	assert.Equal(t, notify.MessageRef{MessageID: 1}, sent.Replaced)
	assert.Equal(t, notify.MessageRef{MessageID: 2}, lookup(t, reg, 2).Incoming[1].Anchor)
	assert.Equal(t, "second", lookup(t, reg, 2).Incoming[1].Comment)
	assert.Len(t, lookup(t, reg, 1).Outgoing, 1)
	assert.Equal(t, []journal.Kind{journal.RequestSent, journal.RequestReplaced}, j.kinds())
}

func TestAcceptCreatesSymmetricFriendship(t *testing.T) {
	eng, reg, _ := setup(t, 1, 2)
	ctx := context.Background()
	_, err := eng.SendRequest(ctx, 1, 2, "", notify.MessageRef{MessageID: 3})
	require.NoError(t, err)

	req, err := eng.Accept(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, notify.MessageRef{MessageID: 3}, req.Anchor)

	sender, receiver := lookup(t, reg, 1), lookup(t, reg, 2)
	assert.Empty(t, sender.Outgoing)
	assert.Empty(t, receiver.Incoming)
	assert.True(t, sender.IsFriend(2))
	assert.True(t, receiver.IsFriend(1))
}

func TestDeclineRemovesWithoutFriendship(t *testing.T) {
	eng, reg, _ := setup(t, 1, 2)
	ctx := context.Background()
	_, err := eng.SendRequest(ctx, 1, 2, "", notify.MessageRef{})
	require.NoError(t, err)

	_, err = eng.Decline(ctx, 2, 1)
	require.NoError(t, err)

	sender, receiver := lookup(t, reg, 1), lookup(t, reg, 2)
	assert.Empty(t, sender.Outgoing)
	assert.Empty(t, receiver.Incoming)
	assert.Empty(t, sender.Friends)
	assert.Empty(t, receiver.Friends)
}

func TestAcceptStaleRequestIsNoop(t *testing.T) {
	eng, reg, j := setup(t, 1, 2)
	_, err := eng.Accept(context.Background(), 2, 1)
	assert.ErrorIs(t, err, ErrStaleRequest)
	assert.Empty(t, lookup(t, reg, 1).Friends)
	assert.Empty(t, j.entries)
}

func TestAnswerRejectsNonReceiver(t *testing.T) {
	eng, reg, _ := setup(t, 1, 2)
	ctx := context.Background()
	_, err := eng.SendRequest(ctx, 1, 2, "", notify.MessageRef{})
	require.NoError(t, err)

	_, err = eng.Answer(ctx, 1, 1, 2, true)
	assert.ErrorIs(t, err, ErrNotReceiver)
	assert.Len(t, lookup(t, reg, 2).Incoming, 1)
	assert.Empty(t, lookup(t, reg, 1).Friends)
}

func TestRemoveIsSymmetric(t *testing.T) {
	eng, reg, _ := setup(t, 1, 2)
	ctx := context.Background()
	_, err := eng.SendRequest(ctx, 1, 2, "", notify.MessageRef{})
	require.NoError(t, err)
	_, err = eng.Accept(ctx, 2, 1)
	require.NoError(t, err)

	require.NoError(t, eng.Remove(ctx, 1, 2))
	assert.False(t, lookup(t, reg, 1).IsFriend(2))
	assert.False(t, lookup(t, reg, 2).IsFriend(1))

	assert.ErrorIs(t, eng.Remove(ctx, 1, 2), ErrNotFriends)
}

func TestRemoveRepairsAsymmetricEdge(t *testing.T) {
	eng, reg, _ := setup(t, 1, 2)
	reg.Update(1, func(p *identity.Person) { p.Friends[2] = struct{}{} })

	require.NoError(t, eng.Remove(context.Background(), 2, 1))
	assert.False(t, lookup(t, reg, 1).IsFriend(2))
	assert.False(t, lookup(t, reg, 2).IsFriend(1))
}

func TestFriendsOrderedByHandle(t *testing.T) {
	reg := identity.NewRegistry()
	for _, p := range []identity.Profile{
		{ID: 1, Handle: "me"},
		{ID: 2, Handle: "zed"},
		{ID: 3, Handle: "Bob"},
		{ID: 4, Handle: "amy"},
	} {
		reg.GetOrRegister(p)
	}
	reg.Update(1, func(p *identity.Person) {
		for _, id := range []identity.ID{2, 3, 4} {
			p.Friends[id] = struct{}{}
		}
	})

	var handles []string
	for _, f := range NewEngine(reg, nil).Friends(1) {
		handles = append(handles, f.Handle)
	}
	if diff := cmp.Diff([]string{"amy", "Bob", "zed"}, handles); diff != "" {
		t.Fatalf("Friends order mismatch (-want +got):\n%s", diff)
	}
}
