package identity

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrRegisterIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	first := reg.GetOrRegister(Profile{ID: 1, Address: 10, Handle: "ann"})
	second := reg.GetOrRegister(Profile{ID: 1, Address: 99, Handle: "ann_new"})

	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, first.Address, second.Address)
	assert.Equal(t, "ann_new", second.Handle)
}

func TestLookupAbsent(t *testing.T) {
	_, ok := NewRegistry().Lookup(42)
	assert.False(t, ok)
}

func TestLookupReturnsSnapshot(t *testing.T) {
	reg := NewRegistry()
	reg.GetOrRegister(Profile{ID: 1})
	snap, ok := reg.Lookup(1)
	require.True(t, ok)
	snap.Friends[2] = struct{}{}

	again, _ := reg.Lookup(1)
	assert.Empty(t, again.Friends)
}

func TestUpdatePairRequiresBoth(t *testing.T) {
	reg := NewRegistry()
	reg.GetOrRegister(Profile{ID: 1})
	called := false
	ok := reg.UpdatePair(1, 2, func(_, _ *Person) { called = true })
	assert.False(t, ok)
	assert.False(t, called)
}

func TestUpdatePairConcurrentSymmetry(t *testing.T) {
	reg := NewRegistry()
	reg.GetOrRegister(Profile{ID: 1})
	reg.GetOrRegister(Profile{ID: 2})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.UpdatePair(1, 2, func(a, b *Person) {
				a.Friends[b.ID] = struct{}{}
				b.Friends[a.ID] = struct{}{}
			})
		}()
		go func() {
			defer wg.Done()
			reg.UpdatePair(2, 1, func(a, b *Person) {
				delete(a.Friends, b.ID)
				delete(b.Friends, a.ID)
			})
		}()
	}
	wg.Wait()

	a, _ := reg.Lookup(1)
	b, _ := reg.Lookup(2)
	assert.Equal(t, a.IsFriend(2), b.IsFriend(1))
}

func TestFriendIDsSorted(t *testing.T) {
	p := newPerson(Profile{ID: 1})
	for _, id := range []ID{9, 3, 5} {
		p.Friends[id] = struct{}{}
	}
	if diff := cmp.Diff([]ID{3, 5, 9}, p.FriendIDs()); diff != "" {
		t.Fatalf("FriendIDs mismatch (-want +got):\n%s", diff)
	}
}
