package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeSavesModifiedOnClose(t *testing.T) {
	a := newFakeProduct(10, "Shirt", "5.00")
	env := newTestEnv(a)
	scope := NewScope()
	env.deps.Scope = scope
	ctx := context.Background()

	cart := New(KindCart, env.deps)
	cart.SetCurrency("USD")
	_, _, err := cart.AddProduct(ctx, a, 1)
	require.NoError(t, err)
	require.True(t, cart.IsModified())

	require.NoError(t, scope.Close(ctx))
	assert.False(t, cart.IsModified())
	assert.Len(t, env.storage.collections, 1)
}

func TestScopeSkipsSavedAndLockedCollections(t *testing.T) {
	a := newFakeProduct(10, "Shirt", "5.00")
	env := newTestEnv(a)
	scope := NewScope()
	env.deps.Scope = scope
	ctx := context.Background()

	saved := New(KindCart, env.deps)
	saved.SetCurrency("USD")
	_, _, _ = saved.AddProduct(ctx, a, 1)
	_, err := saved.Save(ctx, false)
	require.NoError(t, err)

	locked := New(KindOrder, env.deps)
	locked.SetCurrency("USD")
	_, _, _ = locked.AddProduct(ctx, a, 1)
	_, err = locked.Lock(ctx)
	require.NoError(t, err)

	updatedAt := env.storage.collections[saved.ID()].UpdatedAt
	require.NoError(t, scope.Close(ctx))
	assert.Equal(t, updatedAt, env.storage.collections[saved.ID()].UpdatedAt)
}

func TestScopeCloseIsIdempotentAndNilSafe(t *testing.T) {
	ctx := context.Background()

	var nilScope *Scope
	nilScope.Track(nil)
	require.NoError(t, nilScope.Close(ctx))

	scope := NewScope()
	require.NoError(t, scope.Close(ctx))
	require.NoError(t, scope.Close(ctx))

	// Tracking after close is a no-op.
	env := newTestEnv()
	env.deps.Scope = scope
	cart := New(KindCart, env.deps)
	cart.SetCurrency("USD")
	require.NoError(t, scope.Close(ctx))
	assert.True(t, cart.IsModified())
}
