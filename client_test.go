package apic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-apic"
	"github.com/lexfrei/go-apic/api/fabric"
	"github.com/lexfrei/go-apic/internal/testutil"
)

func TestConnect(t *testing.T) {
	t.Parallel()

	fc := testutil.NewFakeController(t, "admin", "secret")

	client, err := apic.Connect(context.Background(), &fabric.ClientConfig{ControllerURL: fc.URL()}, "admin", "secret")
	require.NoError(t, err)

	assert.Equal(t, fc.Token(), client.Session().Token)

	pods, err := client.ListPods(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pods)
}

func TestConnectErrors(t *testing.T) {
	t.Parallel()

	fc := testutil.NewFakeController(t, "admin", "secret")

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()

		_, err := apic.Connect(context.Background(), nil, "admin", "secret")
		assert.Error(t, err)
	})

	t.Run("bad credentials", func(t *testing.T) {
		t.Parallel()

		client, err := apic.Connect(context.Background(), &fabric.ClientConfig{ControllerURL: fc.URL()}, "admin", "nope")
		require.Error(t, err)
		assert.Nil(t, client)
		assert.True(t, fabric.IsAuthError(err))
	})
}
