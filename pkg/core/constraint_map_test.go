package core_test

import (
	"testing"

	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintMap_AddKeepsOrder(t *testing.T) {
	m := core.NewConstraintMap()
	require.NoError(t, m.Add("b", "2"))
	require.NoError(t, m.Add("a", "1"))
	require.NoError(t, m.Add("c", "3"))

	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, "b=2,a=1,c=3", m.String())
}

func TestConstraintMap_DuplicateKey(t *testing.T) {
	m := core.NewConstraintMap()
	require.NoError(t, m.Add("id", "1"))

	err := m.Add("id", "2")
	var dupErr *core.DuplicateConstraintKeyError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "id", dupErr.Key)
	assert.Equal(t, "1", dupErr.Existing)
	assert.Equal(t, "2", dupErr.Value)

	v, _ := m.Get("id")
	assert.Equal(t, "1", v, "map must be unchanged after a rejected add")
	assert.Equal(t, 1, m.Len())
}

func TestConstraintMap_Remove(t *testing.T) {
	m := core.NewConstraintMap()
	require.NoError(t, m.Add("a", "1"))
	require.NoError(t, m.Add("b", "2"))

	v, ok := m.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, []string{"b"}, m.Keys())

	_, ok = m.Remove("a")
	assert.False(t, ok)
}

func TestConstraintMap_CloneIsIndependent(t *testing.T) {
	m := core.NewConstraintMap()
	require.NoError(t, m.Add("a", "1"))

	c := m.Clone()
	c.Remove("a")
	require.NoError(t, c.Add("b", "2"))

	assert.Equal(t, []string{"a"}, m.Keys())
	assert.Equal(t, []string{"b"}, c.Keys())
}

func TestConstraintMap_Values(t *testing.T) {
	m := core.NewConstraintMap()
	require.NoError(t, m.Add("status", "active"))
	require.NoError(t, m.Add("email", "a@b.c"))

	assert.Equal(t, "email=a%40b.c&status=active", m.Values().Encode())
}

func TestConstraintMap_NilReceiver(t *testing.T) {
	var m *core.ConstraintMap

	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Keys())
	assert.Empty(t, m.Values())
	assert.Equal(t, "", m.String())
	assert.Equal(t, 0, m.Clone().Len())
}
