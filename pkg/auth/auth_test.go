package auth

import (
	"testing"

	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_DisabledUsesBasic(t *testing.T) {
	d := Select(core.ConnectionConfig{AuthMode: "Disabled", Username: "u", Password: "p"})

	assert.Equal(t, core.AuthBasic, d.Kind)
	require.NotNil(t, d.Credentials)
	assert.Equal(t, "u", d.Credentials.Username)
	assert.Equal(t, "p", d.Credentials.Password)
}

func TestSelect_OtherModesUseSigned(t *testing.T) {
	for _, mode := range []core.AuthMode{"Enabled", "", "disabled", "anything"} {
		t.Run(string(mode), func(t *testing.T) {
			d := Select(core.ConnectionConfig{AuthMode: mode, Username: "u", Password: "p"})
			assert.Equal(t, core.AuthSigned, d.Kind)
			assert.Nil(t, d.Credentials, "signed auth should not carry credentials")
		})
	}
}
