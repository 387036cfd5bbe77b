package request

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/entities/person"
	"github.com/leapstack-labs/leapconnect/pkg/entity"
	"github.com/leapstack-labs/leapconnect/pkg/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() core.ConnectionConfig {
	return core.ConnectionConfig{
		BaseURL:    "https://api.example.com/v1",
		Username:   "user",
		Password:   "secret",
		CustomerID: "1234",
		AuthMode:   core.AuthModeDisabled,
	}
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	reg := entity.NewRegistry()
	require.NoError(t, reg.Register(person.Definition()))
	return NewBuilder(reg)
}

func constraints(t *testing.T, kv ...string) *core.ConstraintMap {
	t.Helper()
	m := core.NewConstraintMap()
	for i := 0; i+1 < len(kv); i += 2 {
		require.NoError(t, m.Add(kv[i], kv[i+1]))
	}
	return m
}

func TestBuildQuery_IdentifierBecomesPathSegment(t *testing.T) {
	b := newBuilder(t)
	in := constraints(t, "id", "42")

	req, err := b.BuildQuery(person.Name, in, testConfig())
	require.NoError(t, err)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "/v1/customers/1234/people/42", u.Path)
	assert.NotContains(t, u.Query(), "id")
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, core.MediaTypeJSON, req.Accept)
	assert.Empty(t, req.Body)

	_, stillThere := in.Get("id")
	assert.True(t, stillThere, "caller's constraint map must not be modified")
}

func TestBuildQuery_RemainingConstraintsBecomeQueryString(t *testing.T) {
	b := newBuilder(t)

	req, err := b.BuildQuery(person.Name, constraints(t, "id", "42", "status", "active"), testConfig())
	require.NoError(t, err)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "/v1/customers/1234/people/42", u.Path)
	assert.Equal(t, url.Values{"status": {"active"}}, u.Query())
}

func TestBuildQuery_IdentifierAlias(t *testing.T) {
	b := newBuilder(t)

	req, err := b.BuildQuery(person.Name, constraints(t, "peopleId", "7"), testConfig())
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/customers/1234/people/7", req.URL)
}

func TestBuildQuery_IdentifierGivenTwice(t *testing.T) {
	b := newBuilder(t)

	_, err := b.BuildQuery(person.Name, constraints(t, "peopleId", "7", "id", "8"), testConfig())
	var buildErr *core.BuildError
	require.ErrorAs(t, err, &buildErr)
}

func TestBuildQuery_WithoutIdentifierAddressesCollection(t *testing.T) {
	b := newBuilder(t)

	req, err := b.BuildQuery(person.Name, constraints(t, "lastname", "Lovelace", "email", "a@b.c"), testConfig())
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/customers/1234/people?email=a%40b.c&lastname=Lovelace", req.URL)

	req, err = b.BuildQuery(person.Name, core.NewConstraintMap(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/customers/1234/people", req.URL)
}

func TestBuildQuery_EscapesPathSegments(t *testing.T) {
	b := newBuilder(t)
	cfg := testConfig()
	cfg.CustomerID = "a b"

	req, err := b.BuildQuery(person.Name, constraints(t, "id", "x/y"), cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/customers/a%20b/people/x%2Fy", req.URL)
}

func TestBuildQuery_AuthDecision(t *testing.T) {
	b := newBuilder(t)

	req, err := b.BuildQuery(person.Name, nil, testConfig())
	require.NoError(t, err)
	assert.Equal(t, core.AuthBasic, req.Auth.Kind)
	require.NotNil(t, req.Auth.Credentials)
	assert.Equal(t, "user", req.Auth.Credentials.Username)

	cfg := testConfig()
	cfg.AuthMode = core.AuthModeEnabled
	req, err = b.BuildQuery(person.Name, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, core.AuthSigned, req.Auth.Kind)
	assert.Nil(t, req.Auth.Credentials)
}

func TestBuildCreate(t *testing.T) {
	b := newBuilder(t)

	req, err := b.BuildCreate(person.Name, mapping.Wire{"firstname": "Ada"}, testConfig())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://api.example.com/v1/customers/1234/people", req.URL)
	assert.Equal(t, core.MediaTypeJSON, req.ContentType)
	assert.Equal(t, core.MediaTypeJSON, req.Accept)

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, map[string]any{"firstname": "Ada"}, body)
}

func TestBuild_UnknownEntityType(t *testing.T) {
	b := newBuilder(t)

	_, err := b.BuildQuery("Job", nil, testConfig())
	var entErr *core.UnsupportedEntityTypeError
	require.ErrorAs(t, err, &entErr)
	assert.Equal(t, "Job", entErr.EntityType)
	assert.Equal(t, []string{person.Name}, entErr.Available)

	_, err = b.BuildCreate("Job", mapping.Wire{}, testConfig())
	require.ErrorAs(t, err, &entErr)
}

func TestBuild_UnknownPlaceholder(t *testing.T) {
	reg := entity.NewRegistry()
	require.NoError(t, reg.Register(&entity.Definition{
		Name:           "Job",
		CollectionPath: "/tenants/{tenantId}/jobs",
		Operations:     []core.OperationKind{core.OperationQuery},
	}))

	_, err := NewBuilder(reg).BuildQuery("Job", nil, testConfig())
	var buildErr *core.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, err.Error(), "tenantId")
}

func TestBuild_RelativeBaseURL(t *testing.T) {
	cfg := testConfig()
	cfg.BaseURL = "api.example.com"

	_, err := newBuilder(t).BuildQuery(person.Name, nil, cfg)
	var buildErr *core.BuildError
	require.ErrorAs(t, err, &buildErr)
}

func TestBuild_BaseURLWithQueryOrFragment(t *testing.T) {
	for _, base := range []string{
		"https://api.example.com/v1?x=1",
		"https://api.example.com/v1?",
		"https://api.example.com/v1#top",
	} {
		t.Run(base, func(t *testing.T) {
			cfg := testConfig()
			cfg.BaseURL = base
			b := newBuilder(t)

			_, err := b.BuildQuery(person.Name, constraints(t, "id", "42"), cfg)
			var buildErr *core.BuildError
			require.ErrorAs(t, err, &buildErr)
			assert.Contains(t, err.Error(), "query or fragment")

			_, err = b.BuildCreate(person.Name, mapping.Wire{"firstname": "Ada"}, cfg)
			require.ErrorAs(t, err, &buildErr)
		})
	}
}

func TestBuild_BaseURLPathIsJoined(t *testing.T) {
	b := newBuilder(t)

	cfg := testConfig()
	cfg.BaseURL = "https://api.example.com/v1/"
	req, err := b.BuildQuery(person.Name, constraints(t, "id", "42", "status", "active"), cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/customers/1234/people/42?status=active", req.URL)

	cfg.BaseURL = "https://api.example.com/tenants/a%2Fb"
	req, err = b.BuildCreate(person.Name, mapping.Wire{"firstname": "Ada"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/tenants/a%2Fb/customers/1234/people", req.URL)
}
