package dispatch_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/leapstack-labs/leapconnect/internal/testutil"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/dispatch"
	"github.com/leapstack-labs/leapconnect/pkg/entities/person"
	"github.com/leapstack-labs/leapconnect/pkg/entity"
	"github.com/leapstack-labs/leapconnect/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() core.ConnectionConfig {
	return core.ConnectionConfig{
		BaseURL:    "https://api.example.com/",
		Username:   "user",
		Password:   "secret",
		CustomerID: "1234",
		AuthMode:   core.AuthModeDisabled,
	}
}

func newDispatcher(t *testing.T, stub *testutil.StubTransport, journal dispatch.Journal) *dispatch.Dispatcher {
	t.Helper()
	reg := entity.NewRegistry()
	require.NoError(t, reg.Register(person.Definition()))
	return dispatch.New(dispatch.Config{
		Registry:  reg,
		Transport: stub,
		Journal:   journal,
		Logger:    testutil.NewTestLogger(t),
	})
}

func connected(t *testing.T, stub *testutil.StubTransport) *dispatch.Dispatcher {
	t.Helper()
	d := newDispatcher(t, stub, nil)
	require.NoError(t, d.Connect(context.Background(), testConfig()))
	return d
}

func TestConnect_Lifecycle(t *testing.T) {
	d := newDispatcher(t, &testutil.StubTransport{}, nil)
	assert.False(t, d.IsConnected())

	require.NoError(t, d.Connect(context.Background(), testConfig()))
	assert.True(t, d.IsConnected())
	assert.NotEmpty(t, d.ConnectionID())

	d.Disconnect()
	assert.False(t, d.IsConnected())
	assert.Empty(t, d.ConnectionID())
}

func TestConnect_InvalidConfigKeepsState(t *testing.T) {
	d := newDispatcher(t, &testutil.StubTransport{}, nil)

	cfg := testConfig()
	cfg.CustomerID = ""
	err := d.Connect(context.Background(), cfg)

	var cfgErr *core.InvalidConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "A value is required for 'Customer Id'", err.Error())
	assert.False(t, d.IsConnected())
}

func TestConnectProperties(t *testing.T) {
	d := newDispatcher(t, &testutil.StubTransport{}, nil)
	err := d.ConnectProperties(context.Background(), map[string]string{
		"BaseUrl":    "https://api.example.com",
		"Username":   "user",
		"Password":   "secret",
		"CustomerId": "1234",
		"HMAC":       "Enabled",
	})
	require.NoError(t, err)
	assert.True(t, d.IsConnected())
}

func TestOperations_RequireConnect(t *testing.T) {
	stub := &testutil.StubTransport{}
	d := newDispatcher(t, stub, nil)
	ctx := context.Background()

	_, err := d.Query(ctx, person.Name, core.Eq("id", "42"))
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = d.Create(ctx, core.NewRecord(person.Name).Set("firstname", "Ada"))
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = d.Execute(ctx, dispatch.Operation{Kind: core.OperationDelete, EntityType: person.Name})
	assert.ErrorIs(t, err, core.ErrNotConnected)

	assert.Empty(t, stub.Requests())
}

func TestQuery_ByIdentifier(t *testing.T) {
	stub := &testutil.StubTransport{Handler: testutil.JSONResponse(http.StatusOK,
		`{"firstname":"Ada","lastname":"Lovelace","folder":{"id":"C1","value":"Candidate"},"location":"ignored?"}`)}
	d := connected(t, stub)

	records, err := d.Query(context.Background(), person.Name, core.And(
		core.Eq("Person.id", "42"),
		core.Eq("status", "active"),
	))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ada", records[0].Text("firstname"))
	assert.Equal(t, "Candidate", records[0].Object("folder").Text("value"))

	reqs := stub.Requests()
	require.Len(t, reqs, 1)
	u, err := url.Parse(reqs[0].URL)
	require.NoError(t, err)
	assert.Equal(t, "/customers/1234/people/42", u.Path)
	assert.Equal(t, url.Values{"status": {"active"}}, u.Query())
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, core.AuthBasic, reqs[0].Auth.Kind)
}

func TestQuery_ListDecodesArray(t *testing.T) {
	stub := &testutil.StubTransport{Handler: testutil.JSONResponse(http.StatusOK,
		`[{"firstname":"Ada"},{"firstname":"Grace"}]`)}
	d := connected(t, stub)

	records, err := d.Query(context.Background(), person.Name, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Grace", records[1].Text("firstname"))
	assert.Equal(t, "https://api.example.com/customers/1234/people", stub.Requests()[0].URL)
}

func TestQuery_ValidationErrorsSkipTransport(t *testing.T) {
	tests := []struct {
		name       string
		entityType string
		filter     core.Expression
		check      func(t *testing.T, err error)
	}{
		{
			name:       "unknown entity",
			entityType: "Job",
			filter:     core.Eq("id", "1"),
			check: func(t *testing.T, err error) {
				var e *core.UnsupportedEntityTypeError
				require.ErrorAs(t, err, &e)
			},
		},
		{
			name:       "or filter",
			entityType: person.Name,
			filter:     &core.Logical{Operator: core.OpOr, Left: core.Eq("a", "1"), Right: core.Eq("b", "2")},
			check: func(t *testing.T, err error) {
				var e *core.UnsupportedOperatorError
				require.ErrorAs(t, err, &e)
			},
		},
		{
			name:       "duplicate key",
			entityType: person.Name,
			filter:     core.And(core.Eq("id", "1"), core.Eq("Person.id", "2")),
			check: func(t *testing.T, err error) {
				var e *core.DuplicateConstraintKeyError
				require.ErrorAs(t, err, &e)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &testutil.StubTransport{}
			d := connected(t, stub)

			_, err := d.Query(context.Background(), tt.entityType, tt.filter)
			tt.check(t, err)
			assert.Empty(t, stub.Requests())
		})
	}
}

func TestQuery_TransportFailure(t *testing.T) {
	cause := &transport.StatusError{Status: http.StatusInternalServerError, Body: "boom"}
	stub := &testutil.StubTransport{Handler: func(*core.Request) (*core.Response, error) {
		return &core.Response{Status: http.StatusInternalServerError}, cause
	}}
	d := connected(t, stub)

	_, err := d.Query(context.Background(), person.Name, core.Eq("id", "42"))

	var remoteErr *core.RemoteRequestError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, person.Name, remoteErr.EntityType)
	assert.Equal(t, core.OperationQuery, remoteErr.Operation)
	assert.Equal(t, http.StatusInternalServerError, remoteErr.Status)
	assert.ErrorIs(t, err, cause)
	stage, _ := core.StageOf(err)
	assert.Equal(t, core.StageTransport, stage)
}

func TestQuery_UndecodableBody(t *testing.T) {
	stub := &testutil.StubTransport{Handler: testutil.JSONResponse(http.StatusOK, `not json`)}
	d := connected(t, stub)

	_, err := d.Query(context.Background(), person.Name, core.Eq("id", "42"))
	var remoteErr *core.RemoteRequestError
	require.ErrorAs(t, err, &remoteErr)
}

func TestCreate_LocationHeader(t *testing.T) {
	stub := &testutil.StubTransport{Handler: func(req *core.Request) (*core.Response, error) {
		h := http.Header{}
		h.Set("Location", "https://api.example.com/customers/1234/people/99")
		return &core.Response{Status: http.StatusCreated, Header: h}, nil
	}}
	d := connected(t, stub)

	rec := core.NewRecord(person.Name).Set("firstname", "Ada").Set("lastname", "Lovelace")
	res, err := d.Create(context.Background(), rec)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.ObjectsAffected)
	require.Len(t, res.Output, 1)
	assert.Equal(t, "https://api.example.com/customers/1234/people/99", res.Output[0].Text("location"))

	reqs := stub.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "https://api.example.com/customers/1234/people", reqs[0].URL)
	assert.JSONEq(t, `{"firstname":"Ada","lastname":"Lovelace"}`, string(reqs[0].Body))
}

func TestCreate_JSONBodyAndPlainLocator(t *testing.T) {
	t.Run("json object", func(t *testing.T) {
		stub := &testutil.StubTransport{Handler: testutil.JSONResponse(http.StatusCreated,
			`{"firstname":"Ada","email":"ada@example.com"}`)}
		d := connected(t, stub)

		res, err := d.Create(context.Background(), core.NewRecord(person.Name).Set("firstname", "Ada"))
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", res.Output[0].Text("email"))
		_, hasLocation := res.Output[0].Get("location")
		assert.False(t, hasLocation)
	})

	t.Run("plain text body", func(t *testing.T) {
		stub := &testutil.StubTransport{Handler: func(*core.Request) (*core.Response, error) {
			return &core.Response{Status: http.StatusCreated, Body: []byte(" /customers/1234/people/7\n")}, nil
		}}
		d := connected(t, stub)

		res, err := d.Create(context.Background(), core.NewRecord(person.Name).Set("firstname", "Ada"))
		require.NoError(t, err)
		assert.Equal(t, "/customers/1234/people/7", res.Output[0].Text("location"))
	})
}

func TestCreate_TransportFailure(t *testing.T) {
	t.Run("status error", func(t *testing.T) {
		cause := &transport.StatusError{Status: http.StatusBadRequest, Body: "email is invalid"}
		stub := &testutil.StubTransport{Handler: func(*core.Request) (*core.Response, error) {
			return &core.Response{Status: http.StatusBadRequest}, cause
		}}
		journal := &testutil.MemoryJournal{}
		d := newDispatcher(t, stub, journal)
		require.NoError(t, d.Connect(context.Background(), testConfig()))

		res, err := d.Create(context.Background(), core.NewRecord(person.Name).Set("firstname", "Ada"))
		assert.Nil(t, res)

		var remoteErr *core.RemoteRequestError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, person.Name, remoteErr.EntityType)
		assert.Equal(t, core.OperationCreate, remoteErr.Operation)
		assert.Equal(t, http.StatusBadRequest, remoteErr.Status)
		assert.ErrorIs(t, err, cause)
		stage, ok := core.StageOf(err)
		require.True(t, ok)
		assert.Equal(t, core.StageTransport, stage)

		entries := journal.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, core.OperationCreate, entries[0].Operation)
		assert.Equal(t, http.MethodPost, entries[0].Method)
		assert.Equal(t, http.StatusBadRequest, entries[0].Status)
		assert.ErrorIs(t, entries[0].Err, cause)
	})

	t.Run("connection error", func(t *testing.T) {
		cause := errors.New("conn reset")
		stub := &testutil.StubTransport{Handler: func(*core.Request) (*core.Response, error) {
			return nil, cause
		}}
		journal := &testutil.MemoryJournal{}
		d := newDispatcher(t, stub, journal)
		require.NoError(t, d.Connect(context.Background(), testConfig()))

		_, err := d.Create(context.Background(), core.NewRecord(person.Name).Set("firstname", "Ada"))

		var remoteErr *core.RemoteRequestError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, core.OperationCreate, remoteErr.Operation)
		assert.Zero(t, remoteErr.Status)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "error on create for Person: conn reset", err.Error())

		entries := journal.Entries()
		require.Len(t, entries, 1)
		assert.Zero(t, entries[0].Status)
		assert.ErrorIs(t, entries[0].Err, cause)
	})
}

func TestCreate_ValidationErrorsSkipTransport(t *testing.T) {
	stub := &testutil.StubTransport{}
	d := connected(t, stub)
	ctx := context.Background()

	_, err := d.Create(ctx, core.NewRecord("Job").Set("title", "x"))
	var entErr *core.UnsupportedEntityTypeError
	require.ErrorAs(t, err, &entErr)

	_, err = d.Create(ctx, core.NewRecord(person.Name).Set("firstname", 42))
	var mapErr *core.MappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, "firstname", mapErr.Field)

	_, err = d.Create(ctx, nil)
	require.ErrorAs(t, err, &entErr)

	assert.Empty(t, stub.Requests())
}

func TestExecute(t *testing.T) {
	stub := &testutil.StubTransport{Handler: testutil.JSONResponse(http.StatusOK, `{"firstname":"Ada"}`)}
	d := connected(t, stub)
	ctx := context.Background()

	res, err := d.Execute(ctx, dispatch.Operation{Kind: core.OperationQuery, EntityType: person.Name, Filter: core.Eq("id", "1")})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Output, 1)

	res, err = d.Execute(ctx, dispatch.Operation{
		Kind:   core.OperationCreateWith,
		Record: core.NewRecord(person.Name).Set("firstname", "Ada"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ObjectsAffected)

	for _, kind := range []core.OperationKind{core.OperationUpdate, core.OperationDelete, "Upsert"} {
		_, err = d.Execute(ctx, dispatch.Operation{Kind: kind, EntityType: person.Name})
		var opErr *core.UnsupportedOperationError
		require.ErrorAs(t, err, &opErr, "kind %s", kind)
		assert.Equal(t, kind, opErr.Operation)
	}
}

func TestJournal_RecordsRequests(t *testing.T) {
	journal := &testutil.MemoryJournal{Err: errors.New("disk full")}
	stub := &testutil.StubTransport{Handler: testutil.JSONResponse(http.StatusOK, `[]`)}
	d := newDispatcher(t, stub, journal)
	require.NoError(t, d.Connect(context.Background(), testConfig()))

	records, err := d.Query(context.Background(), person.Name, nil)
	require.NoError(t, err, "journal failures must not fail the operation")
	assert.Empty(t, records)

	entries := journal.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, d.ConnectionID(), entries[0].ConnectionID)
	assert.Equal(t, person.Name, entries[0].EntityType)
	assert.Equal(t, core.OperationQuery, entries[0].Operation)
	assert.Equal(t, http.StatusOK, entries[0].Status)
	assert.NoError(t, entries[0].Err)
}

func TestDispatcher_ConcurrentQueries(t *testing.T) {
	stub := &testutil.StubTransport{Handler: testutil.JSONResponse(http.StatusOK, `{"firstname":"Ada"}`)}
	d := connected(t, stub)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Query(context.Background(), person.Name, core.Eq("id", "1"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, stub.Requests(), 16)
}
