package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leapstack-labs/leapconnect/internal/testutil"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSigner(t *testing.T, algo string) *transport.Signer {
	t.Helper()
	s, err := transport.NewSigner("key-1", "s3cret", algo)
	require.NoError(t, err)
	s.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func TestExecute_BasicAuth(t *testing.T) {
	var gotUser, gotPass, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"firstname":"Ada"}`)
	}))
	defer srv.Close()

	tr := transport.New(transport.Config{Logger: testutil.NewTestLogger(t)})
	resp, err := tr.Execute(context.Background(), &core.Request{
		Method: http.MethodGet,
		URL:    srv.URL + "/customers/1/people/42",
		Accept: core.MediaTypeJSON,
		Auth: core.AuthDecision{
			Kind:        core.AuthBasic,
			Credentials: &core.Credentials{Username: "user", Password: "pw"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"firstname":"Ada"}`, string(resp.Body))
	assert.Equal(t, "user", gotUser)
	assert.Equal(t, "pw", gotPass)
	assert.Equal(t, core.MediaTypeJSON, gotAccept)
}

func TestExecute_SignedRequestVerifies(t *testing.T) {
	signer := fixedSigner(t, "sha512")
	var verifyErr error
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		verifyErr = signer.Verify(r, body, 0)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Location", "/customers/1/people/99")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	tr := transport.New(transport.Config{Signer: signer, Logger: testutil.NewTestLogger(t)})
	resp, err := tr.Execute(context.Background(), &core.Request{
		Method:      http.MethodPost,
		URL:         srv.URL + "/customers/1/people?x=a%20b",
		ContentType: core.MediaTypeJSON,
		Body:        []byte(`{"firstname":"Ada"}`),
		Auth:        core.AuthDecision{Kind: core.AuthSigned},
	})
	require.NoError(t, err)
	require.NoError(t, verifyErr)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "/customers/1/people/99", resp.Location())
}

func TestExecute_SignedWithoutSigner(t *testing.T) {
	tr := transport.New(transport.Config{})
	_, err := tr.Execute(context.Background(), &core.Request{
		Method: http.MethodGet,
		URL:    "http://127.0.0.1:1/",
		Auth:   core.AuthDecision{Kind: core.AuthSigned},
	})
	assert.ErrorIs(t, err, transport.ErrNoSigner)
}

func TestExecute_BasicWithoutCredentials(t *testing.T) {
	tr := transport.New(transport.Config{})
	_, err := tr.Execute(context.Background(), &core.Request{
		Method: http.MethodGet,
		URL:    "http://127.0.0.1:1/",
		Auth:   core.AuthDecision{Kind: core.AuthBasic},
	})
	assert.ErrorContains(t, err, "without credentials")
}

func TestExecute_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such person", http.StatusNotFound)
	}))
	defer srv.Close()

	tr := transport.New(transport.Config{})
	resp, err := tr.Execute(context.Background(), &core.Request{Method: http.MethodGet, URL: srv.URL})

	var statusErr *transport.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Equal(t, "no such person", statusErr.Body)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestExecute_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := transport.New(transport.Config{}).Execute(ctx, &core.Request{Method: http.MethodGet, URL: srv.URL})
	assert.ErrorIs(t, err, context.Canceled)
}
