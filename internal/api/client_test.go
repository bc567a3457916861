package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizwire/quizwire/internal/api"
	"github.com/quizwire/quizwire/internal/errors"
)

func TestClientClassifiesErrors(t *testing.T) {
	tests := map[string]struct {
		handler       http.HandlerFunc
		wantCode      errors.Code
		wantTransient bool
	}{
		"service error payload": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"player 42 not found"}`))
			},
			wantCode:      errors.CodeNotFound,
			wantTransient: false,
		},
		"bad request": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"session has ended"}`))
			},
			wantCode:      errors.CodeInvalidArgument,
			wantTransient: false,
		},
		"server fault": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("upstream gone"))
			},
			wantCode:      errors.CodeUnavailable,
			wantTransient: true,
		},
		"malformed success payload": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"started": "not a bool"`))
			},
			wantCode:      errors.CodeInternal,
			wantTransient: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := api.New(api.Config{BaseURL: srv.URL})
			_, err := c.Status(context.Background(), 42)
			require.Error(t, err)

			assert.Equal(t, tt.wantCode, errors.Convert(err).Code)
			assert.Equal(t, tt.wantTransient, errors.IsTransient(err))
		})
	}
}

func TestClientTransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listens anymore

	c := api.New(api.Config{BaseURL: srv.URL})
	_, err := c.Status(context.Background(), 42)
	require.Error(t, err)

	assert.Equal(t, errors.CodeUnavailable, errors.Convert(err).Code)
	assert.True(t, errors.IsTransient(err))
}

func TestClientSendsBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"results":{"active":true,"position":-1,"players":[]}}`))
	}))
	defer srv.Close()

	c := api.New(api.Config{BaseURL: srv.URL, Token: "sekrit"})
	status, err := c.SessionStatus(context.Background(), 123456)
	require.NoError(t, err)

	assert.Equal(t, "Bearer sekrit", got)
	assert.True(t, status.Active)
	assert.Equal(t, -1, status.Position)
}

func TestClientErrorMessageCarriesServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"question 0 is closed"}`))
	}))
	defer srv.Close()

	c := api.New(api.Config{BaseURL: srv.URL})
	err := c.SubmitAnswer(context.Background(), 42, []int64{1})
	require.Error(t, err)

	assert.Contains(t, errors.Convert(err).Message, "question 0 is closed")
}
