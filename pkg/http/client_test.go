package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndParseRawAndJSON(t *testing.T) {
	var gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody, gotType = string(b), r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"regime":"bull","n":` + r.URL.Query().Get("n") + `}`))
	}))
	defer srv.Close()

	c := NewClient()
	var raw []byte
	require.NoError(t, c.SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL,
		QueryParams: map[string][]string{"n": {"3"}},
	}, &raw))
	assert.JSONEq(t, `{"regime":"bull","n":3}`, string(raw))

	var out struct {
		Regime string `json:"regime"`
		N      int    `json:"n"`
	}
	require.NoError(t, c.SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    srv.URL + "?n=7",
		Body:   map[string]int{"limit": 1},
	}, &out))
	assert.Equal(t, "bull", out.Regime)
	assert.Equal(t, 7, out.N)
	assert.JSONEq(t, `{"limit":1}`, gotBody)
	assert.Equal(t, "application/json", gotType)
}

func TestSendAndParseStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "upstream down", se.Body)
}

func TestSendAndParseMaxBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	var raw []byte
	require.NoError(t, NewClient(WithMaxBody(4)).SendAndParse(context.Background(),
		&RequestOptions{Method: MethodGet, URL: srv.URL}, &raw))
	assert.Equal(t, "0123", string(raw))
}
