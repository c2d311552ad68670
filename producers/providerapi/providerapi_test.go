package providerapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meetsentinel/meetsentinel/models"
)

type fakeTokens struct {
	rec *models.TokenRecord
	err error
}

func (f *fakeTokens) GetValidToken(_ context.Context, _ string) (*models.TokenRecord, error) {
	return f.rec, f.err
}

func TestFetch(t *testing.T) {
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")

		fmt.Fprintf(w, `{"events":[
			{"id":"g1","title":"Planning","start_time":%q},
			{"id":"g2","title":"No Start"}
		]}`, time.Now().Add(time.Hour).Format(time.RFC3339))
	}))
	defer srv.Close()

	tokens := &fakeTokens{rec: &models.TokenRecord{
		Provider:    "google",
		AccessToken: "access-1",
		Connected:   true,
	}}

	api := New("google", srv.URL, models.SourceGoogleAPI, tokens, zap.NewNop())

	events, err := api.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer access-1", gotAuth)
	require.Len(t, events, 1)
	assert.Equal(t, "Planning", events[0].Title)
	assert.Equal(t, models.SourceGoogleAPI, events[0].Source)
}

func TestFetchNotConnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("endpoint must not be called without a token")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	api := New("outlook", srv.URL, models.SourceOutlookAPI, &fakeTokens{}, zap.NewNop())

	events, err := api.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tokens := &fakeTokens{rec: &models.TokenRecord{Provider: "google", AccessToken: "a", Connected: true}}

	api := New("google", srv.URL, models.SourceGoogleAPI, tokens, zap.NewNop())

	_, err := api.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
