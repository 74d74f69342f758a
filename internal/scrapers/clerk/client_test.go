package clerk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clerkServer(t *testing.T, tokenPage, resultPage string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: ".AspNetCore.Antiforgery", Value: "cookie-value", Path: "/", HttpOnly: true})
			w.Write([]byte(tokenPage))
			return
		}

		cookie, err := r.Cookie(".AspNetCore.Antiforgery")
		if !assert.NoError(t, err) || cookie.Value != "cookie-value" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "CfDJ8Nq-token_value", r.PostForm.Get(fieldToken))
		assert.Equal(t, "16-10-421-053-0000", r.PostForm.Get(fieldPin))
		w.Write([]byte(resultPage))
	}))
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(Options{
		BaseUrl: server.URL,
		Session: session.Options{
			Tel:     &telemetry.RecorderAPI{},
			Limiter: session.NewLimiter(1000, 1000),
		},
	})
}

func TestFetch(t *testing.T) {
	server := clerkServer(t, readTestdata(t, "token.html"), readTestdata(t, "result.html"))
	defer server.Close()

	result, err := newTestClient(server).Fetch(context.Background(), testPin)
	require.NoError(t, err)
	require.Equal(t, []session.State{
		StateInit, StateTokenExtracted, StateSubmitted, StateDone,
	}, result.States)
	require.Contains(t, result.HTML, "Sold Taxes")
}

func TestFetchMissingToken(t *testing.T) {
	server := clerkServer(t, "<html><body>down for maintenance</body></html>", "")
	defer server.Close()

	_, err := newTestClient(server).Fetch(context.Background(), testPin)
	require.Error(t, err)
	require.Equal(t, property.CodeParseError, property.CodeOf(err))
}

func TestSourceLookupNotFound(t *testing.T) {
	server := clerkServer(t, readTestdata(t, "token.html"), readTestdata(t, "not_found.html"))
	defer server.Close()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	source := NewSource(newTestClient(server), chrono.NewFakeTime(now))
	record, err := source.Lookup(context.Background(), testPin)
	require.NoError(t, err)
	require.Equal(t, property.CodeNotFound, record.ErrorCode)
	require.Equal(t, now, record.FetchedAt)
}

func TestFetchCancelled(t *testing.T) {
	server := clerkServer(t, readTestdata(t, "token.html"), readTestdata(t, "result.html"))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(server).Fetch(ctx, testPin)
	require.ErrorIs(t, err, context.Canceled)
}
