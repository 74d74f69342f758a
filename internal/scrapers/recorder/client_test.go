package recorder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type site struct {
	searchPage  string
	resultsPage string
	directPage  string
	searchFails bool
	directHits  atomic.Int32
}

func (s *site) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/Search", func(w http.ResponseWriter, r *http.Request) {
		if s.searchFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(s.searchPage))
	})
	mux.HandleFunc("/Search/SearchByAddress", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "rec-token-1", r.PostForm.Get(fieldToken))
		assert.Equal(t, "01-01-120-006-0000", r.PostForm.Get(fieldSearch))
		w.Write([]byte(s.resultsPage))
	})
	mux.HandleFunc("/Search/ResultByPin", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "01011200060000", r.URL.Query().Get("id1"))
		s.directHits.Add(1)
		w.Write([]byte(s.directPage))
	})
	return mux
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

func TestFetchResolvedLink(t *testing.T) {
	s := &site{
		searchPage:  readTestdata(t, "search.html"),
		resultsPage: readTestdata(t, "search_results.html"),
		directPage:  readTestdata(t, "wide.html"),
	}
	server := httptest.NewServer(s.handler(t))
	defer server.Close()

	result, err := newTestClient(server).Fetch(context.Background(), testPin)
	require.NoError(t, err)
	require.False(t, result.UsedDirect)
	require.Equal(t, []session.State{
		StateInit, StateTokenExtracted, StateSearched, StateLinkResolved, StateDocumentsFetched, StateDone,
	}, result.States)
	require.Contains(t, result.HTML, server.URL+"/Document/Detail?dId=MjQxMjM0NTY3")
}

func TestFetchNoLinkFallsBack(t *testing.T) {
	s := &site{
		searchPage:  readTestdata(t, "search.html"),
		resultsPage: readTestdata(t, "search_empty.html"),
		directPage:  readTestdata(t, "narrow.html"),
	}
	server := httptest.NewServer(s.handler(t))
	defer server.Close()

	result, err := newTestClient(server).Fetch(context.Background(), testPin)
	require.NoError(t, err)
	require.True(t, result.UsedDirect)
	require.Equal(t, []session.State{
		StateInit, StateTokenExtracted, StateSearched, StateDirectFallback, StateDocumentsFetched, StateDone,
	}, result.States)
	require.EqualValues(t, 1, s.directHits.Load())
}

func TestFetchSearchFailureFallsBack(t *testing.T) {
	s := &site{
		searchFails: true,
		directPage:  readTestdata(t, "narrow.html"),
	}
	server := httptest.NewServer(s.handler(t))
	defer server.Close()

	result, err := newTestClient(server).Fetch(context.Background(), testPin)
	require.NoError(t, err)
	require.Equal(t, []session.State{
		StateInit, StateDirectFallback, StateDocumentsFetched, StateDone,
	}, result.States)
}

func TestFetchDirectNotFound(t *testing.T) {
	s := &site{
		searchFails: true,
		directPage:  readTestdata(t, "search_empty.html"),
	}
	server := httptest.NewServer(s.handler(t))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Fetch(context.Background(), testPin)
	require.Error(t, err)
	require.Equal(t, property.CodeNotFound, property.CodeOf(err))

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	record, err := NewSource(client, chrono.NewFakeTime(now)).Lookup(context.Background(), testPin)
	require.NoError(t, err)
	require.True(t, record.Failed())
	require.Equal(t, property.CodeNotFound, record.ErrorCode)
}

func TestDirectURL(t *testing.T) {
	require.Equal(t, "/Search/ResultByPin?id1=01011200060000", DirectURL(testPin))
}
