package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_BareChannelID(t *testing.T) {
	res, err := NewResolver(time.Second).Resolve(context.Background(), "UCabcdefghijklmnopqrstuv")
	require.NoError(t, err)
	assert.Equal(t, "UCabcdefghijklmnopqrstuv", res.ChannelID)
}

func TestResolve_ChannelURL(t *testing.T) {
	res, err := NewResolver(time.Second).Resolve(context.Background(),
		"https://www.youtube.com/channel/UCabcdefghijklmnopqrstuv")
	require.NoError(t, err)
	assert.Equal(t, "UCabcdefghijklmnopqrstuv", res.ChannelID)
}

func TestResolve_FetchesPageForHandle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		_, _ = w.Write([]byte(`<html><head>
			<meta itemprop="channelId" content="UCabcdefghijklmnopqrstuv">
			</head><body>{"author":"Finance Talks"}</body></html>`))
	}))
	defer server.Close()

	res, err := NewResolver(time.Second).Resolve(context.Background(), server.URL+"/@financetalks")
	require.NoError(t, err)
	assert.Equal(t, "UCabcdefghijklmnopqrstuv", res.ChannelID)
	assert.Equal(t, "Finance Talks", res.Name)
}

func TestResolve_EmbeddedJSONPattern(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`var data = {"channelId":"UCabcdefghijklmnopqrstuv","other":1};`))
	}))
	defer server.Close()

	res, err := NewResolver(time.Second).Resolve(context.Background(), server.URL+"/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "UCabcdefghijklmnopqrstuv", res.ChannelID)
}

func TestResolve_NoChannelIDInPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>nothing useful</html>`))
	}))
	defer server.Close()

	_, err := NewResolver(time.Second).Resolve(context.Background(), server.URL+"/@unknown")
	assert.Error(t, err)
}

func TestResolve_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewResolver(time.Second).Resolve(context.Background(), server.URL+"/@gone")
	assert.Error(t, err)
}
