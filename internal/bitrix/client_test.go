package bitrix

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Options{
		Endpoints: Endpoints{
			BaseURL:           server.URL,
			UserGetSecret:     "s1",
			RecentListSecret:  "s2",
			DialogFetchSecret: "s3",
			OpenLinesSecret:   "s4",
		},
		ActiveMarker:  "открыт",
		RetryAttempts: 1,
		RetryBackoff:  time.Millisecond,
	}, logger.NewNop())
}

func TestListActiveConversations(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/s2/im.recent.list.json", r.URL.Path)
		w.Write([]byte(`{"result":{"items":[
			{"id":"chat7","title":"Вопрос открыт"},
			{"id":"chat3","title":"Открыт новый диалог"},
			{"id":"chat9","title":"closed"},
			{"id":"user12","title":"открыт"},
			{"id":"chat7","title":"Вопрос открыт"}
		]}}`))
	}))

	ids, err := c.ListActiveConversations(context.Background())
	require.NoError(t, err)

	// Only chat-namespace ids with the marker, deduplicated and sorted.
	assert.Equal(t, []string{"chat3", "chat7"}, ids)
}

func TestListActiveConversationsMissingResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"QUERY_LIMIT_EXCEEDED"}`))
	}))

	_, err := c.ListActiveConversations(context.Background())
	assert.ErrorIs(t, err, ErrDataMissing)
}

func TestFetchMessages(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/s3/im.dialog.messages.get", r.URL.Path)
		assert.Equal(t, "chat7", r.URL.Query().Get("DIALOG_ID"))
		assert.Equal(t, "50", r.URL.Query().Get("LIMIT"))
		w.Write([]byte(`{"result":{
			"messages":[
				{"id":1,"author_id":7,"date":"2024-03-01T12:00:00+03:00","text":"hi"},
				{"id":2,"author_id":"9","date":"2024-03-01 12:01:00","text":"hello"}
			],
			"users":[{"id":7,"name":"Anna"},{"id":"9","name":"Гость"}]
		}}`))
	}))

	conv, err := c.FetchMessages(context.Background(), "chat7", 50)
	require.NoError(t, err)

	assert.Equal(t, "chat7", conv.ChatID)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, 7, conv.Messages[0].AuthorID)
	assert.Equal(t, 9, conv.Messages[1].AuthorID)
	assert.Equal(t, "hi", conv.Messages[0].Text)
	require.Len(t, conv.Participants, 2)
	assert.Equal(t, "Anna", conv.Participants[0].Name)
}

func TestFetchMessagesMissingResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, err := c.FetchMessages(context.Background(), "chat7", 10)
	assert.ErrorIs(t, err, ErrDataMissing)
}

func TestResolveUserIdentity(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/s1/user.get.json", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"result":[
			{"ID":"7","NAME":"Anna","LAST_NAME":"Ivanova","EMAIL":"anna@example.com","ACTIVE":true}
		]}`))
	}))

	id := 7
	record, err := c.ResolveUserIdentity(context.Background(), &id, "")
	require.NoError(t, err)

	assert.Equal(t, 7, record.ID)
	assert.Equal(t, "anna@example.com", record.Email)
}

func TestResolveUserIdentityRequiresIdentifier(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	_, err := c.ResolveUserIdentity(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestResolveUserIdentityNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[]}`))
	}))

	id := 404
	_, err := c.ResolveUserIdentity(context.Background(), &id, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveResponsibleOperators(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/s4/imopenlines.dialog.get.json", r.URL.Path)
		w.Write([]byte(`{"result":{"manager_list":[7,9]}}`))
	}))

	operators, err := c.ResolveResponsibleOperators(context.Background(), "chat7")
	require.NoError(t, err)
	assert.Equal(t, []int{7, 9}, operators)
}

func TestResolveResponsibleOperatorsMissingResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))

	_, err := c.ResolveResponsibleOperators(context.Background(), "chat7")
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"result":{"items":[]}}`))
	}))
	defer server.Close()

	c := NewClient(Options{
		Endpoints:     Endpoints{BaseURL: server.URL},
		ActiveMarker:  "открыт",
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	}, logger.NewNop())

	ids, err := c.ListActiveConversations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(Options{
		Endpoints:     Endpoints{BaseURL: server.URL},
		ActiveMarker:  "открыт",
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	}, logger.NewNop())

	_, err := c.ListActiveConversations(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetriesExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(Options{
		Endpoints:     Endpoints{BaseURL: server.URL},
		ActiveMarker:  "открыт",
		RetryAttempts: 2,
		RetryBackoff:  time.Millisecond,
	}, logger.NewNop())

	_, err := c.ListActiveConversations(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTransportErrorOmitsSecretPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	c := NewClient(Options{
		Endpoints: Endpoints{
			BaseURL:          baseURL,
			RecentListSecret: "topsecretpathsegment",
		},
		ActiveMarker:  "открыт",
		RetryAttempts: 2,
		RetryBackoff:  time.Millisecond,
	}, logger.NewNop())

	_, err := c.ListActiveConversations(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	// The webhook path is a credential; a connection failure must not echo it.
	assert.NotContains(t, err.Error(), "topsecretpathsegment")
	assert.NotContains(t, err.Error(), baseURL)
}

func TestEndpointsRedacted(t *testing.T) {
	e := Endpoints{BaseURL: "https://portal.example.com/rest/17/topsecret"}
	assert.Equal(t, "https://portal.example.com/***", e.Redacted())

	bad := Endpoints{BaseURL: "://nope"}
	assert.Equal(t, "<invalid provider url>", bad.Redacted())
}

func TestParseProviderDate(t *testing.T) {
	parsed := parseProviderDate("2024-03-01T12:00:00Z")
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), parsed)

	fallback := parseProviderDate("2024-03-01 12:00:00")
	assert.Equal(t, 2024, fallback.Year())

	assert.True(t, parseProviderDate("garbage").IsZero())
}
