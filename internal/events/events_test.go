package events

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wexcommerce/internal/domain"
)

type recorder struct {
	got []domain.OrderEvent
	err error
}

func (r *recorder) Publish(_ context.Context, ev domain.OrderEvent) error {
	r.got = append(r.got, ev)
	return r.err
}

func TestFanout_PublishesToAllAndJoinsErrors(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{err: errors.New("broker down")}

	err := Fanout{failing, ok, Noop{}}.Publish(context.Background(), domain.OrderEvent{OrderID: "o-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, ok.got, 1)
	assert.Len(t, failing.got, 1)
}

func TestHub_BroadcastsToSockets(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), domain.OrderEvent{
		Type:    domain.EventOrderConfirmed,
		OrderID: "o-1",
		Status:  domain.OrderConfirmed,
	}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev domain.OrderEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "o-1", ev.OrderID)
	assert.Equal(t, domain.EventOrderConfirmed, ev.Type)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsForeignOrigins(t *testing.T) {
	hub := NewHub([]string{"http://admin.local"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.local"}})
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Clients())
}
