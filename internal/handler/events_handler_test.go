package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/pkg/realtime"
)

func TestEventsStream(t *testing.T) {
	broker := realtime.NewBroker(4, nil)
	defer broker.Close()

	router := newTestRouter()
	router.GET("/events", NewEventsHandler(broker, time.Hour).Stream)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?collection=cr_chat_messages", nil)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	reader := bufio.NewReader(res.Body)
	nextEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event:"):
				name = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimPrefix(line, "data:")
			case line == "" && name != "":
				return name, data
			}
		}
	}

	name, _ := nextEvent()
	require.Equal(t, "ready", name)

	broker.Publish(realtime.Event{Collection: realtime.CollectionOccupancy, Op: realtime.OpUpdate, At: time.Now()})
	broker.Publish(realtime.Event{Collection: realtime.CollectionChat, Op: realtime.OpInsert, At: time.Now()})

	name, data := nextEvent()
	assert.Equal(t, "change", name)
	var evt realtime.Event
	require.NoError(t, json.Unmarshal([]byte(data), &evt))
	assert.Equal(t, realtime.CollectionChat, evt.Collection)
	assert.Equal(t, realtime.OpInsert, evt.Op)
}

func TestEventsRejectsUnknownCollection(t *testing.T) {
	router := newTestRouter()
	router.GET("/events", NewEventsHandler(realtime.NewBroker(1, nil), time.Second).Stream)

	resp := performRequest(router, newRequest(http.MethodGet, "/events?collection=grades", nil, ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
