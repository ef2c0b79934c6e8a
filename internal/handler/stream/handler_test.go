package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
	chatservice "github.com/zhouzirui/fund-faq/widget/internal/service/chat"
)

type sseEvent struct {
	name  string
	frame Frame
}

func readEvent(t *testing.T, sc *bufio.Scanner) sseEvent {
	t.Helper()
	var evt sseEvent
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			evt.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt.frame))
		case line == "" && evt.name != "":
			return evt
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return evt
}

func TestEventsStreamsConversation(t *testing.T) {
	svc := chatservice.NewService(chatservice.AskerFunc(func(ctx context.Context, req chat.Request) (*chat.Reply, error) {
		text := "Rates are 8%."
		return &chat.Reply{Answer: &text, OfficialLinks: []chat.Link{{URL: "https://x", Label: "Source"}}}, nil
	}))
	defer svc.Close()

	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/session/"+session.ID+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	ready := readEvent(t, sc)
	assert.Equal(t, EventReady, ready.name)
	assert.Equal(t, session.ID, ready.frame.SessionID)

	_, err = svc.Submit(context.Background(), session.ID, "What is the loan rate?")
	require.NoError(t, err)

	var names []string
	var last Frame
	for i := 0; i < 4; i++ {
		evt := readEvent(t, sc)
		names = append(names, evt.name)
		last = evt.frame
	}
	assert.Equal(t, []string{"message.appended", "message.appended", "message.removed", "message.appended"}, names)
	require.NotNil(t, last.Message)
	assert.Equal(t, "Rates are 8%.", last.Message.Text)
	assert.Contains(t, string(last.HTML), `class="source-link"`)
}

func TestEventsUnknownSession(t *testing.T) {
	svc := chatservice.NewService(nil)
	defer svc.Close()

	r := chi.NewRouter()
	New(svc, nil).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/session/missing/events", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestNewFrameRemovedHasNoHTML(t *testing.T) {
	frame := NewFrame(chatservice.Event{Type: chatservice.EventRemoved, SessionID: "s", Message: chat.NewPlaceholder("Loading...")})

	assert.Equal(t, "message.removed", frame.Type)
	assert.Empty(t, frame.HTML)
	require.NotNil(t, frame.Message)
	assert.True(t, frame.Message.Loading)
}
