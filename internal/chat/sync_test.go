package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/duetchat/duet/internal/api"
	"github.com/duetchat/duet/internal/message"
	"github.com/duetchat/duet/internal/model"
)

func chatUser() *model.User {
	u := &model.User{UserID: 1, Username: "amy"}
	u.SetPartner(model.UserPublic{UserID: 2, Username: "bea", DisplayName: "Bea"})
	return u
}

func newTestSyncer(t *testing.T, handler http.Handler, opts ...SyncerOption) *Syncer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	svc := message.NewService(api.NewClient(server.URL, "", nil))
	s, err := NewSyncer(svc, chatUser(), opts...)
	if err != nil {
		t.Fatalf("new syncer: %v", err)
	}
	return s
}

func conversationHandler(msgs []model.Message) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.Conversation{
			Messages: msgs,
			Partner:  model.UserPublic{UserID: 2, Username: "bea"},
		})
	}
}

func TestNewSyncerRequiresPartner(t *testing.T) {
	svc := message.NewService(api.NewClient("http://localhost:0", "", nil))

	if _, err := NewSyncer(svc, &model.User{UserID: 1}); !errors.Is(err, ErrNoPartner) {
		t.Errorf("err = %v, want ErrNoPartner", err)
	}
	if _, err := NewSyncer(svc, nil); !errors.Is(err, ErrNoPartner) {
		t.Errorf("err = %v, want ErrNoPartner for nil user", err)
	}
}

func TestRefreshMapsAndReverses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/conversation", conversationHandler([]model.Message{
		{MessageID: 3, SenderID: 2, Content: "newest", MessageType: "text", CreatedAt: "2025-06-01T10:02:00Z"},
		{MessageID: 2, SenderID: 1, Content: "mine", MessageType: "text", CreatedAt: "2025-06-01T10:01:00Z", IsRead: true},
		{MessageID: 1, SenderID: 2, Content: "oldest", MessageType: "text", CreatedAt: "2025-06-01T10:00:00Z", IsRead: true},
	}))
	mux.HandleFunc("PUT /messages/read", func(w http.ResponseWriter, r *http.Request) {})

	s := newTestSyncer(t, mux)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	// Oldest first after the reverse.
	if msgs[0].ID != 1 || msgs[2].ID != 3 {
		t.Errorf("order = [%d %d %d], want [1 2 3]", msgs[0].ID, msgs[1].ID, msgs[2].ID)
	}
	if msgs[0].Sender != SenderPartner {
		t.Errorf("message 1 sender = %q, want partner", msgs[0].Sender)
	}
	if msgs[1].Sender != SenderMe {
		t.Errorf("message 2 sender = %q, want me", msgs[1].Sender)
	}
	if msgs[0].Timestamp.IsZero() {
		t.Error("timestamp should parse")
	}
	if s.Partner() == nil || s.Partner().Username != "bea" {
		t.Errorf("partner = %+v", s.Partner())
	}
}

func TestRefreshMarksPartnerMessagesRead(t *testing.T) {
	var marked atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/conversation", conversationHandler([]model.Message{
		{MessageID: 4, SenderID: 2, Content: "unread from partner", CreatedAt: "2025-06-01T10:00:00Z"},
		{MessageID: 3, SenderID: 1, Content: "my own unread", CreatedAt: "2025-06-01T09:59:00Z"},
	}))
	mux.HandleFunc("PUT /messages/read", func(w http.ResponseWriter, r *http.Request) {
		var update model.MessageReadUpdate
		json.NewDecoder(r.Body).Decode(&update)
		marked.Store(update.MessageIDs)
	})

	s := newTestSyncer(t, mux)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	ids, _ := marked.Load().([]int64)
	if len(ids) != 1 || ids[0] != 4 {
		t.Errorf("marked ids = %v, want [4] (own messages excluded)", ids)
	}
}

func TestSendEmptyRejectedBeforeNetwork(t *testing.T) {
	hit := false
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { hit = true })

	s := newTestSyncer(t, mux)
	if err := s.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
	if hit {
		t.Error("empty send must not reach the network")
	}
}

func TestSendSingleFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("POST /messages/", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		json.NewEncoder(w).Encode(model.Message{MessageID: 1, SenderID: 1, Content: "hi"})
	})
	mux.HandleFunc("GET /messages/conversation", conversationHandler(nil))

	s := newTestSyncer(t, mux)

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Send(context.Background(), "hi") }()

	<-entered
	if err := s.Send(context.Background(), "again"); !errors.Is(err, ErrSendInFlight) {
		t.Errorf("err = %v, want ErrSendInFlight", err)
	}
	close(release)

	if err := <-firstDone; err != nil {
		t.Fatalf("first send: %v", err)
	}

	// The guard clears once the send completes.
	if err := s.Send(context.Background(), "later"); errors.Is(err, ErrSendInFlight) {
		t.Error("guard should be released after completion")
	}
}

func TestSendRefreshesImmediately(t *testing.T) {
	var fetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /messages/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.Message{MessageID: 9, SenderID: 1, Content: "hi"})
	})
	mux.HandleFunc("GET /messages/conversation", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		conversationHandler([]model.Message{
			{MessageID: 9, SenderID: 1, Content: "hi", CreatedAt: "2025-06-01T10:00:00Z", IsRead: true},
		})(w, r)
	})

	s := newTestSyncer(t, mux)
	if err := s.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if fetches.Load() != 1 {
		t.Errorf("fetches = %d, want 1 immediate refresh after send", fetches.Load())
	}
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].ID != 9 {
		t.Errorf("snapshot = %+v, want the just-sent message", msgs)
	}
}

func TestSendFailureKeepsSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /messages/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"No partner connected"}`, http.StatusBadRequest)
	})

	s := newTestSyncer(t, mux)
	err := s.Send(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if api.Detail(err) != "No partner connected" {
		t.Errorf("detail = %q, want server detail surfaced", api.Detail(err))
	}
}

func TestStaleSnapshotDiscarded(t *testing.T) {
	s := &Syncer{userID: 1}

	newer := []ChatMessage{{ID: 2, Text: "newer"}}
	older := []ChatMessage{{ID: 1, Text: "older"}}

	// Fetch 1 and 2 are issued; fetch 2's response lands first.
	s.mu.Lock()
	s.seq = 2
	s.mu.Unlock()

	if !s.apply(2, newer, model.UserPublic{UserID: 2}) {
		t.Fatal("fetch 2 should apply")
	}
	if s.apply(1, older, model.UserPublic{UserID: 2}) {
		t.Fatal("fetch 1 is stale and must be discarded")
	}

	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].ID != 2 {
		t.Errorf("snapshot = %+v, want the newer fetch kept", msgs)
	}
}

func TestPollSurvivesFailures(t *testing.T) {
	var fetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/conversation", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	})

	s := newTestSyncer(t, mux, WithInterval(10*time.Millisecond))
	s.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if fetches.Load() < 3 {
		t.Errorf("fetches = %d, want the loop to keep polling through failures", fetches.Load())
	}
}

func TestStopEndsPolling(t *testing.T) {
	var fetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/conversation", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		conversationHandler(nil)(w, r)
	})

	s := newTestSyncer(t, mux, WithInterval(10*time.Millisecond))
	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	after := fetches.Load()
	time.Sleep(50 * time.Millisecond)
	if fetches.Load() != after {
		t.Error("polling must stop after Stop")
	}
}

func TestOnUpdateReceivesSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/conversation", conversationHandler([]model.Message{
		{MessageID: 1, SenderID: 2, Content: "hey", CreatedAt: "2025-06-01T10:00:00Z", IsRead: true},
	}))

	var got []ChatMessage
	s := newTestSyncer(t, mux, WithOnUpdate(func(msgs []ChatMessage) { got = msgs }))
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(got) != 1 || got[0].Text != "hey" {
		t.Errorf("callback got %+v", got)
	}
}

func TestParseTimestampVariants(t *testing.T) {
	cases := []string{
		"2025-06-01T10:00:00Z",
		"2025-06-01T10:00:00.123456Z",
		"2025-06-01T10:00:00.123456",
		"2025-06-01T10:00:00",
		"2025-06-01T10:00:00+09:00",
	}
	for _, c := range cases {
		if parseTimestamp(c).IsZero() {
			t.Errorf("parseTimestamp(%q) = zero, want parsed", c)
		}
	}
	if !parseTimestamp("not a time").IsZero() {
		t.Error("garbage input should yield zero time")
	}
}
