// Package chat keeps an in-memory view of the conversation in step with the
// server by polling on a fixed interval. This is a stand-in for a push
// channel: each cycle fetches a page of history and replaces the whole
// local snapshot.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/duetchat/duet/internal/message"
	"github.com/duetchat/duet/internal/model"
)

// DefaultInterval is the poll period between conversation fetches.
const DefaultInterval = 3 * time.Second

var (
	// ErrNoPartner means the user has nobody to chat with yet; callers
	// should steer them to the connect flow instead of starting a syncer.
	ErrNoPartner = errors.New("no partner connected")
	// ErrEmptyMessage rejects blank input before any network call.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSendInFlight enforces single-flight sends: a second send while one
	// is outstanding is refused rather than queued.
	ErrSendInFlight = errors.New("a send is already in flight")
)

// Sender says which side of the conversation a message came from.
type Sender string

const (
	SenderMe      Sender = "me"
	SenderPartner Sender = "partner"
)

// ChatMessage is a server message mapped for display: sender resolved
// against the current user, timestamps parsed, oldest first.
type ChatMessage struct {
	ID        int64
	Text      string
	Sender    Sender
	Timestamp time.Time
	Time      string
	Type      string
}

// UpdateFunc receives the full replacement snapshot after each successful
// fetch, oldest message first.
type UpdateFunc func([]ChatMessage)

// Syncer owns the polling loop for one chat view. Start begins the ticker,
// Stop tears it down; leaking the loop past the view's lifetime would keep
// polling a dead session. Poll responses are applied in issue order: a slow
// response that arrives after a newer one already landed is discarded.
type Syncer struct {
	svc      *message.Service
	userID   int64
	interval time.Duration
	onUpdate UpdateFunc
	logger   *slog.Logger

	mu       sync.Mutex
	messages []ChatMessage
	partner  *model.UserPublic
	sending  bool
	seq      uint64 // last issued fetch
	applied  uint64 // last applied fetch

	cancel context.CancelFunc
	done   chan struct{}
}

type SyncerOption func(*Syncer)

func WithInterval(d time.Duration) SyncerOption {
	return func(s *Syncer) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithOnUpdate(fn UpdateFunc) SyncerOption {
	return func(s *Syncer) {
		s.onUpdate = fn
	}
}

func WithLogger(l *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = l
	}
}

// NewSyncer creates a syncer for the given user's conversation. The user
// must already have a partner.
func NewSyncer(svc *message.Service, user *model.User, opts ...SyncerOption) (*Syncer, error) {
	if user == nil || !user.HasPartner {
		return nil, ErrNoPartner
	}
	s := &Syncer{
		svc:      svc,
		userID:   user.UserID,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start fetches once immediately, then begins the poll loop. A failed poll
// iteration is logged and swallowed; the ticker keeps going.
func (s *Syncer) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("initial conversation fetch", "error", err)
	}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Refresh(ctx); err != nil {
					s.logger.Warn("poll conversation", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the poll loop and waits for it to exit.
func (s *Syncer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Refresh performs one fetch-and-replace cycle and notifies the update
// callback. Unread partner messages from the fetched page are marked read,
// fire-and-forget.
func (s *Syncer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	conv, err := s.svc.Conversation(ctx, 0, message.DefaultPageSize)
	if err != nil {
		return err
	}

	msgs := make([]ChatMessage, 0, len(conv.Messages))
	var unread []int64
	for _, m := range conv.Messages {
		msgs = append(msgs, mapMessage(m, s.userID))
		if !m.IsRead && m.SenderID != s.userID {
			unread = append(unread, m.MessageID)
		}
	}
	// Server order is newest first; display wants oldest at the top.
	reverse(msgs)

	if !s.apply(seq, msgs, conv.Partner) {
		return nil
	}

	if len(unread) > 0 {
		if err := s.svc.MarkRead(ctx, unread); err != nil {
			s.logger.Debug("mark read", "count", len(unread), "error", err)
		}
	}
	return nil
}

// apply installs a fetched snapshot unless a newer fetch already landed.
// Returns false when the snapshot was stale and dropped.
func (s *Syncer) apply(seq uint64, msgs []ChatMessage, partner model.UserPublic) bool {
	s.mu.Lock()
	if seq <= s.applied {
		s.mu.Unlock()
		return false
	}
	s.applied = seq
	s.messages = msgs
	p := partner
	s.partner = &p
	onUpdate := s.onUpdate
	s.mu.Unlock()

	if onUpdate != nil {
		onUpdate(msgs)
	}
	return true
}

// Send submits a message and, on success, refreshes immediately instead of
// waiting for the next tick. Blank input and overlapping sends are rejected
// before any network call; a failed send leaves the caller's input intact.
func (s *Syncer) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	s.sending = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	if _, err := s.svc.Send(ctx, text, model.MessageTypeText); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Messages returns a copy of the current snapshot, oldest first.
func (s *Syncer) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Partner returns the partner profile from the latest fetch, or nil before
// the first successful cycle.
func (s *Syncer) Partner() *model.UserPublic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partner
}

func mapMessage(m model.Message, myID int64) ChatMessage {
	sender := SenderPartner
	if m.SenderID == myID {
		sender = SenderMe
	}
	ts := parseTimestamp(m.CreatedAt)
	return ChatMessage{
		ID:        m.MessageID,
		Text:      m.Content,
		Sender:    sender,
		Timestamp: ts,
		Time:      ts.Local().Format("15:04"),
		Type:      m.MessageType,
	}
}

// parseTimestamp accepts the server's created_at variants: RFC 3339 with or
// without an offset, with or without fractional seconds.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func reverse(msgs []ChatMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
