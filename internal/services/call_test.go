package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"csone/internal/models"
	"csone/internal/store"

	"github.com/sirupsen/logrus"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newCallTestService(t *testing.T) (*CallService, *store.Store, *fakeClock) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	st := store.NewSeeded(logger)
	svc := NewCallService(st, nil, nil, logger)
	clock := &fakeClock{now: time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)}
	svc.SetClock(clock.Now)
	st.SetClock(clock.Now)
	return svc, st, clock
}

func TestCallService_StartCall(t *testing.T) {
	svc, _, _ := newCallTestService(t)

	session, err := svc.StartCall(&CallStartRequest{TicketID: "TKT-003"})
	if err != nil {
		t.Fatalf("start call: %v", err)
	}
	if session.State != CallLive {
		t.Fatalf("expected Live, got %s", session.State)
	}
	if session.CallType != models.CallIncoming {
		t.Fatalf("call type should default to Incoming, got %s", session.CallType)
	}
	// Initiated, Ringing, Answered are stamped in order at start.
	if len(session.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(session.Events))
	}
	kinds := []models.CallEventKind{models.CallEventInitiated, models.CallEventRinging, models.CallEventAnswered}
	for i, k := range kinds {
		if session.Events[i].Kind != k {
			t.Fatalf("event %d: expected %s, got %s", i, k, session.Events[i].Kind)
		}
	}

	seconds, err := svc.Duration(session.ID)
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if seconds != 0 {
		t.Fatalf("duration at start must be 0, got %d", seconds)
	}
}

func TestCallService_StartCallValidation(t *testing.T) {
	svc, st, _ := newCallTestService(t)

	if _, err := svc.StartCall(&CallStartRequest{}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.StartCall(&CallStartRequest{TicketID: "TKT-404"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.StartCall(&CallStartRequest{CustomerID: "cus-404"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// One live call per context.
	if _, err := svc.StartCall(&CallStartRequest{TicketID: "TKT-003"}); err != nil {
		t.Fatalf("start call: %v", err)
	}
	if _, err := svc.StartCall(&CallStartRequest{TicketID: "TKT-003"}); !errors.Is(err, ErrCallState) {
		t.Fatalf("expected ErrCallState for second live call, got %v", err)
	}
	// A different context is free to go live.
	if _, err := svc.StartCall(&CallStartRequest{CustomerID: "cus-2"}); err != nil {
		t.Fatalf("other context should start: %v", err)
	}

	// The unrecognized-caller placeholder cannot anchor a call.
	if _, err := svc.StartCall(&CallStartRequest{CustomerID: st.SentinelCustomerID()}); !errors.Is(err, store.ErrSentinelCustomer) {
		t.Fatalf("expected ErrSentinelCustomer, got %v", err)
	}
}

func TestCallService_DurationTracksClock(t *testing.T) {
	svc, _, clock := newCallTestService(t)

	session, _ := svc.StartCall(&CallStartRequest{TicketID: "TKT-003"})

	clock.Advance(90 * time.Second)
	seconds, _ := svc.Duration(session.ID)
	if seconds != 90 {
		t.Fatalf("expected 90s elapsed, got %d", seconds)
	}

	clock.Advance(242 * time.Second)
	seconds, _ = svc.Duration(session.ID)
	if seconds != 332 {
		t.Fatalf("expected 332s elapsed, got %d", seconds)
	}
}

func TestCallService_UpdateNotes(t *testing.T) {
	svc, _, _ := newCallTestService(t)

	session, _ := svc.StartCall(&CallStartRequest{TicketID: "TKT-003"})

	updated, err := svc.UpdateNotes(session.ID, &CallNotes{
		Purpose:    "Return request follow-up",
		Discussion: "Confirmed return label was received.",
	})
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if updated.Notes.Purpose != "Return request follow-up" {
		t.Fatalf("notes not applied: %+v", updated.Notes)
	}

	if _, err := svc.UpdateNotes("call-404", &CallNotes{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := svc.EndCall(context.Background(), session.ID); err != nil {
		t.Fatalf("end call: %v", err)
	}
	// Notes freeze once the call has ended.
	if _, err := svc.UpdateNotes(session.ID, &CallNotes{Purpose: "late edit"}); !errors.Is(err, ErrCallState) {
		t.Fatalf("expected ErrCallState after end, got %v", err)
	}
}

func TestCallService_OversizedPurposeRejected(t *testing.T) {
	svc, st, _ := newCallTestService(t)

	session, _ := svc.StartCall(&CallStartRequest{TicketID: "TKT-003"})
	long := strings.Repeat("x", 5000)

	// UpdateNotes refuses a purpose the store would reject at commit time.
	if _, err := svc.UpdateNotes(session.ID, &CallNotes{Purpose: long}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	current, _ := svc.GetSession(session.ID)
	if current.Notes.Purpose != "" {
		t.Fatalf("rejected notes must not stick, got %d chars", len(current.Notes.Purpose))
	}

	// Even if an oversized purpose slips in, EndCall must bail out before
	// touching the state machine.
	svc.mu.Lock()
	svc.sessions[session.ID].Notes.Purpose = long
	svc.mu.Unlock()

	if _, err := svc.EndCall(context.Background(), session.ID); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	current, _ = svc.GetSession(session.ID)
	if current.State != CallLive {
		t.Fatalf("session must stay Live after a rejected end, got %s", current.State)
	}
	if _, err := svc.StartCall(&CallStartRequest{TicketID: "TKT-003"}); !errors.Is(err, ErrCallState) {
		t.Fatalf("context slot should still be held, got %v", err)
	}
	timeline := st.InteractionsForTicket("TKT-003")
	if len(timeline) != 0 {
		t.Fatalf("no interaction should be committed, got %d", len(timeline))
	}

	// Trim the purpose and the call ends normally.
	if _, err := svc.UpdateNotes(session.ID, &CallNotes{Purpose: "Follow up"}); err != nil {
		t.Fatalf("update notes: %v", err)
	}
	in, err := svc.EndCall(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("end call: %v", err)
	}
	if in.Content != "Follow up" {
		t.Fatalf("unexpected content %q", in.Content)
	}
}

func TestCallService_EndCallCommitsInteraction(t *testing.T) {
	svc, st, clock := newCallTestService(t)

	session, _ := svc.StartCall(&CallStartRequest{TicketID: "TKT-003"})
	if _, err := svc.UpdateNotes(session.ID, &CallNotes{Purpose: "Return request follow-up"}); err != nil {
		t.Fatalf("update notes: %v", err)
	}
	clock.Advance(90 * time.Second)

	in, err := svc.EndCall(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("end call: %v", err)
	}
	if in.Type != models.InteractionCall || in.Channel != models.ChannelPhone {
		t.Fatalf("unexpected interaction envelope: %+v", in)
	}
	if in.Content != "Return request follow-up" {
		t.Fatalf("content should use the purpose, got %q", in.Content)
	}
	if in.Call == nil || in.Call.Duration != "1m 30s" {
		t.Fatalf("expected frozen duration 1m 30s, got %+v", in.Call)
	}
	// Without a recordings backend the transcript falls back to the canned one.
	if !strings.Contains(in.Call.Transcript, "Thank you for calling CS-One") {
		t.Fatalf("expected placeholder transcript, got %q", in.Call.Transcript)
	}
	if in.Call.Events[len(in.Call.Events)-1].Kind != models.CallEventEnded {
		t.Fatalf("last event must be Ended: %+v", in.Call.Events)
	}

	// The call landed on the ticket timeline and bumped it.
	ins := st.InteractionsForTicket("TKT-003")
	if len(ins) == 0 || ins[0].ID != in.ID {
		t.Fatalf("call interaction should lead the ticket timeline")
	}

	// Duration stays frozen after the call ends.
	clock.Advance(time.Hour)
	seconds, _ := svc.Duration(session.ID)
	if seconds != 90 {
		t.Fatalf("ended duration must stay frozen, got %d", seconds)
	}
}

func TestCallService_EndCallFallbackContent(t *testing.T) {
	svc, _, clock := newCallTestService(t)

	session, _ := svc.StartCall(&CallStartRequest{CustomerID: "cus-1"})
	clock.Advance(332 * time.Second)

	in, err := svc.EndCall(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("end call: %v", err)
	}
	if in.Content != "Call ended after 5m 32s" {
		t.Fatalf("expected fallback content, got %q", in.Content)
	}
}

func TestCallService_EndCallStateErrors(t *testing.T) {
	svc, _, _ := newCallTestService(t)

	if _, err := svc.EndCall(context.Background(), "call-404"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	session, _ := svc.StartCall(&CallStartRequest{TicketID: "TKT-003"})
	if _, err := svc.EndCall(context.Background(), session.ID); err != nil {
		t.Fatalf("end call: %v", err)
	}
	// Ending twice is a state violation.
	if _, err := svc.EndCall(context.Background(), session.ID); !errors.Is(err, ErrCallState) {
		t.Fatalf("expected ErrCallState on double end, got %v", err)
	}
}

func TestCallService_Recall(t *testing.T) {
	svc, _, clock := newCallTestService(t)

	session, _ := svc.StartCall(&CallStartRequest{TicketID: "TKT-003"})
	clock.Advance(60 * time.Second)
	if _, err := svc.EndCall(context.Background(), session.ID); err != nil {
		t.Fatalf("end call: %v", err)
	}

	recalled, err := svc.Recall(session.ID)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if recalled.State != CallLive {
		t.Fatalf("expected Live after recall, got %s", recalled.State)
	}
	if recalled.CallType != models.CallOutgoing {
		t.Fatalf("a recall is an outgoing call, got %s", recalled.CallType)
	}
	if recalled.Transcript != "" {
		t.Fatalf("transcript must reset on recall")
	}

	// The clock restarts from zero.
	seconds, _ := svc.Duration(session.ID)
	if seconds != 0 {
		t.Fatalf("recall should reset duration, got %d", seconds)
	}
	clock.Advance(30 * time.Second)
	seconds, _ = svc.Duration(session.ID)
	if seconds != 30 {
		t.Fatalf("expected 30s after recall, got %d", seconds)
	}

	// Recall only applies to ended calls.
	if _, err := svc.Recall(session.ID); !errors.Is(err, ErrCallState) {
		t.Fatalf("expected ErrCallState recalling a live call, got %v", err)
	}
}

func TestCallService_Shutdown(t *testing.T) {
	svc, _, _ := newCallTestService(t)

	s1, _ := svc.StartCall(&CallStartRequest{TicketID: "TKT-003"})
	s2, _ := svc.StartCall(&CallStartRequest{CustomerID: "cus-2"})

	svc.Shutdown()

	for _, id := range []string{s1.ID, s2.ID} {
		session, err := svc.GetSession(id)
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		if session.State != CallEnded {
			t.Fatalf("session %s should be ended after shutdown, got %s", id, session.State)
		}
	}
}
