package store

import (
	"errors"
	"strings"
	"testing"

	"csone/internal/models"
)

func TestStore_SearchCustomers(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name    string
		query   string
		exclude string
		wantIDs []string
	}{
		{"by name fragment", "john", "", []string{"cus-1"}},
		{"case insensitive", "JANE", "", []string{"cus-2"}},
		{"by phone", "555-010", "", []string{"cus-1", "cus-2"}},
		{"exclude selected", "555-010", "cus-1", []string{"cus-2"}},
		{"sentinel never matches", "unrecognized", "", nil},
		{"blank query", "   ", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SearchCustomers(tt.query, tt.exclude)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("expected %d results, got %d", len(tt.wantIDs), len(got))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Fatalf("expected %s at %d, got %s", id, i, got[i].ID)
				}
			}
		})
	}
}

func TestStore_SearchTickets(t *testing.T) {
	s := newTestStore(t)

	got := s.SearchTickets("order", "")
	if len(got) != 1 || got[0].ID != "TKT-001" {
		t.Fatalf("expected TKT-001 by subject, got %+v", got)
	}

	got = s.SearchTickets("tkt-00", "TKT-001")
	if len(got) != 2 {
		t.Fatalf("expected 2 results excluding TKT-001, got %d", len(got))
	}
}

func TestStore_MergeTickets(t *testing.T) {
	s := newTestStore(t)

	// TKT-001 and TKT-003 both belong to cus-1; fold TKT-001 into TKT-003.
	result, err := s.MergeTickets("TKT-003", "TKT-001")
	if err != nil {
		t.Fatalf("merge tickets: %v", err)
	}
	if result.MovedInteractions != 4 {
		t.Fatalf("expected 4 moved interactions, got %d", result.MovedInteractions)
	}
	if result.Source.Status != models.TicketClosed {
		t.Fatalf("source must be Closed after merge, got %s", result.Source.Status)
	}

	// The source timeline is now empty; the primary carries everything
	// plus the merge note.
	if ins := s.InteractionsForTicket("TKT-001"); len(ins) != 0 {
		t.Fatalf("source should have no interactions left, got %d", len(ins))
	}
	ins := s.InteractionsForTicket("TKT-003")
	if len(ins) != 5 {
		t.Fatalf("expected 5 interactions on primary, got %d", len(ins))
	}
	if !strings.Contains(ins[0].Content, "merged into TKT-003") {
		t.Fatalf("merge note should lead the timeline: %q", ins[0].Content)
	}
}

func TestStore_MergeTicketsCrossCustomer(t *testing.T) {
	s := newTestStore(t)

	// TKT-001 (cus-1) and TKT-002 (cus-2) must never merge.
	_, err := s.MergeTickets("TKT-001", "TKT-002")
	if !errors.Is(err, ErrSameCustomerRequired) {
		t.Fatalf("expected ErrSameCustomerRequired, got %v", err)
	}

	// A rejected merge leaves both tickets untouched.
	t1, _ := s.GetTicket("TKT-001")
	t2, _ := s.GetTicket("TKT-002")
	if t1.Status != models.TicketResolved || t2.Status != models.TicketInProgress {
		t.Fatalf("rejected merge mutated tickets: %s / %s", t1.Status, t2.Status)
	}
	if len(s.InteractionsForTicket("TKT-001")) != 4 {
		t.Fatalf("rejected merge moved interactions")
	}
}

func TestStore_MergeTicketsErrors(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.MergeTickets("TKT-001", "TKT-001"); !errors.Is(err, ErrSelfMerge) {
		t.Fatalf("expected ErrSelfMerge, got %v", err)
	}
	if _, err := s.MergeTickets("TKT-404", "TKT-001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.MergeTickets("TKT-001", "TKT-404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_MergeCustomers(t *testing.T) {
	s := newTestStore(t)

	// Seed a duplicate of Jane with its own ticket and a direct note.
	dup, err := s.CreateCustomer(&CustomerCreateRequest{Name: "Jane S.", Phone: "555-0177"})
	if err != nil {
		t.Fatalf("create duplicate: %v", err)
	}
	if _, err := s.CreateTicket(&TicketCreateRequest{CustomerID: dup.ID, Subject: "Duplicate inquiry"}); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if _, err := s.AppendInteraction(&InteractionCreateRequest{Content: "Left a voicemail.", CustomerID: dup.ID}); err != nil {
		t.Fatalf("append note: %v", err)
	}

	result, err := s.MergeCustomers("cus-2", dup.ID)
	if err != nil {
		t.Fatalf("merge customers: %v", err)
	}
	if result.MovedTickets != 1 || result.MovedInteractions != 1 {
		t.Fatalf("unexpected merge counts: %+v", result)
	}
	if !result.Duplicate.Archived {
		t.Fatalf("duplicate must be archived, not deleted")
	}

	// The duplicate's phone identity now belongs to the primary.
	primary, _ := s.GetCustomer("cus-2")
	if !containsIdentity(primary.Identities, models.Identity{Channel: models.ChannelPhone, Identifier: "555-0177"}) {
		t.Fatalf("identity union missing duplicate phone: %+v", primary.Identities)
	}
	if !containsString(primary.Tags, "New Customer") {
		t.Fatalf("tag union missing: %v", primary.Tags)
	}
	if found := s.FindCustomerByPhone("555-0177"); found.ID != "cus-2" {
		t.Fatalf("phone lookup should resolve to primary, got %s", found.ID)
	}

	// Re-parented ticket carries the primary's denormalized fields.
	tickets := s.TicketsForCustomer("cus-2")
	var moved *models.Ticket
	for _, tk := range tickets {
		if tk.Subject == "Duplicate inquiry" {
			moved = tk
		}
	}
	if moved == nil || moved.CustomerName != "Jane Smith" {
		t.Fatalf("moved ticket not re-parented: %+v", moved)
	}

	// Archived duplicates disappear from lists and searches.
	for _, c := range s.ListCustomers() {
		if c.ID == dup.ID {
			t.Fatalf("archived duplicate still listed")
		}
	}
	if got := s.SearchCustomers("jane s.", ""); len(got) != 0 {
		t.Fatalf("archived duplicate still searchable: %+v", got)
	}
}

func TestStore_MergeCustomersErrors(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.MergeCustomers("cus-1", "cus-1"); !errors.Is(err, ErrSelfMerge) {
		t.Fatalf("expected ErrSelfMerge, got %v", err)
	}
	if _, err := s.MergeCustomers("cus-1", "cus-404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.MergeCustomers("cus-1", s.SentinelCustomerID()); !errors.Is(err, ErrSentinelCustomer) {
		t.Fatalf("expected ErrSentinelCustomer as duplicate, got %v", err)
	}
	if _, err := s.MergeCustomers(s.SentinelCustomerID(), "cus-1"); !errors.Is(err, ErrSentinelCustomer) {
		t.Fatalf("expected ErrSentinelCustomer as primary, got %v", err)
	}
}
