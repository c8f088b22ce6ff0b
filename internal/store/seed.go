package store

import (
	"time"

	"csone/internal/models"
)

// 演示数据集：进程生命周期内有效，重启即复位

func mustTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		panic(err)
	}
	return t
}

func (s *Store) seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	agents := []models.Agent{
		{ID: "agent-1", Name: "Alex Green", AvatarURL: "https://picsum.photos/seed/101/40/40"},
		{ID: "agent-2", Name: "Brianna White", AvatarURL: "https://picsum.photos/seed/102/40/40"},
		{ID: "agent-3", Name: "Charlie Brown", AvatarURL: "https://picsum.photos/seed/103/40/40"},
	}
	for _, a := range agents {
		s.agents[a.ID] = a
	}

	customers := []*models.Customer{
		{
			ID:        "cus-1",
			Name:      "John Doe",
			Email:     "john.doe@example.com",
			Phone:     "555-0101",
			AvatarURL: "https://picsum.photos/seed/1/100/100",
			CreatedAt: mustTime("2024-01-15T09:00:00Z"),
			Identities: []models.Identity{
				{Channel: models.ChannelPhone, Identifier: "555-0101"},
				{Channel: models.ChannelEmail, Identifier: "john.doe@example.com"},
				{Channel: models.ChannelFacebook, Identifier: "johndoe"},
			},
			Orders: []models.Order{
				{
					ID:     "ORD-001",
					Date:   mustTime("2024-07-20T11:00:00Z"),
					Status: models.OrderShipped,
					Total:  125.50,
					Items:  []models.OrderItem{{ID: "item-a", Name: "Stylish Frames", Quantity: 1, Price: 125.50}},
				},
			},
			EyeMeasurement: &models.EyeMeasurement{
				OD: models.EyeSide{Sph: "-1.25", Cyl: "-0.50", Ax: "180"},
				OS: models.EyeSide{Sph: "-1.50", Cyl: "-0.50", Ax: "175"},
				PD: "63",
			},
			Tags: []string{"VIP", "Repeat Customer"},
			Membership: &models.Membership{
				Level:           models.MembershipGold,
				Points:          2500,
				NextLevelPoints: 5000,
			},
			Debt: &models.DebtSummary{
				Current: 50.25,
				History: []models.DebtEntry{
					{Date: mustTime("2024-07-01T10:00:00Z"), Amount: 100.00, Reason: "Initial Debt"},
					{Date: mustTime("2024-07-15T12:00:00Z"), Amount: -49.75, Reason: "Partial Payment"},
				},
			},
		},
		{
			ID:        "cus-2",
			Name:      "Jane Smith",
			Email:     "jane.smith@example.com",
			Phone:     "555-0102",
			AvatarURL: "https://picsum.photos/seed/2/100/100",
			CreatedAt: mustTime("2024-03-22T11:30:00Z"),
			Identities: []models.Identity{
				{Channel: models.ChannelPhone, Identifier: "555-0102"},
				{Channel: models.ChannelZalo, Identifier: "janesmith.zalo"},
			},
			Orders: []models.Order{
				{
					ID:     "ORD-002",
					Date:   mustTime("2024-07-18T18:45:00Z"),
					Status: models.OrderDelivered,
					Total:  250.00,
					Items:  []models.OrderItem{{ID: "item-b", Name: "Premium Lenses", Quantity: 2, Price: 125.00}},
				},
			},
			Tags: []string{"New Customer"},
			Membership: &models.Membership{
				Level:           models.MembershipBronze,
				Points:          50,
				NextLevelPoints: 500,
			},
			Debt: &models.DebtSummary{Current: 0},
		},
		{
			// 未知来电占位档案，不允许积累工单历史
			ID:        "cus-3",
			Name:      "Unrecognized Caller",
			Email:     "unknown@example.com",
			Phone:     "555-0199",
			AvatarURL: "https://picsum.photos/seed/99/100/100",
			Identities: []models.Identity{
				{Channel: models.ChannelPhone, Identifier: "555-0199"},
			},
			Tags: []string{},
		},
	}
	for _, c := range customers {
		s.customers[c.ID] = c
		s.customerOrder = append(s.customerOrder, c.ID)
	}
	s.customerSeq = len(customers)
	s.sentinelID = "cus-3"

	tickets := []*models.Ticket{
		{
			ID:                "TKT-001",
			CustomerID:        "cus-1",
			CustomerName:      "John Doe",
			CustomerAvatarURL: "https://picsum.photos/seed/1/40/40",
			Subject:           "Order Status Inquiry",
			Status:            models.TicketResolved,
			Agent:             s.agents["agent-2"],
			CreatedAt:         mustTime("2024-07-22T14:35:00Z"),
			UpdatedAt:         mustTime("2024-07-23T10:05:00Z"),
			SLA: &models.SLADescriptor{
				Status:        models.SLAMet,
				ResolutionDue: mustTime("2024-07-24T14:35:00Z"),
			},
		},
		{
			ID:                "TKT-002",
			CustomerID:        "cus-2",
			CustomerName:      "Jane Smith",
			CustomerAvatarURL: "https://picsum.photos/seed/2/40/40",
			Subject:           "Issue with new prescription",
			Status:            models.TicketInProgress,
			Agent:             s.agents["agent-3"],
			CreatedAt:         mustTime("2024-07-21T16:00:00Z"),
			UpdatedAt:         mustTime("2024-07-21T16:05:00Z"),
			SLA: &models.SLADescriptor{
				Status:        models.SLAAtRisk,
				ResolutionDue: mustTime("2024-07-23T16:00:00Z"),
			},
		},
		{
			ID:                "TKT-003",
			CustomerID:        "cus-1",
			CustomerName:      "John Doe",
			CustomerAvatarURL: "https://picsum.photos/seed/1/40/40",
			Subject:           "Return Request for ORD-001",
			Status:            models.TicketNew,
			Agent:             s.agents["agent-1"],
			CreatedAt:         mustTime("2024-07-24T09:00:00Z"),
			UpdatedAt:         mustTime("2024-07-24T09:00:00Z"),
		},
	}
	for _, t := range tickets {
		s.tickets[t.ID] = t
		s.ticketOrder = append(s.ticketOrder, t.ID)
	}
	s.ticketSeq = len(tickets)

	interactions := []*models.Interaction{
		{
			ID:       "int-1",
			Type:     models.InteractionCall,
			Channel:  models.ChannelPhone,
			Date:     mustTime("2024-07-22T14:30:00Z"),
			Agent:    s.agents["agent-1"],
			Content:  "Customer called to ask about the shipping status of order #ORD-001.",
			Summary:  "Initial inquiry about order status.",
			TicketID: "TKT-001",
			Call: &models.CallDetails{
				Duration:     "5m 32s",
				CallType:     models.CallIncoming,
				RecordingURL: "#",
				Events: []models.CallEvent{
					{Kind: models.CallEventInitiated, Agent: s.agents["agent-1"], At: mustTime("2024-07-22T14:29:40Z")},
					{Kind: models.CallEventRinging, Agent: s.agents["agent-1"], At: mustTime("2024-07-22T14:29:50Z")},
					{Kind: models.CallEventAnswered, Agent: s.agents["agent-1"], At: mustTime("2024-07-22T14:30:00Z")},
					{Kind: models.CallEventEnded, Agent: s.agents["agent-1"], At: mustTime("2024-07-22T14:35:32Z")},
				},
			},
		},
		{
			ID:       "int-2",
			Type:     models.InteractionTicket,
			Channel:  models.ChannelSystem,
			Date:     mustTime("2024-07-22T14:35:00Z"),
			Agent:    s.agents["agent-1"],
			TicketID: "TKT-001",
			Content:  `Ticket TKT-001 created: "Order Status Inquiry".`,
		},
		{
			ID:       "int-3",
			Type:     models.InteractionChat,
			Channel:  models.ChannelFacebook,
			Date:     mustTime("2024-07-23T10:00:00Z"),
			Agent:    s.agents["agent-2"],
			TicketID: "TKT-001",
			Content:  "Followed up via Facebook chat to provide tracking number.",
		},
		{
			ID:       "int-4",
			Type:     models.InteractionNote,
			Channel:  models.ChannelSystem,
			Date:     mustTime("2024-07-23T10:05:00Z"),
			Agent:    s.agents["agent-2"],
			TicketID: "TKT-001",
			Content:  "Customer confirmed receipt of tracking number. Happy with the quick response.",
		},
		{
			ID:       "int-5",
			Type:     models.InteractionTicket,
			Channel:  models.ChannelSystem,
			Date:     mustTime("2024-07-21T16:00:00Z"),
			Agent:    s.agents["agent-3"],
			TicketID: "TKT-002",
			Content:  `Ticket TKT-002 created: "Issue with new prescription".`,
		},
	}
	for _, in := range interactions {
		s.interactions = append(s.interactions, in)
		s.interactionIx[in.ID] = len(s.interactions) - 1
	}
}
