package store

import (
	"fmt"
	"strings"

	"csone/internal/models"
)

// 合并工作流：两条同类记录（客户或工单）选主归并。
// 提交后不可撤销；源记录只做逻辑停用，从不物理删除。

// SearchCustomers 客户合并搜索：按名称/电话不区分大小写的子串匹配，
// 排除另一栏已选中的记录；归档与占位档案不参与。
func (s *Store) SearchCustomers(query, excludeID string) []*models.Customer {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Customer
	for _, id := range s.customerOrder {
		c := s.customers[id]
		if c.Archived || id == excludeID || id == s.sentinelID {
			continue
		}
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Phone), q) {
			out = append(out, cloneCustomer(c))
		}
	}
	return out
}

// SearchTickets 工单合并搜索：按主题/工单号不区分大小写的子串匹配
func (s *Store) SearchTickets(query, excludeID string) []*models.Ticket {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Ticket
	for _, id := range s.ticketOrder {
		t := s.tickets[id]
		if id == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(t.Subject), q) || strings.Contains(strings.ToLower(t.ID), q) {
			out = append(out, cloneTicket(t))
		}
	}
	return out
}

// TicketMergeResult 工单合并结果
type TicketMergeResult struct {
	Primary           *models.Ticket `json:"primary"`
	Source            *models.Ticket `json:"source"`
	MovedInteractions int            `json:"movedInteractions"`
}

// MergeTickets 将 source 工单并入 primary：source 的全部互动改挂到
// primary 下，source 强制置为 Closed。前置条件：两张工单同属一个客户。
func (s *Store) MergeTickets(primaryID, sourceID string) (*TicketMergeResult, error) {
	if primaryID == sourceID {
		return nil, ErrSelfMerge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	primary, ok := s.tickets[primaryID]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", primaryID, ErrNotFound)
	}
	source, ok := s.tickets[sourceID]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", sourceID, ErrNotFound)
	}
	if primary.CustomerID != source.CustomerID {
		return nil, ErrSameCustomerRequired
	}

	moved := 0
	for _, in := range s.interactions {
		if in.TicketID == sourceID {
			in.TicketID = primaryID
			moved++
		}
	}
	source.Status = models.TicketClosed
	s.touchTicketLocked(source)
	s.touchTicketLocked(primary)

	s.appendInteractionLocked(&models.Interaction{
		Type:     models.InteractionTicket,
		Channel:  models.ChannelSystem,
		Agent:    s.agents["agent-1"],
		Content:  fmt.Sprintf("Ticket %s merged into %s (%d interactions moved).", sourceID, primaryID, moved),
		TicketID: primaryID,
	})

	s.logger.Infof("Merged ticket %s into %s, moved %d interactions", sourceID, primaryID, moved)
	return &TicketMergeResult{
		Primary:           cloneTicket(primary),
		Source:            cloneTicket(source),
		MovedInteractions: moved,
	}, nil
}

// CustomerMergeResult 客户合并结果
type CustomerMergeResult struct {
	Primary           *models.Customer `json:"primary"`
	Duplicate         *models.Customer `json:"duplicate"`
	MovedTickets      int              `json:"movedTickets"`
	MovedInteractions int              `json:"movedInteractions"`
	MovedOrders       int              `json:"movedOrders"`
}

// MergeCustomers 将重复档案并入主档案：工单、直接互动、订单全部改挂到
// 主档案，身份和标签取并集，重复档案归档（不删除）。
func (s *Store) MergeCustomers(primaryID, duplicateID string) (*CustomerMergeResult, error) {
	if primaryID == duplicateID {
		return nil, ErrSelfMerge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	primary, ok := s.customers[primaryID]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", primaryID, ErrNotFound)
	}
	dup, ok := s.customers[duplicateID]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", duplicateID, ErrNotFound)
	}
	// 占位档案两个方向都不参与合并
	if primaryID == s.sentinelID || duplicateID == s.sentinelID {
		return nil, ErrSentinelCustomer
	}

	movedTickets := 0
	for _, id := range s.ticketOrder {
		t := s.tickets[id]
		if t.CustomerID == duplicateID {
			t.CustomerID = primaryID
			t.CustomerName = primary.Name
			t.CustomerAvatarURL = primary.AvatarURL
			s.touchTicketLocked(t)
			movedTickets++
		}
	}

	movedInteractions := 0
	for _, in := range s.interactions {
		if in.TicketID == "" && in.CustomerID == duplicateID {
			in.CustomerID = primaryID
			movedInteractions++
		}
	}

	movedOrders := len(dup.Orders)
	primary.Orders = append(primary.Orders, dup.Orders...)
	dup.Orders = nil

	for _, ident := range dup.Identities {
		if !containsIdentity(primary.Identities, ident) {
			primary.Identities = append(primary.Identities, ident)
		}
	}
	for _, tag := range dup.Tags {
		if !containsString(primary.Tags, tag) {
			primary.Tags = append(primary.Tags, tag)
		}
	}

	dup.Archived = true

	s.appendInteractionLocked(&models.Interaction{
		Type:       models.InteractionNote,
		Channel:    models.ChannelSystem,
		Agent:      s.agents["agent-1"],
		Content:    fmt.Sprintf("Profile %s (%s) merged into %s.", duplicateID, dup.Name, primaryID),
		CustomerID: primaryID,
	})

	s.logger.Infof("Merged customer %s into %s (%d tickets, %d interactions, %d orders)",
		duplicateID, primaryID, movedTickets, movedInteractions, movedOrders)
	return &CustomerMergeResult{
		Primary:           cloneCustomer(primary),
		Duplicate:         cloneCustomer(dup),
		MovedTickets:      movedTickets,
		MovedInteractions: movedInteractions,
		MovedOrders:       movedOrders,
	}, nil
}

func containsIdentity(ids []models.Identity, ident models.Identity) bool {
	for _, i := range ids {
		if i.Channel == ident.Channel && i.Identifier == ident.Identifier {
			return true
		}
	}
	return false
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
