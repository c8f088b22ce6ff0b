package store

import "csone/internal/models"

// 返回给调用方的记录一律深拷贝，存储内部状态不外泄

func cloneCustomer(c *models.Customer) *models.Customer {
	if c == nil {
		return nil
	}
	out := *c
	out.Identities = append([]models.Identity(nil), c.Identities...)
	out.Tags = append([]string(nil), c.Tags...)
	out.Orders = make([]models.Order, len(c.Orders))
	for i, o := range c.Orders {
		out.Orders[i] = o
		out.Orders[i].Items = append([]models.OrderItem(nil), o.Items...)
	}
	if c.Membership != nil {
		m := *c.Membership
		out.Membership = &m
	}
	if c.Debt != nil {
		d := models.DebtSummary{
			Current: c.Debt.Current,
			History: append([]models.DebtEntry(nil), c.Debt.History...),
		}
		out.Debt = &d
	}
	if c.EyeMeasurement != nil {
		e := *c.EyeMeasurement
		out.EyeMeasurement = &e
	}
	return &out
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	if t == nil {
		return nil
	}
	out := *t
	if t.SLA != nil {
		sla := *t.SLA
		out.SLA = &sla
	}
	return &out
}

func cloneInteraction(in *models.Interaction) *models.Interaction {
	if in == nil {
		return nil
	}
	out := *in
	if in.Call != nil {
		call := *in.Call
		call.Events = append([]models.CallEvent(nil), in.Call.Events...)
		out.Call = &call
	}
	return &out
}
