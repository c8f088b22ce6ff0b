package services

import (
	"csone/internal/metrics"
	"csone/internal/models"
	"csone/internal/store"

	"github.com/sirupsen/logrus"
)

// StatisticsService 看板/报表统计；全部读取时计算，不落任何预聚合
type StatisticsService struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(st *store.Store, logger *logrus.Logger) *StatisticsService {
	if logger == nil {
		logger = logrus.New()
	}
	return &StatisticsService{store: st, logger: logger}
}

// OverviewStats 看板总览
type OverviewStats struct {
	TotalCustomers        int                              `json:"totalCustomers"`
	TotalTickets          int                              `json:"totalTickets"`
	TicketsByStatus       map[models.TicketStatus]int      `json:"ticketsByStatus"`
	OpenTickets           int                              `json:"openTickets"`
	SLABreaches           int                              `json:"slaBreaches"`
	TotalInteractions     int                              `json:"totalInteractions"`
	InteractionsByChannel map[models.Channel]int           `json:"interactionsByChannel"`
	TotalCalls            int                              `json:"totalCalls"`
	CallsStarted          uint64                           `json:"callsStarted"`
	CallsEnded            uint64                           `json:"callsEnded"`
	AIRequests            uint64                           `json:"aiRequests"`
	AIFailures            uint64                           `json:"aiFailures"`
}

// Overview 计算看板总览
func (s *StatisticsService) Overview() *OverviewStats {
	stats := &OverviewStats{
		TicketsByStatus:       make(map[models.TicketStatus]int),
		InteractionsByChannel: make(map[models.Channel]int),
	}

	customers := s.store.ListCustomers()
	stats.TotalCustomers = len(customers)

	for _, t := range s.store.ListTickets() {
		stats.TotalTickets++
		stats.TicketsByStatus[t.Status]++
		if t.Status == models.TicketNew || t.Status == models.TicketInProgress {
			stats.OpenTickets++
		}
		if t.SLA != nil && t.SLA.Status == models.SLABreached {
			stats.SLABreaches++
		}
	}

	for _, c := range customers {
		for _, in := range s.store.InteractionsForCustomer(c.ID) {
			stats.TotalInteractions++
			stats.InteractionsByChannel[in.Channel]++
		}
	}

	stats.TotalCalls = len(s.store.CallLog())

	started, ended, _ := metrics.CallSnapshot()
	stats.CallsStarted = started
	stats.CallsEnded = ended

	aiTotal, aiFailures, _ := metrics.AISnapshot()
	stats.AIRequests = aiTotal
	stats.AIFailures = aiFailures

	return stats
}
