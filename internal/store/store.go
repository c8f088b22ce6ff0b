package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"csone/internal/models"
	"csone/pkg/utils"

	"github.com/sirupsen/logrus"
)

// 记录存储错误
var (
	ErrNotFound             = errors.New("record not found")
	ErrValidation           = errors.New("validation failed")
	ErrSentinelCustomer     = errors.New("unrecognized caller is a placeholder and cannot own tickets")
	ErrSameCustomerRequired = errors.New("tickets must belong to the same customer to be merged")
	ErrSelfMerge            = errors.New("cannot merge a record into itself")
)

// Store 内存记录存储：客户、工单、互动三个集合的唯一事实来源。
// 派生视图（客户的工单/互动、通话记录）一律读取时计算，不做预聚合。
type Store struct {
	mu sync.RWMutex

	customers     map[string]*models.Customer
	customerOrder []string
	tickets       map[string]*models.Ticket
	ticketOrder   []string
	interactions  []*models.Interaction
	interactionIx map[string]int
	agents        map[string]models.Agent

	customerSeq int
	ticketSeq   int
	sentinelID  string

	now    func() time.Time
	logger *logrus.Logger
}

// New 创建空存储
func New(logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		customers:     make(map[string]*models.Customer),
		tickets:       make(map[string]*models.Ticket),
		interactionIx: make(map[string]int),
		agents:        make(map[string]models.Agent),
		now:           time.Now,
		logger:        logger,
	}
}

// NewSeeded 创建并载入演示数据集
func NewSeeded(logger *logrus.Logger) *Store {
	s := New(logger)
	s.seed()
	return s
}

// SetClock 注入时钟（测试用）
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Now 返回存储时钟的当前时间
func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

// DefaultAgent 返回当前坐席（无认证系统，固定为第一位坐席）
func (s *Store) DefaultAgent() models.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agents["agent-1"]
}

// GetAgent 查找坐席
func (s *Store) GetAgent(id string) (models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return models.Agent{}, fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}
	return a, nil
}

// Agents 返回坐席列表
func (s *Store) Agents() []models.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Agent, 0, len(s.agents))
	for _, id := range []string{"agent-1", "agent-2", "agent-3"} {
		if a, ok := s.agents[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// GetCustomer 查找客户
func (s *Store) GetCustomer(id string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	return cloneCustomer(c), nil
}

// ListCustomers 返回未归档客户，按创建顺序
func (s *Store) ListCustomers() []*models.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Customer, 0, len(s.customerOrder))
	for _, id := range s.customerOrder {
		c := s.customers[id]
		if c.Archived {
			continue
		}
		out = append(out, cloneCustomer(c))
	}
	return out
}

// FindCustomerByPhone 按主号码或电话身份查找客户；来电弹屏用，
// 未命中时回落到 "Unrecognized Caller" 占位档案。
func (s *Store) FindCustomerByPhone(phone string) *models.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.customerOrder {
		c := s.customers[id]
		if c.Archived || id == s.sentinelID {
			continue
		}
		if c.Phone == phone {
			return cloneCustomer(c)
		}
		for _, ident := range c.Identities {
			if ident.Channel == models.ChannelPhone && ident.Identifier == phone {
				return cloneCustomer(c)
			}
		}
	}
	return cloneCustomer(s.customers[s.sentinelID])
}

// SentinelCustomerID 返回未知来电占位档案的 ID
func (s *Store) SentinelCustomerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sentinelID
}

// CustomerCreateRequest 创建客户请求
type CustomerCreateRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateCustomer 创建客户；分配新 ID，默认打 "New Customer" 标签
func (s *Store) CreateCustomer(req *CustomerCreateRequest) (*models.Customer, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("name is required: %w", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.customerSeq++
	c := &models.Customer{
		ID:        fmt.Sprintf("cus-%d", s.customerSeq),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		AvatarURL: fmt.Sprintf("https://picsum.photos/seed/%d/100/100", s.customerSeq),
		CreatedAt: s.now(),
		Tags:      []string{"New Customer"},
	}
	if req.Phone != "" {
		c.Identities = append(c.Identities, models.Identity{Channel: models.ChannelPhone, Identifier: req.Phone})
	}
	if req.Email != "" {
		c.Identities = append(c.Identities, models.Identity{Channel: models.ChannelEmail, Identifier: req.Email})
	}

	s.customers[c.ID] = c
	s.customerOrder = append(s.customerOrder, c.ID)
	s.logger.Infof("Created customer %s (%s)", c.ID, c.Name)
	return cloneCustomer(c), nil
}

// GetTicket 查找工单
func (s *Store) GetTicket(id string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, ErrNotFound)
	}
	return cloneTicket(t), nil
}

// ListTickets 返回全部工单，按更新时间倒序
func (s *Store) ListTickets() []*models.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Ticket, 0, len(s.ticketOrder))
	for _, id := range s.ticketOrder {
		out = append(out, cloneTicket(s.tickets[id]))
	}
	sortTicketsByUpdated(out)
	return out
}

// TicketsForCustomer 返回某客户的工单，按更新时间倒序
func (s *Store) TicketsForCustomer(customerID string) []*models.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Ticket
	for _, id := range s.ticketOrder {
		t := s.tickets[id]
		if t.CustomerID == customerID {
			out = append(out, cloneTicket(t))
		}
	}
	sortTicketsByUpdated(out)
	return out
}

// InteractionsForTicket 返回某工单的互动，最新在前
func (s *Store) InteractionsForTicket(ticketID string) []*models.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Interaction
	for i := len(s.interactions) - 1; i >= 0; i-- {
		if s.interactions[i].TicketID == ticketID {
			out = append(out, cloneInteraction(s.interactions[i]))
		}
	}
	sortInteractionsByDate(out)
	return out
}

// InteractionsForCustomer 返回某客户的全部互动：经由其工单关联的，
// 加上未关联工单但直接挂在客户上的，最新在前。
func (s *Store) InteractionsForCustomer(customerID string) []*models.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticketIDs := make(map[string]bool)
	for _, id := range s.ticketOrder {
		if s.tickets[id].CustomerID == customerID {
			ticketIDs[id] = true
		}
	}
	var out []*models.Interaction
	for i := len(s.interactions) - 1; i >= 0; i-- {
		in := s.interactions[i]
		if (in.TicketID != "" && ticketIDs[in.TicketID]) || (in.TicketID == "" && in.CustomerID == customerID) {
			out = append(out, cloneInteraction(in))
		}
	}
	sortInteractionsByDate(out)
	return out
}

// GetInteraction 查找互动记录
func (s *Store) GetInteraction(id string) (*models.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ix, ok := s.interactionIx[id]
	if !ok {
		return nil, fmt.Errorf("interaction %s: %w", id, ErrNotFound)
	}
	return cloneInteraction(s.interactions[ix]), nil
}

// CallLog 返回全部通话互动，按时间倒序
func (s *Store) CallLog() []*models.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Interaction
	for i := len(s.interactions) - 1; i >= 0; i-- {
		if s.interactions[i].Type == models.InteractionCall {
			out = append(out, cloneInteraction(s.interactions[i]))
		}
	}
	sortInteractionsByDate(out)
	return out
}

// TicketCreateRequest 创建工单请求
type TicketCreateRequest struct {
	CustomerID string `json:"customerId" binding:"required"`
	Subject    string `json:"subject" binding:"required"`
	AgentID    string `json:"agentId"`
}

// CreateTicket 创建工单（状态 New），并记录一条系统互动
func (s *Store) CreateTicket(req *TicketCreateRequest) (*models.Ticket, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, fmt.Errorf("subject is required: %w", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[req.CustomerID]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", req.CustomerID, ErrNotFound)
	}
	// 占位客户不允许建立工单历史
	if req.CustomerID == s.sentinelID {
		return nil, ErrSentinelCustomer
	}

	agent := s.agents["agent-1"]
	if req.AgentID != "" {
		a, ok := s.agents[req.AgentID]
		if !ok {
			return nil, fmt.Errorf("agent %s: %w", req.AgentID, ErrNotFound)
		}
		agent = a
	}

	now := s.now()
	s.ticketSeq++
	t := &models.Ticket{
		ID:                fmt.Sprintf("TKT-%03d", s.ticketSeq),
		CustomerID:        customer.ID,
		CustomerName:      customer.Name,
		CustomerAvatarURL: customer.AvatarURL,
		Subject:           req.Subject,
		Status:            models.TicketNew,
		Agent:             agent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.tickets[t.ID] = t
	s.ticketOrder = append(s.ticketOrder, t.ID)

	s.appendInteractionLocked(&models.Interaction{
		Type:     models.InteractionTicket,
		Channel:  models.ChannelSystem,
		Agent:    agent,
		Content:  fmt.Sprintf("Ticket %s created: %q.", t.ID, t.Subject),
		TicketID: t.ID,
	})

	s.logger.Infof("Created ticket %s for customer %s", t.ID, customer.ID)
	return cloneTicket(t), nil
}

// InteractionCreateRequest 记录互动请求；TicketID 和 CustomerID 至少给一个
type InteractionCreateRequest struct {
	Type       models.InteractionType `json:"type"`
	Channel    models.Channel         `json:"channel"`
	Content    string                 `json:"content"`
	TicketID   string                 `json:"ticketId"`
	CustomerID string                 `json:"customerId"`
	Call       *models.CallDetails    `json:"call,omitempty"`
}

// AppendInteraction 记录一条互动；分配 ID 和时间戳，关联当前坐席，
// 给了工单时同步刷新工单的 UpdatedAt。
func (s *Store) AppendInteraction(req *InteractionCreateRequest) (*models.Interaction, error) {
	if !utils.ValidateContent(req.Content) {
		return nil, fmt.Errorf("interaction content is required: %w", ErrValidation)
	}
	if req.TicketID == "" && req.CustomerID == "" {
		return nil, fmt.Errorf("ticketId or customerId is required: %w", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.TicketID != "" {
		if _, ok := s.tickets[req.TicketID]; !ok {
			return nil, fmt.Errorf("ticket %s: %w", req.TicketID, ErrNotFound)
		}
	}
	if req.CustomerID != "" {
		if _, ok := s.customers[req.CustomerID]; !ok {
			return nil, fmt.Errorf("customer %s: %w", req.CustomerID, ErrNotFound)
		}
		// 占位客户不允许积累互动历史
		if req.CustomerID == s.sentinelID {
			return nil, ErrSentinelCustomer
		}
	}

	typ := req.Type
	if typ == "" {
		typ = models.InteractionNote
	}
	channel := req.Channel
	if channel == "" {
		channel = models.ChannelSystem
	}

	in := &models.Interaction{
		Type:       typ,
		Channel:    channel,
		Agent:      s.agents["agent-1"],
		Content:    req.Content,
		TicketID:   req.TicketID,
		CustomerID: req.CustomerID,
		Call:       req.Call,
	}
	s.appendInteractionLocked(in)
	return cloneInteraction(in), nil
}

// appendInteractionLocked 挂载互动并刷新父工单；调用方必须持有写锁
func (s *Store) appendInteractionLocked(in *models.Interaction) {
	if in.ID == "" {
		in.ID = utils.GenerateInteractionID()
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	s.interactions = append(s.interactions, in)
	s.interactionIx[in.ID] = len(s.interactions) - 1

	if in.TicketID != "" {
		if t, ok := s.tickets[in.TicketID]; ok {
			s.touchTicketLocked(t)
		}
	}
}

// touchTicketLocked 刷新 UpdatedAt，保证严格递增
func (s *Store) touchTicketLocked(t *models.Ticket) {
	now := s.now()
	if now.After(t.UpdatedAt) {
		t.UpdatedAt = now
	} else {
		t.UpdatedAt = t.UpdatedAt.Add(time.Nanosecond)
	}
}

// UpdateTicketStatus 更新工单状态；任意状态间的切换都允许
func (s *Store) UpdateTicketStatus(ticketID string, status models.TicketStatus) (*models.Ticket, error) {
	switch status {
	case models.TicketNew, models.TicketInProgress, models.TicketResolved, models.TicketClosed:
	default:
		return nil, fmt.Errorf("unknown status %q: %w", status, ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, ErrNotFound)
	}
	t.Status = status
	s.touchTicketLocked(t)
	s.logger.Infof("Ticket %s status -> %s", ticketID, status)
	return cloneTicket(t), nil
}

// ReassignTicketAgent 改派工单坐席；坐席不存在时返回 NotFound
func (s *Store) ReassignTicketAgent(ticketID, agentID string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, ErrNotFound)
	}
	agent, ok := s.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, ErrNotFound)
	}
	t.Agent = agent
	s.touchTicketLocked(t)
	return cloneTicket(t), nil
}

// AttachCallSummary 将 AI 摘要附加到已有的通话互动上；
// 摘要是附加信息，失败不影响互动本身。
func (s *Store) AttachCallSummary(interactionID, summary, sentiment, keyTopics string) (*models.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ix, ok := s.interactionIx[interactionID]
	if !ok {
		return nil, fmt.Errorf("interaction %s: %w", interactionID, ErrNotFound)
	}
	in := s.interactions[ix]
	if in.Type != models.InteractionCall {
		return nil, fmt.Errorf("interaction %s is not a call: %w", interactionID, ErrValidation)
	}
	in.Summary = summary
	in.Sentiment = sentiment
	in.KeyTopics = keyTopics
	return cloneInteraction(in), nil
}

func sortTicketsByUpdated(ts []*models.Ticket) {
	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].UpdatedAt.After(ts[j].UpdatedAt)
	})
}

func sortInteractionsByDate(ins []*models.Interaction) {
	// 稳定排序：时间相同的保持后写入的在前
	sort.SliceStable(ins, func(i, j int) bool {
		return ins[i].Date.After(ins[j].Date)
	})
}
