package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"csone/internal/metrics"
	"csone/internal/models"
	"csone/internal/store"
	"csone/pkg/recordings"
	"csone/pkg/utils"

	"github.com/sirupsen/logrus"
)

// ErrCallState 非法的通话状态转换
var ErrCallState = errors.New("invalid call state transition")

// 通话状态机：Idle -> Live -> Ended，可从 Ended 重呼（Recall）回 Live
type CallState string

const (
	CallIdle  CallState = "Idle"
	CallLive  CallState = "Live"
	CallEnded CallState = "Ended"
)

// 录音后端不可用时使用的占位转写
const placeholderTranscript = `Agent: Thank you for calling CS-One, this is Alex speaking. How can I help you today?
Customer: Hi Alex, this is John Doe. I'm calling about my recent order, ORD-001. I received it yesterday but the frames aren't quite what I expected. I'd like to start a return.
Agent: I see. I'm sorry to hear that the frames weren't to your liking, Mr. Doe. I can certainly help you with a return. Can you confirm the order ID for me?
Customer: Yes, it's ORD-001.
Agent: Great, thank you. I've pulled up your order. I am initiating the return process now. You will receive an email shortly with a return shipping label and instructions on how to send the item back. Once we receive it, we will process a full refund.
Customer: That sounds perfect. Thank you for your help, Alex.
Agent: You're very welcome. Is there anything else I can assist you with today?
Customer: No, that's all.
Agent: Alright. Have a great day, Mr. Doe.
`

// CallNotes 通话中可编辑的结构化记录；通话结束后只读
type CallNotes struct {
	Purpose    string `json:"purpose"`
	Discussion string `json:"discussion"`
	Output     string `json:"output"`
	NextAction string `json:"nextAction"`
}

// CallSession 一次通话的会话状态
type CallSession struct {
	ID         string            `json:"id"`
	State      CallState         `json:"state"`
	TicketID   string            `json:"ticketId,omitempty"`
	CustomerID string            `json:"customerId,omitempty"`
	CallType   models.CallType   `json:"callType"`
	StartedAt  time.Time         `json:"startedAt"`
	EndedAt    *time.Time        `json:"endedAt,omitempty"`
	Notes      CallNotes         `json:"notes"`
	Transcript string            `json:"transcript,omitempty"`
	Events     []models.CallEvent `json:"events"`

	frozenSeconds int
	stopTicker    chan struct{}
}

// CallService 通话生命周期服务。每个工单/客户上下文同一时刻最多
// 一通 Live 的电话；通话结束时向记录存储提交最终的互动记录。
type CallService struct {
	mu            sync.Mutex
	sessions      map[string]*CallSession
	liveByContext map[string]string // context key -> session id

	store      *store.Store
	hub        *WebSocketHub
	recordings recordings.RecordingsInterface
	logger     *logrus.Logger
	now        func() time.Time
}

// NewCallService 创建通话服务；recordings 可为 nil（使用占位转写）
func NewCallService(st *store.Store, hub *WebSocketHub, rec recordings.RecordingsInterface, logger *logrus.Logger) *CallService {
	if logger == nil {
		logger = logrus.New()
	}
	return &CallService{
		sessions:      make(map[string]*CallSession),
		liveByContext: make(map[string]string),
		store:         st,
		hub:           hub,
		recordings:    rec,
		logger:        logger,
		now:           time.Now,
	}
}

// SetClock 注入时钟（测试用）
func (s *CallService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// CallStartRequest 发起通话请求；TicketID 和 CustomerID 至少给一个
type CallStartRequest struct {
	TicketID   string          `json:"ticketId"`
	CustomerID string          `json:"customerId"`
	CallType   models.CallType `json:"callType"`
}

func (r *CallStartRequest) contextKey() string {
	if r.TicketID != "" {
		return "ticket:" + r.TicketID
	}
	return "customer:" + r.CustomerID
}

// StartCall 进入 Live 状态：启动秒级计时，记录 Initiated/Ringing/Answered
// 事件序列，同一上下文已有 Live 通话时拒绝。
func (s *CallService) StartCall(req *CallStartRequest) (*CallSession, error) {
	if req.TicketID == "" && req.CustomerID == "" {
		return nil, fmt.Errorf("ticketId or customerId is required: %w", store.ErrValidation)
	}
	if req.TicketID != "" {
		if _, err := s.store.GetTicket(req.TicketID); err != nil {
			return nil, err
		}
	}
	if req.CustomerID != "" {
		if _, err := s.store.GetCustomer(req.CustomerID); err != nil {
			return nil, err
		}
		// 占位客户不能作为通话上下文，结束时的互动会被存储拒绝
		if req.CustomerID == s.store.SentinelCustomerID() {
			return nil, store.ErrSentinelCustomer
		}
	}

	callType := req.CallType
	if callType == "" {
		callType = models.CallIncoming
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := req.contextKey()
	if liveID, ok := s.liveByContext[key]; ok {
		return nil, fmt.Errorf("call %s is already live for %s: %w", liveID, key, ErrCallState)
	}

	agent := s.store.DefaultAgent()
	now := s.now()
	session := &CallSession{
		ID:         utils.GenerateCallSessionID(),
		State:      CallLive,
		TicketID:   req.TicketID,
		CustomerID: req.CustomerID,
		CallType:   callType,
		StartedAt:  now,
		Events: []models.CallEvent{
			{Kind: models.CallEventInitiated, Agent: agent, At: now},
			{Kind: models.CallEventRinging, Agent: agent, At: now},
			{Kind: models.CallEventAnswered, Agent: agent, At: now},
		},
		stopTicker: make(chan struct{}),
	}
	s.sessions[session.ID] = session
	s.liveByContext[key] = session.ID

	go s.runTicker(session.ID, session.stopTicker)

	metrics.IncCallStarted()
	s.logger.Infof("Call %s started (%s)", session.ID, key)
	if s.hub != nil {
		s.hub.Broadcast(EventCallEvent, session.ID, session.snapshot())
	}
	return session.snapshot(), nil
}

// runTicker 每秒广播一次通话时长；状态退出或服务关闭时必须停表
func (s *CallService) runTicker(sessionID string, stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			session, ok := s.sessions[sessionID]
			if !ok || session.State != CallLive {
				s.mu.Unlock()
				return
			}
			seconds := int(s.now().Sub(session.StartedAt).Seconds())
			s.mu.Unlock()
			if s.hub != nil {
				s.hub.Broadcast(EventCallTick, sessionID, map[string]interface{}{
					"seconds":  seconds,
					"duration": utils.FormatDuration(seconds),
				})
			}
		}
	}
}

// GetSession 查询通话会话
func (s *CallService) GetSession(id string) (*CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("call session %s: %w", id, store.ErrNotFound)
	}
	return session.snapshot(), nil
}

// UpdateNotes 更新通话中的结构化记录；仅 Live 状态下可编辑
func (s *CallService) UpdateNotes(id string, notes *CallNotes) (*CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("call session %s: %w", id, store.ErrNotFound)
	}
	if session.State != CallLive {
		return nil, fmt.Errorf("call %s is not live, notes are read-only: %w", id, ErrCallState)
	}
	// 目的字段结束通话时会成为互动内容，长度必须在存储接受的范围内
	if notes.Purpose != "" && !utils.ValidateContent(notes.Purpose) {
		return nil, fmt.Errorf("call purpose exceeds the allowed length: %w", store.ErrValidation)
	}
	session.Notes = *notes
	return session.snapshot(), nil
}

// Duration 返回当前通话秒数；Live 时为墙钟流逝秒数，Ended 后冻结
func (s *CallService) Duration(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return 0, fmt.Errorf("call session %s: %w", id, store.ErrNotFound)
	}
	return s.durationLocked(session), nil
}

func (s *CallService) durationLocked(session *CallSession) int {
	if session.State == CallLive {
		return int(s.now().Sub(session.StartedAt).Seconds())
	}
	return session.frozenSeconds
}

// EndCall 结束通话：冻结时长，抓取转写（失败用占位文本），把最终的
// Call 互动提交到记录存储。Live -> Ended 之外的转换拒绝。
func (s *CallService) EndCall(ctx context.Context, id string) (*models.Interaction, error) {
	s.mu.Lock()

	session, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("call session %s: %w", id, store.ErrNotFound)
	}
	if session.State != CallLive {
		s.mu.Unlock()
		return nil, fmt.Errorf("call %s already ended: %w", id, ErrCallState)
	}
	// 状态翻转前先验证最终内容，提交失败不能留下半途状态
	if session.Notes.Purpose != "" && !utils.ValidateContent(session.Notes.Purpose) {
		s.mu.Unlock()
		return nil, fmt.Errorf("call purpose exceeds the allowed length: %w", store.ErrValidation)
	}

	now := s.now()
	session.State = CallEnded
	session.EndedAt = &now
	session.frozenSeconds = int(now.Sub(session.StartedAt).Seconds())
	session.Events = append(session.Events, models.CallEvent{
		Kind:  models.CallEventEnded,
		Agent: s.store.DefaultAgent(),
		At:    now,
	})
	close(session.stopTicker)
	delete(s.liveByContext, session.contextKey())

	durationStr := utils.FormatDuration(session.frozenSeconds)
	notes := session.Notes
	events := append([]models.CallEvent(nil), session.Events...)
	ticketID := session.TicketID
	customerID := session.CustomerID
	callType := session.CallType
	s.mu.Unlock()

	// 转写来自录音后端；不可用时使用占位文本，不阻塞通话结束
	transcript := placeholderTranscript
	recordingURL := ""
	if s.recordings != nil {
		if tr, err := s.recordings.GetTranscript(ctx, id); err != nil {
			s.logger.Warnf("Transcript fetch failed for call %s, using placeholder: %v", id, err)
		} else if tr.Text != "" {
			transcript = tr.Text
		}
		if rec, err := s.recordings.GetRecording(ctx, id); err == nil {
			recordingURL = rec.URL
		}
	}

	content := notes.Purpose
	if content == "" {
		content = fmt.Sprintf("Call ended after %s", durationStr)
	}

	interaction, err := s.store.AppendInteraction(&store.InteractionCreateRequest{
		Type:       models.InteractionCall,
		Channel:    models.ChannelPhone,
		Content:    content,
		TicketID:   ticketID,
		CustomerID: customerID,
		Call: &models.CallDetails{
			Duration:     durationStr,
			CallType:     callType,
			RecordingURL: recordingURL,
			Transcript:   transcript,
			Purpose:      notes.Purpose,
			Discussion:   notes.Discussion,
			Output:       notes.Output,
			NextAction:   notes.NextAction,
			Events:       events,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("commit call interaction: %w", err)
	}

	s.mu.Lock()
	session.Transcript = transcript
	s.mu.Unlock()

	metrics.IncCallEnded()
	s.logger.Infof("Call %s ended after %s", id, durationStr)
	if s.hub != nil {
		s.hub.Broadcast(EventCallEnded, id, interaction)
	}
	return interaction, nil
}

// Recall 重呼：Ended -> Live，时长归零，清空转写，重新开始计时
func (s *CallService) Recall(id string) (*CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("call session %s: %w", id, store.ErrNotFound)
	}
	if session.State != CallEnded {
		return nil, fmt.Errorf("call %s is not ended, cannot recall: %w", id, ErrCallState)
	}

	key := session.contextKey()
	if liveID, ok := s.liveByContext[key]; ok {
		return nil, fmt.Errorf("call %s is already live for %s: %w", liveID, key, ErrCallState)
	}

	agent := s.store.DefaultAgent()
	now := s.now()
	session.State = CallLive
	session.StartedAt = now
	session.EndedAt = nil
	session.frozenSeconds = 0
	session.Transcript = ""
	session.CallType = models.CallOutgoing
	session.Events = append(session.Events,
		models.CallEvent{Kind: models.CallEventInitiated, Agent: agent, At: now},
		models.CallEvent{Kind: models.CallEventRinging, Agent: agent, At: now},
		models.CallEvent{Kind: models.CallEventAnswered, Agent: agent, At: now},
	)
	session.stopTicker = make(chan struct{})
	s.liveByContext[key] = session.ID

	go s.runTicker(session.ID, session.stopTicker)

	metrics.IncCallRecalled()
	s.logger.Infof("Call %s recalled", id)
	if s.hub != nil {
		s.hub.Broadcast(EventCallEvent, id, session.snapshot())
	}
	return session.snapshot(), nil
}

// Shutdown 停掉所有在跑的计时器
func (s *CallService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.State == CallLive {
			close(session.stopTicker)
			session.State = CallEnded
		}
	}
	s.liveByContext = make(map[string]string)
}

func (c *CallSession) contextKey() string {
	if c.TicketID != "" {
		return "ticket:" + c.TicketID
	}
	return "customer:" + c.CustomerID
}

// snapshot 返回会话的拷贝，内部字段不外泄
func (c *CallSession) snapshot() *CallSession {
	out := *c
	out.Events = append([]models.CallEvent(nil), c.Events...)
	out.stopTicker = nil
	return &out
}
