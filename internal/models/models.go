package models

import (
	"time"
)

// 客服代理
type Agent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

// 联系渠道身份（电话/邮箱/社交账号）
type Identity struct {
	Channel    Channel `json:"channel"`
	Identifier string  `json:"identifier"`
}

type Channel string

const (
	ChannelPhone     Channel = "Phone"
	ChannelEmail     Channel = "Email"
	ChannelFacebook  Channel = "Facebook"
	ChannelZalo      Channel = "Zalo"
	ChannelInstagram Channel = "Instagram"
	ChannelSystem    Channel = "System"
)

// 会员信息
type Membership struct {
	Level           MembershipLevel `json:"level"`
	Points          int             `json:"points"`
	NextLevelPoints int             `json:"nextLevelPoints"`
}

type MembershipLevel string

const (
	MembershipBronze MembershipLevel = "Bronze"
	MembershipSilver MembershipLevel = "Silver"
	MembershipGold   MembershipLevel = "Gold"
)

// 欠款记录条目
type DebtEntry struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
	Reason string    `json:"reason"`
}

// 欠款汇总
type DebtSummary struct {
	Current float64     `json:"current"`
	History []DebtEntry `json:"history"`
}

// 验光数据（单眼球镜/柱镜/轴位，瞳距）
type EyeMeasurement struct {
	OD EyeSide `json:"od"`
	OS EyeSide `json:"os"`
	PD string  `json:"pd"`
}

type EyeSide struct {
	Sph string `json:"sph"`
	Cyl string `json:"cyl"`
	Ax  string `json:"ax"`
}

// 订单条目
type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// 订单（创建后不可变）
type Order struct {
	ID     string      `json:"id"`
	Date   time.Time   `json:"date"`
	Status OrderStatus `json:"status"`
	Total  float64     `json:"total"`
	Items  []OrderItem `json:"items"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

// 客户档案
type Customer struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	AvatarURL      string          `json:"avatarUrl"`
	CreatedAt      time.Time       `json:"createdAt"`
	Identities     []Identity      `json:"identities"`
	Orders         []Order         `json:"orders"`
	Tags           []string        `json:"tags"`
	Membership     *Membership     `json:"membership,omitempty"`
	Debt           *DebtSummary    `json:"debt,omitempty"`
	EyeMeasurement *EyeMeasurement `json:"eyeMeasurement,omitempty"`
	// Archived 由客户合并置位；归档档案不再出现在列表/搜索中
	Archived bool `json:"archived,omitempty"`
}

// 工单状态；状态间转换不受限制（任意状态可直接切换）
type TicketStatus string

const (
	TicketNew        TicketStatus = "New"
	TicketInProgress TicketStatus = "In-Progress"
	TicketResolved   TicketStatus = "Resolved"
	TicketClosed     TicketStatus = "Closed"
)

// SLA 状态描述
type SLADescriptor struct {
	Status        SLAStatus `json:"status"`
	ResolutionDue time.Time `json:"resolutionDue"`
}

type SLAStatus string

const (
	SLAMet      SLAStatus = "Met"
	SLAAtRisk   SLAStatus = "At Risk"
	SLABreached SLAStatus = "Breached"
)

// 工单模型；CustomerName/CustomerAvatarURL 为列表展示用的冗余快照
type Ticket struct {
	ID                string         `json:"id"`
	CustomerID        string         `json:"customerId"`
	CustomerName      string         `json:"customerName"`
	CustomerAvatarURL string         `json:"customerAvatarUrl"`
	Subject           string         `json:"subject"`
	Status            TicketStatus   `json:"status"`
	Agent             Agent          `json:"agent"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	SLA               *SLADescriptor `json:"sla,omitempty"`
}

// 互动类型
type InteractionType string

const (
	InteractionCall   InteractionType = "Call"
	InteractionChat   InteractionType = "Chat"
	InteractionNote   InteractionType = "Note"
	InteractionTicket InteractionType = "Ticket"
)

// 通话方向
type CallType string

const (
	CallIncoming CallType = "Incoming"
	CallOutgoing CallType = "Outgoing"
	CallMissed   CallType = "Missed"
)

// 通话过程事件
type CallEventKind string

const (
	CallEventInitiated   CallEventKind = "Initiated"
	CallEventRinging     CallEventKind = "Ringing"
	CallEventAnswered    CallEventKind = "Answered"
	CallEventMissed      CallEventKind = "Missed"
	CallEventTransferred CallEventKind = "Transferred"
	CallEventEnded       CallEventKind = "Ended"
)

type CallEvent struct {
	Kind  CallEventKind `json:"kind"`
	Agent Agent         `json:"agent"`
	At    time.Time     `json:"at"`
}

// 通话附加字段；只有 Type == Call 的互动才会携带
type CallDetails struct {
	Duration     string      `json:"duration,omitempty"` // 格式 "{m}m {s}s"
	CallType     CallType    `json:"callType,omitempty"`
	RecordingURL string      `json:"recordingUrl,omitempty"`
	Transcript   string      `json:"transcript,omitempty"`
	Purpose      string      `json:"purpose,omitempty"`
	Discussion   string      `json:"discussion,omitempty"`
	Output       string      `json:"output,omitempty"`
	NextAction   string      `json:"nextAction,omitempty"`
	Events       []CallEvent `json:"events,omitempty"`
	IsLive       bool        `json:"isLive,omitempty"`
}

// 互动记录。通话结束后 Duration/Content/Transcript 不再变化；
// 合并工单时只会改写 TicketID。
type Interaction struct {
	ID         string          `json:"id"`
	Type       InteractionType `json:"type"`
	Channel    Channel         `json:"channel"`
	Date       time.Time       `json:"date"`
	Agent      Agent           `json:"agent"`
	Content    string          `json:"content"`
	TicketID   string          `json:"ticketId,omitempty"`
	CustomerID string          `json:"customerId,omitempty"`
	Summary    string          `json:"summary,omitempty"`
	Sentiment  string          `json:"sentiment,omitempty"`
	KeyTopics  string          `json:"keyTopics,omitempty"`
	Call       *CallDetails    `json:"call,omitempty"`
}

// IsLive 判断互动是否为进行中的通话
func (i *Interaction) IsLive() bool {
	return i.Call != nil && i.Call.IsLive
}
