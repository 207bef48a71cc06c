package chat

import (
	"time"

	"github.com/talkincode/toughstock/pkg/common"
)

// Step is the interpreter state of a session.
type Step string

const (
	StepIdle           Step = "idle"
	StepAwaitingName   Step = "awaiting_name"
	StepAwaitingPrice  Step = "awaiting_price"
	StepAwaitingQty    Step = "awaiting_qty"
	StepAwaitingBrand  Step = "awaiting_brand"
	StepAwaitingStyle  Step = "awaiting_style"
	StepAwaitingType   Step = "awaiting_type"
	StepAwaitingExpiry Step = "awaiting_expiry"
	StepAwaitingSellID Step = "awaiting_sell_id"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// HistoryCap is the most turns a session holds before trimming.
	HistoryCap = 50
	// HistoryKeep is how many of the newest turns survive a trim.
	HistoryKeep = 40
)

type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// PendingProduct accumulates fields during the add flow.
type PendingProduct struct {
	Name     string  `json:"name,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
	Brand    string  `json:"brand,omitempty"`
	Style    string  `json:"style,omitempty"`
	Type     string  `json:"type,omitempty"`
}

// ChatSession is one conversation. It is owned by the caller and mutated
// in place by Interpreter.Handle; it is never persisted.
type ChatSession struct {
	ID       int64          `json:"id,string"`
	Username string         `json:"username"`
	Step     Step           `json:"step"`
	Pending  PendingProduct `json:"pending"`
	History  []Turn         `json:"history"`
	LastSeen time.Time      `json:"last_seen"`
}

func NewSession(username string) *ChatSession {
	return &ChatSession{
		ID:       common.UUIDint64(),
		Username: username,
		Step:     StepIdle,
		LastSeen: time.Now(),
	}
}

// Reset discards the pending fields and returns to idle.
func (s *ChatSession) Reset() {
	s.Step = StepIdle
	s.Pending = PendingProduct{}
}

// Append records a turn, trimming to the newest HistoryKeep turns once the
// history grows past HistoryCap.
func (s *ChatSession) Append(role, text string) {
	now := time.Now()
	s.History = append(s.History, Turn{Role: role, Text: text, At: now})
	if len(s.History) > HistoryCap {
		kept := make([]Turn, HistoryKeep)
		copy(kept, s.History[len(s.History)-HistoryKeep:])
		s.History = kept
	}
	s.LastSeen = now
}
