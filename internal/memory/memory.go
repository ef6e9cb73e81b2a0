// Package memory keeps the rolling conversation window an agent carries
// between turns, bounded by message count and age.
package memory

import (
	"sync"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one conversation entry with its metadata. Tool turns carry
// their invocation outcomes in ToolResults.
type Message struct {
	Role        Role           `json:"role"`
	Content     string         `json:"content"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	ToolResults map[string]any `json:"tool_results,omitempty"`
}

// Conversation is a bounded, thread-safe message window. Old entries are
// dropped lazily: count bounds apply on write, age bounds on read.
type Conversation struct {
	mu          sync.Mutex
	messages    []Message
	context     map[string]any
	maxMessages int
	retention   time.Duration
	now         func() time.Time
}

// Option customizes a Conversation.
type Option func(*Conversation)

// WithClock overrides the time source, for retention tests.
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) { c.now = now }
}

// New builds a conversation window. maxMessages <= 0 means unbounded
// count; retention <= 0 means entries never age out.
func New(maxMessages int, retention time.Duration, opts ...Option) *Conversation {
	c := &Conversation{
		maxMessages: maxMessages,
		retention:   retention,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add appends a message stamped with the current time and evicts the
// oldest entries beyond the count bound.
func (c *Conversation) Add(role Role, content string, metadata map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(Message{
		Role:     role,
		Content:  content,
		Metadata: metadata,
	})
}

// AddToolResults appends a tool turn recording invocation outcomes keyed
// by tool name.
func (c *Conversation) AddToolResults(results map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(Message{
		Role:        RoleTool,
		ToolResults: results,
	})
}

// appendLocked stamps and stores a message, evicting the oldest entries
// beyond the count bound. Caller must hold the lock.
func (c *Conversation) appendLocked(msg Message) {
	msg.Timestamp = c.now()
	c.messages = append(c.messages, msg)
	if c.maxMessages > 0 && len(c.messages) > c.maxMessages {
		excess := len(c.messages) - c.maxMessages
		c.messages = append(c.messages[:0:0], c.messages[excess:]...)
	}
}

// Messages returns the messages still inside the retention window, oldest
// first. The slice is a copy.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fresh()
}

// Recent returns up to n of the newest retained messages, oldest first.
func (c *Conversation) Recent(n int) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := c.fresh()
	if n <= 0 || n >= len(fresh) {
		return fresh
	}
	return fresh[len(fresh)-n:]
}

// ByRole returns retained messages with the given role, oldest first,
// optionally capped to the most recent limit (limit <= 0 means all).
func (c *Conversation) ByRole(role Role, limit int) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := c.fresh()
	out := make([]Message, 0, len(fresh))
	for _, m := range fresh {
		if m.Role == role {
			out = append(out, m)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out
}

// UpdateContext shallow-merges patch into the conversation context: new
// keys added, existing keys overwritten.
func (c *Conversation) UpdateContext(patch map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.context == nil {
		c.context = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		c.context[k] = v
	}
}

// Context returns a copy of the context mapping.
func (c *Conversation) Context() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.context))
	for k, v := range c.context {
		out[k] = v
	}
	return out
}

// Len reports the number of retained messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fresh())
}

// Clear drops every message.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// fresh prunes aged-out entries in place and returns a copy of the rest.
// Caller must hold the lock.
func (c *Conversation) fresh() []Message {
	if c.retention > 0 {
		cutoff := c.now().Add(-c.retention)
		keep := 0
		for keep < len(c.messages) && !c.messages[keep].Timestamp.After(cutoff) {
			keep++
		}
		if keep > 0 {
			c.messages = append(c.messages[:0:0], c.messages[keep:]...)
		}
	}
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Stats summarizes the retained window.
type Stats struct {
	Messages int            `json:"messages"`
	ByRole   map[string]int `json:"by_role"`
	Oldest   time.Time      `json:"oldest,omitempty"`
	Newest   time.Time      `json:"newest,omitempty"`
}

// Stats reports counts over the retained messages.
func (c *Conversation) Stats() Stats {
	msgs := c.Messages()
	s := Stats{Messages: len(msgs), ByRole: make(map[string]int, 3)}
	for _, m := range msgs {
		s.ByRole[string(m.Role)]++
	}
	if len(msgs) > 0 {
		s.Oldest = msgs[0].Timestamp
		s.Newest = msgs[len(msgs)-1].Timestamp
	}
	return s
}

// Exchange is a provider-facing view of one message: role and content
// only, restricted to user and assistant turns.
type Exchange struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Exchanges exports the retained conversation in the shape chat providers
// accept. System messages are excluded; the system prompt travels in its
// own request field.
func (c *Conversation) Exchanges() []Exchange {
	msgs := c.Messages()
	out := make([]Exchange, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		out = append(out, Exchange{Role: string(m.Role), Content: m.Content})
	}
	return out
}
