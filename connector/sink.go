package connector

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/teranos/attrgen/account"
)

// SliceSink collects accounts in memory.
type SliceSink struct {
	mu       sync.Mutex
	Accounts []*account.Account
}

// Send appends acct.
func (s *SliceSink) Send(acct *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Accounts = append(s.Accounts, acct)
	return nil
}

// JSONSink writes one JSON document per account.
type JSONSink struct {
	enc *json.Encoder
}

// NewJSONSink writes accounts to w as JSON lines.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

// Send encodes acct.
func (s *JSONSink) Send(acct *account.Account) error {
	return s.enc.Encode(acct)
}

// SinkFunc adapts a function to AccountSink.
type SinkFunc func(*account.Account) error

// Send calls f.
func (f SinkFunc) Send(acct *account.Account) error {
	return f(acct)
}
