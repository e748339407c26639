// Package audit records secret-reveal events in a hash-chained
// append-only log. The sink is advisory: a recording failure never blocks
// the reveal itself.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is one revealed secret: who, which item, from where.
type Event struct {
	TS        int64  `json:"ts"`
	AccountID string `json:"account_id"`
	ItemID    string `json:"item_id"`
	Origin    string `json:"origin"`
	Hash      string `json:"hash"`
}

// Log chains each event's hash over the previous one, so truncation or
// in-place edits are detectable with Verify.
type Log struct {
	mu       sync.Mutex
	lastHash []byte
	events   []Event
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

// RecordReveal appends a reveal event and emits it to the structured log.
func (l *Log) RecordReveal(accountID, itemID uuid.UUID, origin string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Event{
		TS:        time.Now().Unix(),
		AccountID: accountID.String(),
		ItemID:    itemID.String(),
		Origin:    origin,
	}
	sum := chain(l.lastHash, &e)
	l.lastHash = sum
	e.Hash = hex.EncodeToString(sum)
	l.events = append(l.events, e)

	l.logger.Info("secret revealed",
		zap.String("account_id", e.AccountID),
		zap.String("item_id", e.ItemID),
		zap.String("origin", e.Origin),
	)
}

// Verify walks the chain from the start and reports the first break.
func (l *Log) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var prev []byte
	for i, e := range l.events {
		sum := chain(prev, &e)
		if hex.EncodeToString(sum) != e.Hash {
			return fmt.Errorf("audit: chain broken at entry %d", i)
		}
		prev = sum
	}
	return nil
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func chain(prev []byte, e *Event) []byte {
	h := sha256.New()
	h.Write(prev)
	fmt.Fprintf(h, "%d|%s|%s|%s", e.TS, e.AccountID, e.ItemID, e.Origin)
	return h.Sum(nil)
}
