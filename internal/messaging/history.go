package messaging

import (
	"context"
	"fmt"
	"sort"
	"time"

	"courtportal/internal/domain"
)

// DefaultHistoryTimeout bounds a backlog fetch; past it the loader
// surfaces a retryable error instead of hanging.
const DefaultHistoryTimeout = 15 * time.Second

// HistoryLoader pulls the ordered backlog for one channel. Loads are
// idempotent: repeated calls return a consistent snapshot and the
// store's merge keeps re-ingestion harmless.
type HistoryLoader struct {
	api     HistoryAPI
	timeout time.Duration
}

func NewHistoryLoader(api HistoryAPI, timeout time.Duration) *HistoryLoader {
	if timeout <= 0 {
		timeout = DefaultHistoryTimeout
	}
	return &HistoryLoader{api: api, timeout: timeout}
}

// Load fetches the channel's backlog ascending by createdAt, selecting
// the backing query from the channel kind.
func (l *HistoryLoader) Load(ctx context.Context, ch domain.Channel, self int64) ([]domain.Message, error) {
	sel, err := SelectorFor(ch, self)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	msgs, err := l.api.History(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", ch.ID, err)
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}
