package services

import (
	"sync"

	"go.uber.org/zap"
)

// QuizResultUpdatedEvent is published whenever an account's stored quiz result changes.
const QuizResultUpdatedEvent = "gappy-quiz-result-updated"

type QuizEvent struct {
	Name      string `json:"name"`
	AccountID string `json:"accountId"`
}

// QuizEvents is a synchronous in-process pub-sub; there is no cross-instance propagation.
type QuizEvents struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]func(QuizEvent)
	logger    *zap.Logger
}

func NewQuizEvents(logger *zap.Logger) *QuizEvents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizEvents{listeners: make(map[int]func(QuizEvent)), logger: logger}
}

// Subscribe registers listener and returns a function that removes it.
func (e *QuizEvents) Subscribe(listener func(QuizEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = listener
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

func (e *QuizEvents) Publish(accountID string) {
	e.mu.RLock()
	listeners := make([]func(QuizEvent), 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.mu.RUnlock()

	ev := QuizEvent{Name: QuizResultUpdatedEvent, AccountID: accountID}
	e.logger.Debug("publishing quiz event", zap.String("account_id", accountID), zap.Int("listeners", len(listeners)))
	for _, l := range listeners {
		l(ev)
	}
}
