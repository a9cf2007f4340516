package flow

import (
	"context"
	"sync"

	"github.com/dltrh/devision-job-platform/pkg/logger"
)

// session связывает оркестратор с контекстом времени жизни потока
type session struct {
	orch   *Orchestrator
	ctx    context.Context
	cancel context.CancelFunc
}

// Manager хранит не более одного живого потока покупки на сессию.
// Операции потока выполняются в контексте сессии: закрытие сессии
// отменяет незавершенную работу со шлюзом и опрос активации.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	deps     Dependencies
	log      *logger.Logger
}

// NewManager создает новый менеджер потоков покупки
func NewManager(deps Dependencies, log *logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		deps:     deps,
		log:      log,
	}
}

// GetOrCreate возвращает поток сессии, создавая его при необходимости
func (m *Manager) GetOrCreate(sessionID string) (*Orchestrator, context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, exists := m.sessions[sessionID]; exists {
		return s.orch, s.ctx
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		orch:   NewOrchestrator(sessionID, m.deps, m.log),
		ctx:    ctx,
		cancel: cancel,
	}
	m.sessions[sessionID] = s

	m.log.Debug("Created purchase flow for session: %s", sessionID)
	return s.orch, s.ctx
}

// Get возвращает существующий поток сессии
func (m *Manager) Get(sessionID string) (*Orchestrator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.sessions[sessionID]
	if !exists {
		return nil, false
	}
	return s.orch, true
}

// Teardown закрывает поток сессии: отменяет незавершенную работу и
// сбрасывает состояние в памяти. Возврат или аннулирование платежа при
// этом не запрашиваются - это зона ответственности шлюза и бэкенда.
func (m *Manager) Teardown(sessionID string) bool {
	m.mu.Lock()
	s, exists := m.sessions[sessionID]
	if exists {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !exists {
		return false
	}

	s.cancel()
	s.orch.discard()
	m.log.Info("Tore down purchase flow for session: %s", sessionID)
	return true
}

// Close закрывает все живые потоки
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for id, s := range sessions {
		s.cancel()
		s.orch.discard()
		m.log.Debug("Closed purchase flow for session: %s", id)
	}
}
