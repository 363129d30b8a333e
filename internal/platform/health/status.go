package health

import (
	"sync"

	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
)

// State 定义了Redis依赖的健康状态
type State int

const (
	StateHealthy State = iota
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Status 负责线程安全地记录Redis的健康状态和最近一次看到的run_id
type Status struct {
	mu             sync.RWMutex
	currentState   State
	lastKnownRunID string
}

// NewStatus 创建一个初始为健康的状态
func NewStatus() *Status {
	return &Status{currentState: StateHealthy}
}

// State 返回当前状态
func (s *Status) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentState
}

// IsHealthy 供请求路径快速判断Redis是否可用
func (s *Status) IsHealthy() bool {
	return s.State() == StateHealthy
}

// SetInitialRunID 在启动时记录Redis的run_id
func (s *Status) SetInitialRunID(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnownRunID = runID
}

// Assess 根据一次检查结果推进状态，返回Redis是否在两次检查之间重启过。
// runID 为空表示本次没有拿到run_id，此时不做重启判断。
func (s *Status) Assess(connected bool, runID string) (restarted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.currentState {
	case StateHealthy:
		if !connected {
			s.currentState = StateDegraded
			logging.Log.Warn().Msg("健康检查: Redis连接丢失，系统状态 -> [降级]")
		}
	case StateDegraded:
		if connected {
			s.currentState = StateHealthy
			logging.Log.Info().Msg("健康检查: Redis连接已恢复，系统状态 -> [健康]")
		}
	}

	if connected && runID != "" {
		if s.lastKnownRunID != "" && s.lastKnownRunID != runID {
			restarted = true
			logging.Log.Warn().
				Str("old_run_id", s.lastKnownRunID).
				Str("new_run_id", runID).
				Msg("健康检查: 检测到Redis重启")
		}
		s.lastKnownRunID = runID
	}

	return restarted
}
