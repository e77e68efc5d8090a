package service

import (
	"sync/atomic"
	"time"
)

// State — жив ли процесс и принимает ли трафик. Поставляется
// health-ручкам, рабочее состояние движка отдаётся отдельным срезом.
type State struct {
	ready     atomic.Bool
	startedAt time.Time
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
