package service

import (
	"sync"

	"auto_trader/internal/models"
)

const DefaultLogCap = 50

// SignalLog — журнал попыток отправки ордеров: свежие в голове,
// хвост за пределами ёмкости отваливается.
type SignalLog struct {
	mu       sync.Mutex
	capacity int
	entries  []models.TradeLogEntry
}

func NewSignalLog(capacity int) *SignalLog {
	if capacity <= 0 {
		capacity = DefaultLogCap
	}
	return &SignalLog{capacity: capacity}
}

func (l *SignalLog) Append(e models.TradeLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]models.TradeLogEntry{e}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
}

// Update переводит запись pending -> sent/error по id.
// Запись может быть уже вытеснена — тогда false.
func (l *SignalLog) Update(id string, status models.TradeStatus, message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].Status = status
			l.entries[i].Message = message
			return true
		}
	}
	return false
}

// Entries — копия журнала, свежие первыми.
func (l *SignalLog) Entries() []models.TradeLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.TradeLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *SignalLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
