package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_trader/internal/models"
)

func TestSignalLogNewestFirst(t *testing.T) {
	l := NewSignalLog(5)
	l.Append(models.TradeLogEntry{ID: "a"})
	l.Append(models.TradeLogEntry{ID: "b"})

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].ID)
	assert.Equal(t, "a", entries[1].ID)
}

func TestSignalLogTrimsTail(t *testing.T) {
	l := NewSignalLog(3)
	for i := 0; i < 5; i++ {
		l.Append(models.TradeLogEntry{ID: fmt.Sprintf("e%d", i)})
	}
	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "e4", entries[0].ID)
	assert.Equal(t, "e2", entries[2].ID)
}

func TestSignalLogUpdate(t *testing.T) {
	l := NewSignalLog(3)
	l.Append(models.TradeLogEntry{ID: "x", Status: models.TradePending})

	require.True(t, l.Update("x", models.TradeSent, "retcode 10009"))
	e := l.Entries()[0]
	assert.Equal(t, models.TradeSent, e.Status)
	assert.Equal(t, "retcode 10009", e.Message)

	// вытесненная запись обновлению не поддаётся
	for i := 0; i < 3; i++ {
		l.Append(models.TradeLogEntry{ID: fmt.Sprintf("e%d", i)})
	}
	assert.False(t, l.Update("x", models.TradeError, "late"))
}

func TestSignalLogEntriesIsACopy(t *testing.T) {
	l := NewSignalLog(3)
	l.Append(models.TradeLogEntry{ID: "a", Status: models.TradePending})

	snap := l.Entries()
	snap[0].Status = models.TradeError

	assert.Equal(t, models.TradePending, l.Entries()[0].Status)
}
