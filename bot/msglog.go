package bot

import (
	"sync"
	"time"
)

const msgLogCap = 100

type logEntry struct {
	Author  string
	Content string
	When    time.Time
}

// msgLog is an in-memory per-channel ring of recent messages. Channels are
// only logged after an explicit start; the log does not survive restarts.
type msgLog struct {
	mu       sync.Mutex
	channels map[string][]logEntry
}

func newMsgLog() *msgLog {
	return &msgLog{channels: make(map[string][]logEntry)}
}

// Start begins logging a channel. Returns false if it was already logged.
func (l *msgLog) Start(channelID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.channels[channelID]; ok {
		return false
	}
	l.channels[channelID] = []logEntry{}
	return true
}

// Stop ends logging a channel and discards its entries. Returns false if
// the channel was not being logged.
func (l *msgLog) Stop(channelID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.channels[channelID]; !ok {
		return false
	}
	delete(l.channels, channelID)
	return true
}

func (l *msgLog) Logged(channelID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.channels[channelID]
	return ok
}

func (l *msgLog) Add(channelID, author, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, ok := l.channels[channelID]
	if !ok {
		return
	}
	entries = append(entries, logEntry{Author: author, Content: content, When: time.Now()})
	if len(entries) > msgLogCap {
		entries = entries[len(entries)-msgLogCap:]
	}
	l.channels[channelID] = entries
}

// Recent returns up to n entries, newest first.
func (l *msgLog) Recent(channelID string, n int) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.channels[channelID]
	if len(entries) == 0 {
		return nil
	}
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]logEntry, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		out = append(out, entries[i])
	}
	return out
}
