package realtime

import (
	"sync"
	"time"
)

// TypingTracker auto-expires typing indicators. A client that starts typing
// and then disconnects or forgets to send a stop must not leave a phantom
// indicator: every start arms a timer that fires the stop callback.
type TypingTracker struct {
	mu     sync.Mutex
	timers map[typingKey]*time.Timer
	expiry time.Duration
	onStop func(roomID, userID string)
}

type typingKey struct {
	roomID string
	userID string
}

// NewTypingTracker creates a tracker firing onStop when an indicator expires
// or is explicitly stopped.
func NewTypingTracker(expiry time.Duration, onStop func(roomID, userID string)) *TypingTracker {
	return &TypingTracker{
		timers: make(map[typingKey]*time.Timer),
		expiry: expiry,
		onStop: onStop,
	}
}

// Start marks the user typing in the room. A repeated start re-arms the
// expiry timer.
func (t *TypingTracker) Start(roomID, userID string) {
	key := typingKey{roomID: roomID, userID: userID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[key]; ok {
		timer.Reset(t.expiry)
		return
	}
	t.timers[key] = time.AfterFunc(t.expiry, func() {
		t.expire(key)
	})
}

// Stop clears the indicator and fires the stop callback if it was active.
func (t *TypingTracker) Stop(roomID, userID string) {
	key := typingKey{roomID: roomID, userID: userID}

	t.mu.Lock()
	timer, ok := t.timers[key]
	if ok {
		timer.Stop()
		delete(t.timers, key)
	}
	t.mu.Unlock()

	if ok {
		t.onStop(roomID, userID)
	}
}

// StopAll clears every indicator the user holds, across rooms. Called when
// the user's last connection drops.
func (t *TypingTracker) StopAll(userID string) {
	t.mu.Lock()
	var expired []typingKey
	for key, timer := range t.timers {
		if key.userID == userID {
			timer.Stop()
			delete(t.timers, key)
			expired = append(expired, key)
		}
	}
	t.mu.Unlock()

	for _, key := range expired {
		t.onStop(key.roomID, key.userID)
	}
}

// Active reports whether the user currently shows as typing in the room.
func (t *TypingTracker) Active(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[typingKey{roomID: roomID, userID: userID}]
	return ok
}

func (t *TypingTracker) expire(key typingKey) {
	t.mu.Lock()
	_, ok := t.timers[key]
	if ok {
		delete(t.timers, key)
	}
	t.mu.Unlock()

	if ok {
		t.onStop(key.roomID, key.userID)
	}
}
