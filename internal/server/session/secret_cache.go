package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/dmitrijs2005/pinmail/internal/shared"
)

type secretEntry struct {
	sessionID string
	userID    string
	password  []byte
	lastUsed  time.Time
}

// SecretCache holds unlock passwords in process memory, keyed by session id.
//
// It is a bounded LRU: the least recently used entry is evicted once
// capacity is reached, and entries idle longer than idleTimeout are dropped
// on access. Every removed password is zeroed. Values are copied on the way
// in and out so callers may wipe their own slices.
type SecretCache struct {
	mu          sync.Mutex
	capacity    int
	idleTimeout time.Duration
	items       map[string]*list.Element
	order       *list.List
	now         func() time.Time
}

func NewSecretCache(capacity int, idleTimeout time.Duration) *SecretCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &SecretCache{
		capacity:    capacity,
		idleTimeout: idleTimeout,
		items:       make(map[string]*list.Element),
		order:       list.New(),
		now:         time.Now,
	}
}

// Set stores password for the session, replacing any previous value.
func (c *SecretCache) Set(sessionID, userID string, password []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[sessionID]; ok {
		c.removeElement(elem)
	}

	for c.order.Len() >= c.capacity {
		c.removeElement(c.order.Back())
	}

	e := &secretEntry{
		sessionID: sessionID,
		userID:    userID,
		password:  shared.CloneBytes(password),
		lastUsed:  c.now(),
	}
	c.items[sessionID] = c.order.PushFront(e)
}

// Get returns a copy of the session's password. An entry stored for another
// user is treated as absent.
func (c *SecretCache) Get(sessionID, userID string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[sessionID]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*secretEntry)
	if e.userID != userID {
		return nil, false
	}
	if c.expired(e) {
		c.removeElement(elem)
		return nil, false
	}

	e.lastUsed = c.now()
	c.order.MoveToFront(elem)
	return shared.CloneBytes(e.password), true
}

// Clear drops the session's password.
func (c *SecretCache) Clear(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[sessionID]; ok {
		c.removeElement(elem)
	}
}

// ClearUser drops every password cached for userID and returns the count.
func (c *SecretCache) ClearUser(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*secretEntry).userID == userID {
			c.removeElement(elem)
			n++
		}
		elem = next
	}
	return n
}

// Sweep drops idle entries and returns the count.
func (c *SecretCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*secretEntry)) {
			c.removeElement(elem)
			n++
		}
		elem = prev
	}
	return n
}

func (c *SecretCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *SecretCache) expired(e *secretEntry) bool {
	return c.idleTimeout > 0 && c.now().Sub(e.lastUsed) > c.idleTimeout
}

// removeElement unlinks and wipes an entry. Caller holds mu.
func (c *SecretCache) removeElement(elem *list.Element) {
	e := elem.Value.(*secretEntry)
	shared.WipeByteArray(e.password)
	delete(c.items, e.sessionID)
	c.order.Remove(elem)
}
