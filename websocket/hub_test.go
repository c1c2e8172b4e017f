package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/scholarlink/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	mu     sync.Mutex
	events []Event
	fail   bool
	closed bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.events = append(c.events, v.(Event))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func startHub(t *testing.T) *Hub {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestPublishReachesEveryConnectionOfRecipient(t *testing.T) {
	hub := startHub(t)
	phone, laptop, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register(&Client{Email: "sam@example.com", Conn: phone})
	hub.Register(&Client{Email: "sam@example.com", Conn: laptop})
	hub.Register(&Client{Email: "tina@example.com", Conn: other})

	hub.Publish(models.Notification{ID: uuid.New(), RecipientEmail: "sam@example.com", Title: "hi"})

	assert.Eventually(t, func() bool { return phone.received() == 1 && laptop.received() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, other.received())
	assert.Equal(t, "notification", phone.events[0].Type)
}

func TestFailedWriteDropsConnection(t *testing.T) {
	hub := startHub(t)
	broken := &fakeConn{fail: true}
	hub.Register(&Client{Email: "sam@example.com", Conn: broken})

	hub.Publish(models.Notification{ID: uuid.New(), RecipientEmail: "sam@example.com"})
	assert.Eventually(t, broken.isClosed, time.Second, 5*time.Millisecond)

	broken.mu.Lock()
	broken.fail = false
	broken.mu.Unlock()
	hub.Publish(models.Notification{ID: uuid.New(), RecipientEmail: "sam@example.com"})
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, broken.received())
}

func TestUnregister(t *testing.T) {
	hub := startHub(t)
	conn := &fakeConn{}
	client := &Client{Email: "sam@example.com", Conn: conn}
	hub.Register(client)
	hub.Unregister(client)

	hub.Publish(models.Notification{ID: uuid.New(), RecipientEmail: "sam@example.com"})
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, conn.received())
}

func TestPublishDoesNotBlockWhenQueueFull(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(hub.broadcast)+10; i++ {
			hub.Publish(models.Notification{ID: uuid.New()})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestRunClosesConnectionsOnShutdown(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() { hub.Run(ctx); close(stopped) }()

	conn := &fakeConn{}
	hub.Register(&Client{Email: "sam@example.com", Conn: conn})
	cancel()
	<-stopped
	assert.True(t, conn.isClosed())
}

func TestRegisterAndUnregisterReturnAfterShutdown(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() { hub.Run(ctx); close(stopped) }()

	client := &Client{Email: "sam@example.com", Conn: &fakeConn{}}
	hub.Register(client)
	cancel()
	<-stopped

	late := &fakeConn{}
	returned := make(chan struct{})
	go func() {
		hub.Unregister(client)
		hub.Register(&Client{Email: "tina@example.com", Conn: late})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Register/Unregister blocked after shutdown")
	}
	assert.True(t, late.isClosed())
}
