package classifier

import (
	"MineGuard/internal/entity"
	"context"
	"encoding/json"
	"fmt"
	"github.com/gorilla/websocket"
	"log"
	"os"
	"sync"
	"time"
)

// ItfClassifier talks to the external helmet detector over a WebSocket.
// One frame in (binary), one detection list out (JSON). Calls are
// serialized on a single connection.
type ItfClassifier interface {
	Detect(ctx context.Context, frame []byte) ([]entity.RawDetection, error)
	IsConnected() bool
	Reconnect() error
	Close()
}

type detectResponse struct {
	Detections []entity.RawDetection `json:"detections"`
}

type classifierClient struct {
	conn         *websocket.Conn
	mu           sync.Mutex
	url          string
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func New() ItfClassifier {
	url := os.Getenv("AI_DETECTOR_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/helmet/ws"
	}

	readTimeout := 10 * time.Second
	if raw := os.Getenv("AI_DETECTOR_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			readTimeout = parsed
		}
	}

	client := &classifierClient{
		url:          url,
		pingInterval: 30 * time.Second,
		readTimeout:  readTimeout,
		writeTimeout: 5 * time.Second,
	}

	go client.connectInBackground()

	return client
}

func (c *classifierClient) connectInBackground() {
	if err := c.Reconnect(); err != nil {
		log.Printf("Initial connection to helmet detector failed: %v. Will retry on demand.", err)
	} else {
		log.Printf("Successfully connected to helmet detector")
	}
}

func (c *classifierClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *classifierClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	log.Printf("Connecting to helmet detector at %s", c.url)

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			log.Printf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn

	go c.keepAlive()

	return nil
}

func (c *classifierClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *classifierClient) keepAlive() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		conn := c.conn
		if conn == nil {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(
			websocket.PingMessage,
			[]byte{},
			time.Now().Add(c.writeTimeout),
		)
		if err != nil {
			log.Printf("Ping to helmet detector failed, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

// Detect sends one frame and waits for the detection list. The connection
// is held for the whole exchange so concurrent sessions cannot interleave
// requests and responses.
func (c *classifierClient) Detect(ctx context.Context, frame []byte) ([]entity.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		if err := c.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to helmet detector: %w", err)
		}
		c.mu.Lock()
		if c.conn == nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("helmet detector connection lost")
		}
	}
	conn := c.conn
	defer c.mu.Unlock()

	writeDeadline := c.boundedDeadline(ctx, c.writeTimeout)
	conn.SetWriteDeadline(writeDeadline)

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.conn = nil
		conn.Close()
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	readDeadline := c.boundedDeadline(ctx, c.readTimeout)
	conn.SetReadDeadline(readDeadline)

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.conn = nil
		conn.Close()
		return nil, fmt.Errorf("error reading detector response: %w", err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	var result detectResponse
	if err := json.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling detector response: %w", err)
	}

	return result.Detections, nil
}

func (c *classifierClient) boundedDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}
