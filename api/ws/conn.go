package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/interview"
)

// Conn 把 WebSocket 连接适配为 interview.Emitter。
// WebSocket 不支持并发写，写操作由 mu 保护。
type Conn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       *zap.Logger

	mu     sync.Mutex
	closed bool
}

var _ interview.Emitter = (*Conn)(nil)

// NewConn wraps an accepted connection.
func NewConn(c *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{conn: c, writeTimeout: writeTimeout, logger: logger}
}

// Emit 发送一条 JSON 文本消息
func (c *Conn) Emit(ctx context.Context, msg interview.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.write(ctx, websocket.MessageText, data)
}

// EmitAudio 发送一段二进制 PCM
func (c *Conn) EmitAudio(ctx context.Context, audio []byte) error {
	return c.write(ctx, websocket.MessageBinary, audio)
}

func (c *Conn) write(ctx context.Context, typ websocket.MessageType, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("websocket: connection closed")
	}
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	if err := c.conn.Write(ctx, typ, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Read 读取下一条消息
func (c *Conn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	return c.conn.Read(ctx)
}

// Close 以给定状态关闭连接，可重复调用
func (c *Conn) Close(code websocket.StatusCode, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.conn.Close(code, reason); err != nil {
		c.logger.Debug("websocket close", zap.Error(err))
	}
}
