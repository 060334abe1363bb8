package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"cbmonitor.com/internal/quotes/wsmetrics"
	"cbmonitor.com/pkg/logger"
)

const maxBatch = 256 // 单次最多写多少帧

var newline = []byte{'\n'}

// Server 处理 /ws 升级和每个连接的读写协程
type Server struct {
	Hub      *Hub
	Upgrader websocket.Upgrader
	ctx      context.Context

	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
	ReadLimit  int64

	// 每连接每秒最多写几批
	WriteRate  rate.Limit
	WriteBurst int
}

func NewServer(ctx context.Context, h *Hub) *Server {
	return &Server{
		Hub: h,
		ctx: ctx,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true }, // 本地观察用
		},
		PongWait:   60 * time.Second,
		PingPeriod: 30 * time.Second,
		WriteWait:  5 * time.Second,
		ReadLimit:  1 << 10,
		WriteRate:  20,
		WriteBurst: 5,
	}
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug(r.Context(), "ws upgrade failed", zap.Error(err))
		return
	}
	c := NewConn(s.Hub, wsConn, s.WriteRate, s.WriteBurst)
	wsmetrics.Conns.Inc()
	go s.writeLoop(c)
	go s.readLoop(c)
}

// readLoop 处理 sub/unsub，连接断开后负责清理
func (s *Server) readLoop(c *Conn) {
	defer func() {
		c.markClosed()
		c.hub.RemoveConn(c)
		_ = c.ws.Close()
		wsmetrics.Conns.Dec()
	}()

	c.ws.SetReadLimit(s.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(s.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(s.PongWait))
	})

	for s.ctx.Err() == nil {
		_, b, err := c.ws.ReadMessage()
		if err != nil {
			s.logReadErr(err)
			return
		}
		var msg ClientMsg
		if json.Unmarshal(b, &msg) != nil {
			wsmetrics.SubOpsTotal.WithLabelValues("invalid").Inc()
			continue
		}
		switch msg.Type {
		case "sub":
			c.hub.Subscribe(c, msg.Topics)
		case "unsub":
			c.hub.Unsubscribe(c, msg.Topics)
		default:
			wsmetrics.SubOpsTotal.WithLabelValues("invalid").Inc()
		}
	}
}

func (s *Server) logReadErr(err error) {
	var ne net.Error
	switch {
	case errors.As(err, &ne) && ne.Timeout():
		logger.Debug(s.ctx, "ws read timeout", zap.Error(err))
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
	default:
		logger.Debug(s.ctx, "ws read error", zap.Error(err))
	}
}

// writeLoop 唯一的写者：批量写帧 + 定时 ping
func (s *Server) writeLoop(c *Conn) {
	ping := time.NewTicker(s.PingPeriod)
	defer func() {
		ping.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.wake:
			if err := s.flush(c); err != nil {
				return
			}
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.WriteWait)); err != nil {
				return
			}
		case <-c.done:
			return
		case <-s.ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"), time.Now().Add(s.WriteWait))
			return
		}
	}
}

func (s *Server) flush(c *Conn) error {
	if err := c.limiter.Wait(s.ctx); err != nil {
		return err
	}
	batch, more := c.take(maxBatch)
	if more {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
	if len(batch) == 0 {
		return nil
	}
	start := time.Now()
	err := s.writeBatch(c.ws, batch)
	wsmetrics.ObserveWrite(len(batch), time.Since(start), err)
	return err
}

// writeBatch 一帧 ws 消息里写多条 JSON，换行分隔
func (s *Server) writeBatch(ws *websocket.Conn, batch [][]byte) error {
	_ = ws.SetWriteDeadline(time.Now().Add(s.WriteWait))
	w, err := ws.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	for i, payload := range batch {
		if i > 0 {
			if _, err = w.Write(newline); err != nil {
				break
			}
		}
		if _, err = w.Write(payload); err != nil {
			break
		}
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}
