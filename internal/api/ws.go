package api

import (
	"net/http"
	"time"

	"geo-cluster/internal/logger"
	"geo-cluster/internal/session"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 16 * 1024}

// serveWS：连接建立后先推送两个引擎的当前帧，之后每次状态变化（含自动播放 tick）推送一帧
// 约束：客户端只读；读循环仅用于感知断开与 pong
func (h *handler) serveWS(w http.ResponseWriter, r *http.Request, s *session.Session) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Debug("ws_upgrade_failed", "err", err)
		return
	}
	defer conn.Close()
	frames, cancel := s.Subscribe()
	defer cancel()
	logger.L().Debug("ws_open", "sid", s.ID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v session.View) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v) == nil
	}
	if !send(s.LloydView()) || !send(s.NaiveView()) {
		return
	}
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			logger.L().Debug("ws_closed", "sid", s.ID)
			return
		case v, ok := <-frames:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"), time.Now().Add(writeWait))
				return
			}
			if !send(v) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
