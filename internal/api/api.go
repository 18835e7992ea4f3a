// 包 api：演示页面的 HTTP / WebSocket 接口；独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"geo-cluster/internal/kcenter"
	"geo-cluster/internal/lloyd"
	"geo-cluster/internal/logger"
	"geo-cluster/internal/metrics"
	"geo-cluster/internal/playback"
	"geo-cluster/internal/session"
)

var errNoSession = errors.New("session not found")

// Defaults：请求未携带 k 时使用的默认值
type Defaults struct {
	LloydK int
	NaiveK int
	// SolveTimeout：一次性穷举的最长耗时，0 表示只受请求上下文约束
	SolveTimeout time.Duration
}

type handler struct {
	reg  *session.Registry
	defs Defaults
}

// opResponse：操作返回当前帧；play 额外返回是否真正启动
type opResponse struct {
	session.View
	Started *bool `json:"started,omitempty"`
}

func BuildRoutes(reg *session.Registry, defs Defaults) *http.ServeMux {
	h := &handler{reg: reg, defs: defs}
	mux := http.NewServeMux()
	route := func(pattern, name string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, instrument(name, fn))
	}
	route("POST /session", "session_create", h.createSession)
	route("DELETE /session", "session_delete", h.deleteSession)

	route("GET /lloyd/frame", "lloyd_frame", h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		writeJSON(w, http.StatusOK, opResponse{View: s.LloydView()})
	}))
	route("POST /lloyd/reset", "lloyd_reset", h.withK(h.defs.LloydK, func(w http.ResponseWriter, r *http.Request, s *session.Session, k int) {
		v, err := s.LloydReset(k)
		writeOp(w, v, err)
	}))
	route("POST /lloyd/step", "lloyd_step", h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		v, err := s.LloydStep()
		writeOp(w, v, err)
	}))
	route("POST /lloyd/play", "lloyd_play", h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		v, ok := s.LloydPlay()
		writeJSON(w, http.StatusOK, opResponse{View: v, Started: &ok})
	}))
	route("POST /lloyd/pause", "lloyd_pause", h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		writeJSON(w, http.StatusOK, opResponse{View: s.LloydPause()})
	}))

	route("GET /naive/frame", "naive_frame", h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		writeJSON(w, http.StatusOK, opResponse{View: s.NaiveView()})
	}))
	route("POST /naive/solve", "naive_solve", h.withK(h.defs.NaiveK, func(w http.ResponseWriter, r *http.Request, s *session.Session, k int) {
		ctx := r.Context()
		if h.defs.SolveTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.defs.SolveTimeout)
			defer cancel()
		}
		v, err := s.NaiveSolve(ctx, k)
		writeOp(w, v, err)
	}))
	route("POST /naive/init", "naive_init", h.withK(h.defs.NaiveK, func(w http.ResponseWriter, r *http.Request, s *session.Session, k int) {
		v, err := s.NaiveInit(k)
		writeOp(w, v, err)
	}))
	route("POST /naive/step", "naive_step", h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		v, err := s.NaiveStep()
		writeOp(w, v, err)
	}))
	route("POST /naive/play", "naive_play", h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		v, ok := s.NaivePlay()
		writeJSON(w, http.StatusOK, opResponse{View: v, Started: &ok})
	}))
	route("POST /naive/pause", "naive_pause", h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		writeJSON(w, http.StatusOK, opResponse{View: s.NaivePause()})
	}))

	mux.HandleFunc("GET /ws", h.withSession(h.serveWS))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": reg.Len()})
	})
	return mux
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	s := h.reg.Create()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    s.ID,
		"lloyd": s.LloydView(),
		"naive": s.NaiveView(),
	})
}

func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	h.reg.Delete(sessionID(r))
	w.WriteHeader(http.StatusNoContent)
}

// sessionID：查询参数 sid 优先，其次 X-Session-ID 头
func sessionID(r *http.Request) string {
	if id := r.URL.Query().Get("sid"); id != "" {
		return id
	}
	return r.Header.Get("X-Session-ID")
}

func (h *handler) withSession(fn func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.reg.Get(sessionID(r))
		if !ok {
			writeError(w, http.StatusNotFound, errNoSession)
			return
		}
		fn(w, r, s)
	}
}

// withK：解析可选的 k 参数；非整数返回 400，缺省使用默认值
func (h *handler) withK(def int, fn func(http.ResponseWriter, *http.Request, *session.Session, int)) http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		k := def
		if v := r.URL.Query().Get("k"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, errors.New("k must be an integer"))
				return
			}
			k = n
		}
		fn(w, r, s, k)
	})
}

// statusFor：配置错误映射为 400，引擎未初始化（空点集）为 409，会话已关闭为 410，取消/超时为 503，其余为 500
func statusFor(err error) int {
	switch {
	case errors.Is(err, lloyd.ErrInvalidK), errors.Is(err, kcenter.ErrInvalidK), errors.Is(err, kcenter.ErrSearchTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, lloyd.ErrNotInitialized), errors.Is(err, kcenter.ErrNotInitialized):
		return http.StatusConflict
	case errors.Is(err, playback.ErrClosed):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeOp(w http.ResponseWriter, v session.View, err error) {
	if err != nil {
		code := statusFor(err)
		if code >= 500 {
			logger.L().Error("api_op_error", "engine", v.Engine, "err", err)
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, opResponse{View: v})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

type recorder struct {
	http.ResponseWriter
	status int
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func instrument(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(t0).Milliseconds()))
	}
}
