package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/api"
	"github.com/Adhikkesh/Erflog/interview"
	"github.com/Adhikkesh/Erflog/types"
)

// SessionLookup 跨实例的会话快照来源（Redis 镜像）
type SessionLookup interface {
	GetSession(ctx context.Context, id string) (*interview.Session, bool, error)
}

// SessionHandler 在线会话查询
type SessionHandler struct {
	registry *interview.Registry
	mirror   SessionLookup
	logger   *zap.Logger
}

// NewSessionHandler mirror 可为 nil
func NewSessionHandler(registry *interview.Registry, mirror SessionLookup, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{registry: registry, mirror: mirror, logger: logger.With(zap.String("component", "session_handler"))}
}

// HandleList 列出本进程的在线会话
// @Summary 在线会话
// @Tags 会话
// @Produce json
// @Success 200 {object} api.SessionList "会话列表"
// @Security ApiKeyAuth
// @Router /api/v1/sessions [get]
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sessions := h.registry.List()
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.Before(sessions[j].CreatedAt) })

	out := api.SessionList{Sessions: make([]api.SessionSummary, 0, len(sessions)), Total: len(sessions)}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, summarize(s))
	}
	WriteSuccess(w, out)
}

// HandleGet 查询单个会话：先查本地注册表，再查 Redis 镜像
// @Summary 会话详情
// @Tags 会话
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} interview.Session "会话快照"
// @Failure 404 {object} Response "会话不存在"
// @Security ApiKeyAuth
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "session id is required", h.logger)
		return
	}
	if s, ok := h.registry.Get(id); ok {
		WriteSuccess(w, s)
		return
	}
	if h.mirror != nil {
		s, ok, err := h.mirror.GetSession(r.Context(), id)
		if err != nil {
			h.logger.Warn("session mirror lookup failed", zap.String("session_id", id), zap.Error(err))
		} else if ok {
			WriteSuccess(w, s)
			return
		}
	}
	WriteErrorMessage(w, r, http.StatusNotFound, types.ErrNotFound, "session not found", h.logger)
}

func summarize(s interview.Session) api.SessionSummary {
	return api.SessionSummary{
		ID:            s.ID,
		Mode:          string(s.Mode),
		InterviewType: string(s.Kind),
		UserID:        s.UserID,
		JobID:         s.JobID,
		Phase:         string(s.Phase),
		Stage:         s.Stage,
		TurnCount:     s.TurnCount,
		CreatedAt:     s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
