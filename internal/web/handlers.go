package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cardclub/tabled/internal/audit"
	"github.com/cardclub/tabled/internal/billing"
	"github.com/cardclub/tabled/internal/clock"
	"github.com/cardclub/tabled/internal/metrics"
	"github.com/cardclub/tabled/internal/policy"
	"github.com/cardclub/tabled/internal/storage"
	"github.com/gin-gonic/gin"
)

// sessionRow is one rendered line of the session table.
type sessionRow struct {
	SessionID  int64  `json:"session_id"`
	PlayerID   int64  `json:"player_id"`
	PlayerName string `json:"player_name"`
	Start      string `json:"start"`
	Stop       string `json:"stop"`
	Duration   string `json:"duration"`
	Fee        string `json:"fee"`
	Running    bool   `json:"running"`
}

func (s *Server) handleHealth(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleIndex(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "index.html", gin.H{
		"ClubName": s.config.ClubName,
	})
}

func (s *Server) handleLoginPage(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "login.html", gin.H{
		"ClubName": s.config.ClubName,
	})
}

func (s *Server) handleLogin(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	token, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
		return
	}

	ctx.SetCookie(tokenCookie, token, int(s.auth.tokenExpiration.Seconds()), "/", "", false, true)
	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleLogout(ctx *gin.Context) {
	ctx.SetCookie(tokenCookie, "", -1, "/", "", false, true)
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleListSessions returns the live session table. Open sessions carry
// a duration and fee computed against the wall clock at this instant.
func (s *Server) handleListSessions(ctx *gin.Context) {
	lines, err := s.ledger.ListSessions(ctx.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list sessions")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "storage_unavailable"})
		return
	}

	rows := make([]sessionRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, sessionRow{
			SessionID:  line.ID,
			PlayerID:   line.PlayerID,
			PlayerName: line.PlayerName,
			Start:      clock.Stamp(time.Unix(line.StartEpoch, 0).In(s.location)),
			Stop:       clock.Stamp(time.Unix(line.EffectiveStop, 0).In(s.location)),
			Duration:   billing.FormatDuration(line.Seconds),
			Fee:        billing.FormatFee(line.Fee),
			Running:    line.Running,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"server_time": s.wall.Now().Format("2006-01-02 " + s.resolution.TimeFormat()),
		"sessions":    rows,
		"count":       len(rows),
	})
}

// handleCloseSession stops an open session at the current minute.
// Closing a session that is not open is a warning, not a failure.
func (s *Server) handleCloseSession(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_session_id"})
		return
	}

	stop := policy.StopTime(s.wall.Now())
	if err := s.ledger.CloseSession(ctx.Request.Context(), id, stop); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Int64("session_id", id).Msg("Close requested for session that is not open")
			ctx.JSON(http.StatusNotFound, gin.H{"warning": "session_not_open"})
			return
		}
		s.logger.Error().Err(err).Int64("session_id", id).Msg("Failed to close session")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "storage_unavailable"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "closed", "session_id": id})
}

func (s *Server) handleRoster(ctx *gin.Context) {
	roster, err := s.store.Players().Roster(ctx.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load roster")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "storage_unavailable"})
		return
	}

	type rosterRow struct {
		PlayerID    int64  `json:"player_id"`
		DisplayName string `json:"display_name"`
		Balance     string `json:"balance"`
		InArrears   bool   `json:"in_arrears"`
	}
	rows := make([]rosterRow, 0, len(roster))
	for _, entry := range roster {
		rows = append(rows, rosterRow{
			PlayerID:    entry.PlayerID,
			DisplayName: entry.DisplayName,
			Balance:     billing.FormatFee(entry.Balance),
			InArrears:   entry.Balance.Sign() < 0,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"roster": rows, "count": len(rows)})
}

// handleSelectPlayer runs the selection policy for a roster pick and
// reports which way it went.
func (s *Server) handleSelectPlayer(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_player_id"})
		return
	}

	player, err := s.store.Players().Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "player_not_found"})
			return
		}
		s.logger.Error().Err(err).Int64("player_id", id).Msg("Failed to load player")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "storage_unavailable"})
		return
	}

	decision, err := s.selector.OnPlayerSelected(ctx.Request.Context(), storage.RosterEntry{
		PlayerID:    player.ID,
		DisplayName: player.DisplayName(),
		Balance:     player.Balance,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "open_session_exists"})
			return
		}
		s.logger.Error().Err(err).Int64("player_id", id).Msg("Player selection failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "storage_unavailable"})
		return
	}

	resp := gin.H{"action": decision.Action}
	if decision.Session != nil {
		resp["session_id"] = decision.Session.ID
	}
	ctx.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetClock(ctx *gin.Context) {
	now := s.wall.Now()
	ctx.JSON(http.StatusOK, gin.H{
		"time":           now.Format("2006-01-02 " + s.resolution.TimeFormat()),
		"offset_seconds": int64(s.wall.Offset().Seconds()),
	})
}

// handleSetClock resets the wall clock to an operator-entered time.
// Unparseable text means "no value supplied": the reset is cancelled and
// the clock unchanged.
func (s *Server) handleSetClock(ctx *gin.Context) {
	var req struct {
		Time string `json:"time"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Time == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	target, err := clock.ParseClubTime(req.Time, s.location)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"warning": "unparseable_time"})
		return
	}

	s.wall.SetOffset(target)
	metrics.ClockResets.Inc()
	if s.trail != nil {
		if err := s.trail.Append(ctx.Request.Context(), audit.Event{
			Kind:   audit.KindClockReset,
			Detail: req.Time,
		}); err != nil {
			s.logger.Error().Err(err).Msg("Failed to record audit event")
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"time": s.wall.Now().Format("2006-01-02 " + s.resolution.TimeFormat()),
	})
}

func (s *Server) handleAudit(ctx *gin.Context) {
	n := 50
	if raw := ctx.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_count"})
			return
		}
		n = parsed
	}

	if s.trail == nil {
		ctx.JSON(http.StatusOK, gin.H{"events": []audit.Event{}, "count": 0})
		return
	}

	events, err := s.trail.Recent(ctx.Request.Context(), n)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read audit events")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "storage_unavailable"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
