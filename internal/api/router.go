package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cardroom-service/internal/middleware"
	"cardroom-service/internal/service"
	channelsSvc "cardroom-service/internal/service/channels"
	"cardroom-service/internal/service/game"
	"cardroom-service/internal/ws"
	appErr "cardroom-service/pkg/errors"
	"cardroom-service/pkg/response"
	netutil "cardroom-service/pkg/utils/net"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Game, services.Auth, services.Presence)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/cardroom/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/guest", handler.GuestLogin)
		}

		v1.GET("/channels", handler.ListChannels)

		playerGroup := v1.Group("/")
		playerGroup.Use(middleware.AuthRequired())
		{
			playerGroup.GET("/wallet", handler.GetWallet)
			playerGroup.GET("/wallet/payouts", handler.GetPayouts)
			playerGroup.GET("/channels/:channelId/hands", handler.GetHandHistory)
		}
	}

	adminGroup := r.Group("/admin")
	{
		adminGroup.POST("/auth/login", handler.AdminLogin)

		protected := adminGroup.Group("/")
		protected.Use(middleware.AdminAuthRequired())
		{
			protected.GET("/channels", handler.AdminListChannels)
			protected.POST("/channels", handler.AdminCreateChannel)
			protected.PUT("/channels/:id", handler.AdminUpdateChannel)

			protected.GET("/sessions", handler.AdminListSessions)
			protected.DELETE("/sessions/:channelId", handler.AdminDestroySession)

			protected.PUT("/players/:id/ban", handler.AdminBanPlayer)
			protected.PUT("/players/:id/wallet", handler.AdminSetPlayerWallet)
		}
	}

	r.GET("/ws/channel/:channelId", wsHandler.HandleChannelWS)
}

type guestLoginBody struct {
	Nickname string `json:"nickname"`
}

type adminLoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type adminPlayerBanBody struct {
	Status string `json:"status" binding:"required"`
}

type adminSetWalletBody struct {
	BalanceAvailable int64 `json:"balanceAvailable" binding:"min=0"`
}

type channelMutationBody struct {
	ChannelID   string `json:"channelId"`
	Variant     string `json:"variant"`
	SeatCount   int    `json:"seatCount"`
	Ante        int64  `json:"ante"`
	MinBuyIn    int64  `json:"minBuyIn"`
	MaxBuyIn    int64  `json:"maxBuyIn"`
	TurnSeconds int    `json:"turnSeconds"`
	Status      string `json:"status" binding:"omitempty,oneof=enabled disabled"`
}

func (b channelMutationBody) toParams() channelsSvc.ChannelMutationParams {
	return channelsSvc.ChannelMutationParams{
		ChannelID:   strings.TrimSpace(b.ChannelID),
		Variant:     strings.TrimSpace(b.Variant),
		SeatCount:   b.SeatCount,
		Ante:        b.Ante,
		MinBuyIn:    b.MinBuyIn,
		MaxBuyIn:    b.MaxBuyIn,
		TurnSeconds: b.TurnSeconds,
		Status:      strings.ToLower(strings.TrimSpace(b.Status)),
	}
}

func (h *Handler) GuestLogin(c *gin.Context) {
	var body guestLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Auth.GuestLogin(c.Request.Context(), body.Nickname)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrValidation) {
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}
	response.Success(c, resp)
}

func (h *Handler) ListChannels(c *gin.Context) {
	channels, err := h.services.Channels.ListChannels(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"channels": channels})
}

func (h *Handler) GetWallet(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallet, err := h.services.Wallet.GetWallet(c.Request.Context(), playerID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"wallet": wallet})
}

func (h *Handler) GetPayouts(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := h.services.Ledger.PlayerPayouts(c.Request.Context(), playerID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"payouts": entries})
}

func (h *Handler) GetHandHistory(c *gin.Context) {
	channelID := strings.TrimSpace(c.Param("channelId"))
	if channelID == "" {
		response.Error(c, http.StatusBadRequest, "invalid channel id")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	hands, err := h.services.Ledger.HandHistory(c.Request.Context(), channelID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"hands": hands})
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var body adminLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Admin.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch err {
		case appErr.ErrAdminNotFound, appErr.ErrInvalidAdminPassword:
			status = http.StatusUnauthorized
		case appErr.ErrAdminDisabled:
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}
	response.Success(c, resp)
}

func (h *Handler) AdminListChannels(c *gin.Context) {
	channels, err := h.services.Channels.ListChannels(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"channels": channels})
}

func (h *Handler) AdminCreateChannel(c *gin.Context) {
	var body channelMutationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.services.Channels.CreateChannel(c.Request.Context(), body.toParams())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, gorm.ErrDuplicatedKey):
			status = http.StatusConflict
		}
		response.Error(c, status, err.Error())
		return
	}
	response.Success(c, gin.H{"id": cfg.ID})
}

func (h *Handler) AdminUpdateChannel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid channel id")
		return
	}

	var body channelMutationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.services.Channels.UpdateChannel(c.Request.Context(), id, body.toParams())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrChannelConfigNotFound):
			status = http.StatusNotFound
		case errors.Is(err, appErr.ErrValidation):
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}
	response.Success(c, cfg)
}

type sessionRow struct {
	game.ChannelInfo
	Online         int64    `json:"online"`
	SharedSubnets  []string `json:"sharedSubnets,omitempty"`
	FlaggedPlayers []int64  `json:"flaggedPlayers,omitempty"`
}

// AdminListSessions lists live sessions and flags seated players whose
// connections come from the same /24 subnet.
func (h *Handler) AdminListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	infos := h.services.Game.Introspect()

	rows := make([]sessionRow, 0, len(infos))
	for _, info := range infos {
		row := sessionRow{ChannelInfo: info}

		players, err := h.services.Presence.ChannelPlayers(ctx, info.ChannelID)
		if err == nil {
			row.Online = int64(len(players))
			bySubnet := make(map[string][]int64)
			for _, pid := range players {
				if subnet := netutil.Subnet24(h.services.Presence.PlayerIP(ctx, pid)); subnet != "" {
					bySubnet[subnet] = append(bySubnet[subnet], pid)
				}
			}
			for subnet, ids := range bySubnet {
				if len(ids) >= 2 {
					row.SharedSubnets = append(row.SharedSubnets, subnet)
					row.FlaggedPlayers = append(row.FlaggedPlayers, ids...)
				}
			}
		}
		rows = append(rows, row)
	}
	response.Success(c, gin.H{"sessions": rows, "total": len(rows)})
}

func (h *Handler) AdminDestroySession(c *gin.Context) {
	channelID := strings.TrimSpace(c.Param("channelId"))
	if channelID == "" {
		response.Error(c, http.StatusBadRequest, "invalid channel id")
		return
	}
	h.services.Game.DestroyChannel(channelID)
	response.SuccessWithMsg(c, gin.H{"channelId": channelID}, "session destroyed")
}

func (h *Handler) AdminBanPlayer(c *gin.Context) {
	playerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || playerID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid player id")
		return
	}

	var body adminPlayerBanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	status := strings.ToLower(strings.TrimSpace(body.Status))
	if err := h.services.Auth.SetPlayerStatus(c.Request.Context(), playerID, status); err != nil {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrValidation):
			statusCode = http.StatusBadRequest
		case errors.Is(err, appErr.ErrUnauthorized):
			statusCode = http.StatusNotFound
		}
		response.Error(c, statusCode, err.Error())
		return
	}
	response.Success(c, gin.H{"playerId": playerID, "status": status})
}

func (h *Handler) AdminSetPlayerWallet(c *gin.Context) {
	playerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || playerID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid player id")
		return
	}

	var body adminSetWalletBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	wallet, err := h.services.Wallet.AdminAdjust(c.Request.Context(), playerID, body.BalanceAvailable)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrInvalidWalletPayload) {
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}
	response.Success(c, gin.H{"wallet": wallet})
}

func getPlayerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ContextPlayerIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
