package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"wallets/internal/apperror"
	"wallets/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 16

//go:generate mockgen -source=http_handlers.go -destination=../mocks/mock_wallet_service.go -package=mocks WalletService

type WalletService interface {
	GetBalance(ctx context.Context, walletID uuid.UUID) (models.WalletResponse, error)
	ApplyMutation(ctx context.Context, req models.WalletRequest) (models.WalletResponse, error)
}

type WalletHTTPHandler struct {
	service WalletService
	logger  *slog.Logger
}

func NewWalletHTTPHandler(service WalletService, logger *slog.Logger) *WalletHTTPHandler {
	return &WalletHTTPHandler{service: service, logger: logger}
}

func (h *WalletHTTPHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", h.HandleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/wallet", h.HandleWalletOperation)
		v1.GET("/wallets/:walletId", h.HandleGetBalance)
	}
}

func (h *WalletHTTPHandler) HandleWalletOperation(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req models.WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperror.InvalidRequest(err))
		return
	}

	h.logger.Info("Received wallet operation",
		slog.Any("wallet_id", req.WalletID),
		slog.Any("type", req.Type),
		slog.Any("amount", req.Amount),
	)

	resp, err := h.service.ApplyMutation(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WalletHTTPHandler) HandleGetBalance(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("walletId"))
	if err != nil {
		h.writeError(c, apperror.InvalidRequest(err))
		return
	}

	h.logger.Info("Received balance request", slog.String("wallet_id", walletID.String()))

	resp, err := h.service.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WalletHTTPHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WalletHTTPHandler) writeError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	message := "internal server error"

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", slog.Int("status", status), slog.Any("err", err))
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: kind.String(), Message: message})
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindWalletNotFound:
		return http.StatusNotFound
	case apperror.KindInvalidRequest, apperror.KindInsufficientFunds:
		return http.StatusBadRequest
	case apperror.KindOverloaded:
		return http.StatusTooManyRequests
	case apperror.KindTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
