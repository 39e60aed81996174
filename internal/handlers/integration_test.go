package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"wallets/internal/metrics"
	"wallets/internal/models"
	"wallets/internal/repository"
	"wallets/internal/service"
	"wallets/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(repo service.WalletRepository) *gin.Engine {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	svc := service.NewWalletService(repo, testLogger, service.WithMetrics(m))

	r := gin.New()
	r.Use(RequestLogger(testLogger), metrics.HTTPMetricsMiddleware(m))
	NewWalletHTTPHandler(svc, testLogger).RegisterRoutes(r)
	r.GET("/metrics", metrics.Handler(reg))
	return r
}

func balanceOf(t *testing.T, r http.Handler, walletID uuid.UUID) decimal.Decimal {
	t.Helper()
	w := doJSON(r, http.MethodGet, "/api/v1/wallets/"+walletID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.WalletResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Amount
}

func TestIntegration_DepositAndWithdraw(t *testing.T) {
	repo := repository.NewWalletMemoryRepository()
	walletID := uuid.New()
	_, err := repo.Save(context.Background(), models.Wallet{ID: walletID, Balance: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	r := newRouter(repo)

	w := doJSON(r, http.MethodPost, "/api/v1/wallet", map[string]any{"walletId": walletID, "type": "DEPOSIT", "amount": 500})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, balanceOf(t, r, walletID).Equal(decimal.NewFromInt(1500)))

	w = doJSON(r, http.MethodPost, "/api/v1/wallet", map[string]any{"walletId": walletID, "type": "WITHDRAW", "amount": "1500.01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InsufficientFunds", decodeError(t, w).Error)
	assert.True(t, balanceOf(t, r, walletID).Equal(decimal.NewFromInt(1500)))

	w = doJSON(r, http.MethodPost, "/api/v1/wallet", map[string]any{"walletId": walletID, "type": "WITHDRAW", "amount": "1500"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, balanceOf(t, r, walletID).IsZero())
}

func TestIntegration_InvalidRequests(t *testing.T) {
	r := newRouter(repository.NewWalletMemoryRepository())
	walletID := uuid.New()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero amount", map[string]any{"walletId": walletID, "type": "DEPOSIT", "amount": "0"}},
		{"negative amount", map[string]any{"walletId": walletID, "type": "WITHDRAW", "amount": -10}},
		{"null type", map[string]any{"walletId": walletID, "type": nil, "amount": 10}},
		{"unknown type", map[string]any{"walletId": walletID, "type": "TRANSFER", "amount": 10}},
		{"null wallet", map[string]any{"type": "DEPOSIT", "amount": 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/v1/wallet", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "InvalidRequest", decodeError(t, w).Error)
		})
	}
}

func TestIntegration_AmountOutsideStoredPrecision(t *testing.T) {
	repo := repository.NewWalletMemoryRepository()
	walletID := uuid.New()
	_, err := repo.Save(context.Background(), models.Wallet{ID: walletID, Balance: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	r := newRouter(repo)

	for _, body := range []string{
		`{"walletId":"` + walletID.String() + `","type":"DEPOSIT","amount":1e20000000}`,
		`{"walletId":"` + walletID.String() + `","type":"DEPOSIT","amount":"0.001"}`,
	} {
		w := doJSON(r, http.MethodPost, "/api/v1/wallet", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "InvalidRequest", decodeError(t, w).Error)
	}
	assert.True(t, balanceOf(t, r, walletID).Equal(decimal.NewFromInt(1000)))
}

func TestIntegration_UnknownWallet(t *testing.T) {
	r := newRouter(repository.NewWalletMemoryRepository())

	w := doJSON(r, http.MethodPost, "/api/v1/wallet", map[string]any{"walletId": uuid.New(), "type": "DEPOSIT", "amount": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntegration_MetricsExposed(t *testing.T) {
	r := newRouter(repository.NewWalletMemoryRepository())
	_ = doJSON(r, http.MethodGet, "/healthz", nil)

	w := doJSON(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestIntegration_Postgres(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)
	walletID := uuid.New()
	_, err := repo.Save(context.Background(), models.Wallet{ID: walletID, Balance: decimal.RequireFromString("100.50")})
	require.NoError(t, err)
	r := newRouter(repo)

	w := doJSON(r, http.MethodPost, "/api/v1/wallet", map[string]any{"walletId": walletID, "type": "DEPOSIT", "amount": "50.25"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, balanceOf(t, r, walletID).Equal(decimal.RequireFromString("150.75")))

	w = doJSON(r, http.MethodPost, "/api/v1/wallet", map[string]any{"walletId": walletID, "type": "WITHDRAW", "amount": "200.00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Not enough funds")
}
