package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/poolsettlement/internal/protocolfee/application"
	"github.com/wyfcoding/poolsettlement/internal/protocolfee/domain"
	"github.com/wyfcoding/poolsettlement/pkg/metrics"
)

type memoryRepo struct {
	accrued    map[domain.AssetID]uint64
	poolFees   map[domain.PoolID]uint32
	controller domain.Address
}

func (r *memoryRepo) SaveAccrued(ctx context.Context, asset domain.AssetID, balance uint64) error {
	r.accrued[asset] = balance
	return nil
}

func (r *memoryRepo) SaveCollection(ctx context.Context, asset domain.AssetID, balance uint64, record domain.CollectionRecord) (uint64, error) {
	r.accrued[asset] = balance
	return 1, nil
}

func (r *memoryRepo) UpdateCollectionStatus(ctx context.Context, id uint64, status domain.CollectionStatus) error {
	return nil
}

func (r *memoryRepo) LoadAccrued(ctx context.Context) (map[domain.AssetID]uint64, error) {
	return r.accrued, nil
}

func (r *memoryRepo) SavePoolFee(ctx context.Context, id domain.PoolID, fee uint32) error {
	r.poolFees[id] = fee
	return nil
}

func (r *memoryRepo) GetPoolFee(ctx context.Context, id domain.PoolID) (uint32, error) {
	return r.poolFees[id], nil
}

func (r *memoryRepo) SaveController(ctx context.Context, controller domain.Address) error {
	r.controller = controller
	return nil
}

func (r *memoryRepo) LoadController(ctx context.Context) (domain.Address, error) {
	return r.controller, nil
}

type noopFetcher struct{}

func (noopFetcher) FetchFee(ctx context.Context, controller domain.Address, key domain.PoolKey) (uint32, bool, error) {
	return 0, false, nil
}

type noopVault struct{}

func (noopVault) Transfer(ctx context.Context, asset domain.AssetID, amount uint64, recipient domain.Address) error {
	return nil
}

type noopPublisher struct{}

func (noopPublisher) PublishFeeUpdated(ctx context.Context, event domain.FeeUpdatedEvent) error {
	return nil
}

func (noopPublisher) PublishControllerUpdated(ctx context.Context, event domain.ControllerUpdatedEvent) error {
	return nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &memoryRepo{
		accrued:  make(map[domain.AssetID]uint64),
		poolFees: make(map[domain.PoolID]uint32),
	}
	app := application.NewProtocolFeeService(
		"0xowner", repo, noopFetcher{}, noopVault{}, noopPublisher{},
		domain.SHA256Deriver{}, metrics.New("test"), slog.Default(),
	)
	require.NoError(t, app.Load(context.Background()))

	router := gin.New()
	NewProtocolFeeHandler(app).RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAccrueAndCollectOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/protocolfees/accrue",
		gin.H{"asset": "0xassetA", "amount": 100})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/protocolfees/collect",
		gin.H{"caller": "0xowner", "asset": "0xassetA", "amount": 0, "recipient": "0xrecipient"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "100", resp["collected"])
	require.Equal(t, "0", resp["balance"])
}

func TestCollectMapsDomainErrors(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/protocolfees/accrue",
		gin.H{"asset": "0xassetA", "amount": 100})

	// 非所有者提取
	w := doJSON(t, router, http.MethodPost, "/api/v1/protocolfees/collect",
		gin.H{"caller": "0xintruder", "asset": "0xassetA", "amount": 0, "recipient": "0xrecipient"})
	require.Equal(t, http.StatusForbidden, w.Code)

	// 超额提取
	w = doJSON(t, router, http.MethodPost, "/api/v1/protocolfees/collect",
		gin.H{"caller": "0xowner", "asset": "0xassetA", "amount": 150, "recipient": "0xrecipient"})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSetProtocolFeeMapsValidationErrors(t *testing.T) {
	router := newTestRouter(t)

	poolKey := gin.H{"currency0": "0xaaa", "currency1": "0xbbb", "swap_fee": 3000, "tick_spacing": 60}

	// 控制器未设置，任何调用方都未授权
	w := doJSON(t, router, http.MethodPut, "/api/v1/protocolfees/pools/fee",
		gin.H{"caller": "0xctrl", "pool_key": poolKey, "fee": 3000})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPut, "/api/v1/protocolfees/controller",
		gin.H{"caller": "0xowner", "controller": "0xctrl"})
	require.Equal(t, http.StatusOK, w.Code)

	// 费率越界
	w = doJSON(t, router, http.MethodPut, "/api/v1/protocolfees/pools/fee",
		gin.H{"caller": "0xctrl", "pool_key": poolKey, "fee": 4001})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// 合法推送
	w = doJSON(t, router, http.MethodPut, "/api/v1/protocolfees/pools/fee",
		gin.H{"caller": "0xctrl", "pool_key": poolKey, "fee": 3000})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "0.3", resp["zero_for_one_percent"])
}

func TestInitFeeFallsBackToZero(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/protocolfees/pools/init-fee",
		gin.H{"pool_key": gin.H{"currency0": "0xaaa", "currency1": "0xbbb", "swap_fee": 3000, "tick_spacing": 60}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, float64(0), resp["fee"])
}
