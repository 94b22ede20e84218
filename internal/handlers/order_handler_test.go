package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swap-backend/internal/dto"
	"swap-backend/internal/utils"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := newHandlerTestService(logger)
	handler := NewOrderHandler(svc)

	r := gin.New()
	orders := r.Group("/orders")
	{
		orders.POST("", handler.CreateOrderHandler)
		orders.GET("", handler.GetOrdersHandler)
		orders.GET("/revealed/:resolverAddress", handler.GetRevealedOrdersHandler)
		orders.GET("/:id", handler.GetOrderHandler)
		orders.POST("/:id/assign", handler.AssignOrderHandler)
		orders.POST("/:id/feed-assignment", handler.FeedAssignmentHandler)
		orders.POST("/:id/complete", handler.CompleteOrderHandler)
		orders.POST("/:id/upload-secret", handler.UploadSecretHandler)
		orders.GET("/:id/get-secret", handler.GetSecretHandler)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func orderRequestBody(t *testing.T, nonce string) (map[string]interface{}, string) {
	t.Helper()
	secret, err := utils.GenerateSecret()
	require.NoError(t, err)
	eth, err := utils.EthereumHashlock(secret)
	require.NoError(t, err)
	stark, err := utils.StarknetHashlock(secret)
	require.NoError(t, err)

	return map[string]interface{}{
		"makerAddress":     "0xmaker",
		"takerAddress":     "0xtaker",
		"makerChain":       "sepolia",
		"takerChain":       "starknet",
		"makerAsset":       "0xusdc",
		"takerAsset":       "0xstark-usdc",
		"makingAmount":     "100000000",
		"takingAmount":     "99000000",
		"ethereumHashlock": eth,
		"starknetHashlock": stark,
		"auction":          map[string]interface{}{"startTime": time.Now().Unix(), "duration": 600},
		"timelocks":        map[string]interface{}{"srcWithdrawal": 3600, "dstWithdrawal": 1800},
		"orderNonce":       nonce,
	}, secret
}

func createOrder(t *testing.T, r *gin.Engine, nonce string) string {
	t.Helper()
	body, _ := orderRequestBody(t, nonce)
	w := doJSON(t, r, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp dto.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.OrderID)
	return resp.OrderID
}

func TestCreateOrderEndpoint(t *testing.T) {
	r := newTestRouter(t)

	body, _ := orderRequestBody(t, "nonce-http-1")
	w := doJSON(t, r, http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pending_auction", resp.Status)

	// Duplicate nonce is a 400.
	w = doJSON(t, r, http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderMissingField(t *testing.T) {
	r := newTestRouter(t)
	body, _ := orderRequestBody(t, "nonce-http-2")
	delete(body, "makerAddress")

	w := doJSON(t, r, http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPendingOrdersEndpoint(t *testing.T) {
	r := newTestRouter(t)
	orderID := createOrder(t, r, "nonce-http-3")

	w := doJSON(t, r, http.MethodGet, "/orders?status=pending_auction", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var pending []dto.PendingOrder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, orderID, pending[0].OrderID)
	assert.NotEmpty(t, pending[0].CurrentAmount)

	// Unknown status filter is rejected.
	w = doJSON(t, r, http.MethodGet, "/orders?status=completed", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderDetailEndpoint(t *testing.T) {
	r := newTestRouter(t)
	orderID := createOrder(t, r, "nonce-http-4")

	w := doJSON(t, r, http.MethodGet, "/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detail dto.OrderDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, orderID, detail.Order.ID)
	assert.Nil(t, detail.Assignment)
	assert.NotEmpty(t, detail.Events)

	w = doJSON(t, r, http.MethodGet, "/orders/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssignEndpoint(t *testing.T) {
	r := newTestRouter(t)
	orderID := createOrder(t, r, "nonce-http-5")

	assign := dto.AssignOrderRequest{ResolverAddress: "0xresolver", EffectiveAmount: "99500000"}
	w := doJSON(t, r, http.MethodPost, "/orders/"+orderID+"/assign", assign)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.AssignOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "0xresolver", resp.AssignedResolver)

	// Second resolver loses.
	assign.ResolverAddress = "0xother"
	w = doJSON(t, r, http.MethodPost, "/orders/"+orderID+"/assign", assign)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSecretLifecycleEndpoints(t *testing.T) {
	r := newTestRouter(t)

	body, secret := orderRequestBody(t, "nonce-http-6")
	w := doJSON(t, r, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)
	var created dto.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	orderID := created.OrderID

	w = doJSON(t, r, http.MethodPost, "/orders/"+orderID+"/assign",
		dto.AssignOrderRequest{ResolverAddress: "0xresolver", EffectiveAmount: "99500000"})
	require.Equal(t, http.StatusOK, w.Code)

	// Secret not yet revealed.
	w = doJSON(t, r, http.MethodGet, "/orders/"+orderID+"/get-secret", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Wrong secret rejected.
	w = doJSON(t, r, http.MethodPost, "/orders/"+orderID+"/upload-secret",
		map[string]string{"secret": "0x" + string(bytes.Repeat([]byte("ab"), 32))})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Correct secret accepted.
	w = doJSON(t, r, http.MethodPost, "/orders/"+orderID+"/upload-secret",
		map[string]string{"secret": secret, "destinationTxHash": "0xdsttx"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/orders/"+orderID+"/get-secret", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got dto.GetSecretResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, secret, got.Secret)

	// Revealed listing for the winning resolver.
	w = doJSON(t, r, http.MethodGet, "/orders/revealed/0xresolver", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var revealed []dto.RevealedOrder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &revealed))
	require.Len(t, revealed, 1)
	assert.Equal(t, orderID, revealed[0].Order.ID)

	// Complete and verify the revealed set empties.
	w = doJSON(t, r, http.MethodPost, "/orders/"+orderID+"/complete",
		dto.CompleteOrderRequest{Status: "completed"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/orders/revealed/0xresolver", nil)
	require.Equal(t, http.StatusOK, w.Code)
	revealed = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &revealed))
	assert.Empty(t, revealed)
}

func TestFeedAssignmentEndpoint(t *testing.T) {
	r := newTestRouter(t)
	orderID := createOrder(t, r, "nonce-http-7")

	// Feed before any assignment is a 404.
	status := "src_deployed"
	w := doJSON(t, r, http.MethodPost, "/orders/"+orderID+"/feed-assignment",
		dto.FeedAssignmentRequest{Status: &status})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/orders/"+orderID+"/assign",
		dto.AssignOrderRequest{ResolverAddress: "0xresolver", EffectiveAmount: "99500000"})
	require.Equal(t, http.StatusOK, w.Code)

	escrow := "0xsrc-escrow"
	w = doJSON(t, r, http.MethodPost, "/orders/"+orderID+"/feed-assignment",
		dto.FeedAssignmentRequest{Status: &status, SrcEscrowAddress: &escrow})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var detail dto.OrderDetail
	w = doJSON(t, r, http.MethodGet, "/orders/"+orderID, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.NotNil(t, detail.Assignment)
	assert.Equal(t, "0xsrc-escrow", detail.Assignment.SrcEscrowAddress)
	assert.Equal(t, "src_deployed", string(detail.Order.Status))
}
