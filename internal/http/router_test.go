package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/auth"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/database/dbtest"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/events"
	apphttp "github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/catalog"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/orders"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/payments"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

const secret = "router-secret"

func init() { gin.SetMode(gin.TestMode) }

type stack struct {
	orderSrv  *httptest.Server
	payRouter http.Handler
	orderRepo *orders.Repo
	events    *events.Recorder
	issuer    *auth.Issuer
}

func newStack(t *testing.T) stack {
	t.Helper()
	deps := apphttp.Deps{Verifier: auth.NewVerifier(secret)}

	repo := orders.NewRepo(dbtest.Open(t, orders.Models()...))
	prices := catalog.Static{1: money.MustParse("10.00"), 2: money.MustParse("2.50")}
	orderSvc := orders.NewService(repo, prices, nil, false, nil)
	orderSrv := httptest.NewServer(apphttp.NewOrderRouter(deps, orderSvc))
	t.Cleanup(orderSrv.Close)

	rec := &events.Recorder{}
	ledger := payments.NewLedger(dbtest.Open(t, payments.Models()...))
	client := payments.NewHTTPOrderClient(orderSrv.URL, "/orders/{order_id}/pay", time.Second, orderSrv.Client())
	paySvc := payments.NewService(ledger, client, rec, nil)

	return stack{
		orderSrv:  orderSrv,
		payRouter: apphttp.NewPaymentRouter(deps, paySvc),
		orderRepo: repo,
		events:    rec,
		issuer:    auth.NewIssuer(secret, time.Hour),
	}
}

func (s stack) token(t *testing.T, uid uint64, admin bool) string {
	t.Helper()
	tok, err := s.issuer.Issue(uid, "u@example.com", admin)
	require.NoError(t, err)
	return tok
}

func call(t *testing.T, h http.Handler, method, path, tok, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func orderRouter(s stack) http.Handler { return s.orderSrv.Config.Handler }

func TestOrderThenPayment_EndToEnd(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, 7, false)

	code, o := call(t, orderRouter(s), http.MethodPost, "/orders", tok,
		`{"items":[{"product_id":1,"qty":2},{"product_id":2,"qty":1},{"product_id":1,"qty":1}]}`)
	require.Equal(t, http.StatusOK, code, o)
	assert.Equal(t, "CREATED", o["status"])
	assert.Equal(t, 32.5, o["total"])
	assert.Len(t, o["items"], 2)
	orderID := uint64(o["id"].(float64))

	path := "/payments/" + jsonUint(orderID)
	body := `{"shipping_address":"1 Main St","phone_number":"555"}`
	code, p := call(t, s.payRouter, http.MethodPost, path, tok, body)
	require.Equal(t, http.StatusOK, code, p)
	assert.Equal(t, true, p["ok"])
	paymentID := p["payment_id"]

	got, err := s.orderRepo.GetByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPaid, got.Status)
	assert.Len(t, s.events.OfType(events.TypePaymentSucceeded), 1)

	// replay
	code, p = call(t, s.payRouter, http.MethodPost, path, tok, body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, paymentID, p["payment_id"])
	assert.Len(t, s.events.Events(), 1)

	code, pay := call(t, s.payRouter, http.MethodGet, "/payments/"+jsonNum(paymentID), tok, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 32.5, pay["amount"])
	assert.Equal(t, "SUCCESS", pay["status"])
}

func TestCreateOrder_Errors(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, 7, false)

	code, body := call(t, orderRouter(s), http.MethodPost, "/orders", tok, `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Empty cart", body["error"])
	assert.NotEmpty(t, body["request_id"])

	code, body = call(t, orderRouter(s), http.MethodPost, "/orders", tok, `{"items":[{"product_id":1,"qty":0}]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid qty", body["error"])

	code, body = call(t, orderRouter(s), http.MethodPost, "/orders", tok, `{"items":[{"product_id":99,"qty":1}]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Product 99 not available", body["error"])

	code, _ = call(t, orderRouter(s), http.MethodPost, "/orders", "", `{"items":[{"product_id":1,"qty":1}]}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestOrderPayAndPatch(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, 3, false)
	_, o := call(t, orderRouter(s), http.MethodPost, "/orders", tok, `{"items":[{"product_id":1,"qty":1}]}`)
	path := "/orders/" + jsonNum(o["id"])

	code, body := call(t, orderRouter(s), http.MethodPatch, path, tok, `{"status":"SHIPPED"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Unsupported status", body["error"])

	code, body = call(t, orderRouter(s), http.MethodPatch, path, tok, `{"status":"PAID"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"ok": true, "status": "PAID"}, body)

	code, body = call(t, orderRouter(s), http.MethodPost, path+"/pay", tok, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "PAID", body["status"])

	other := s.token(t, 4, false)
	code, _ = call(t, orderRouter(s), http.MethodGet, path, other, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, orderRouter(s), http.MethodGet, "/orders/abc", tok, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPayment_OrderAlreadyPaidIsConflict(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, 3, false)
	_, o := call(t, orderRouter(s), http.MethodPost, "/orders", tok, `{"items":[{"product_id":2,"qty":4}]}`)
	id := jsonNum(o["id"])
	call(t, orderRouter(s), http.MethodPost, "/orders/"+id+"/pay", tok, "")

	code, body := call(t, s.payRouter, http.MethodPost, "/payments/"+id, tok,
		`{"shipping_address":"x","phone_number":"y"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Cannot pay order in status PAID", body["error"])
}

func TestPayment_ForeignOrderIsNotFound(t *testing.T) {
	s := newStack(t)
	_, o := call(t, orderRouter(s), http.MethodPost, "/orders", s.token(t, 1, false), `{"items":[{"product_id":1,"qty":1}]}`)

	code, body := call(t, s.payRouter, http.MethodPost, "/payments/"+jsonNum(o["id"]), s.token(t, 2, false),
		`{"shipping_address":"x","phone_number":"y"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Order not found", body["error"])
}

func TestPayment_RequiresShippingDetails(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, 4, false)
	_, o := call(t, orderRouter(s), http.MethodPost, "/orders", tok, `{"items":[{"product_id":1,"qty":1}]}`)

	code, body := call(t, s.payRouter, http.MethodPost, "/payments/"+jsonNum(o["id"]), tok,
		`{"shipping_address":"1 Main St"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body", body["error"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok, body)
	assert.Contains(t, fields, "phone_number")
	assert.NotContains(t, fields, "shipping_address")
	assert.Empty(t, s.events.Events())
}

func TestCreateOrder_QtyOverflowIsRejected(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, 5, false)

	code, body := call(t, orderRouter(s), http.MethodPost, "/orders", tok,
		`{"items":[{"product_id":1,"qty":9223372036854775807},{"product_id":1,"qty":2}]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid qty", body["error"])

	code, body = call(t, orderRouter(s), http.MethodPost, "/orders", tok,
		`{"items":[{"product_id":1,"qty":6000},{"product_id":1,"qty":6000}]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid qty", body["error"])

	stored, err := s.orderRepo.ListForUser(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAdminOrders(t *testing.T) {
	s := newStack(t)
	call(t, orderRouter(s), http.MethodPost, "/orders", s.token(t, 1, false), `{"items":[{"product_id":1,"qty":1}]}`)
	call(t, orderRouter(s), http.MethodPost, "/orders", s.token(t, 2, false), `{"items":[{"product_id":2,"qty":1}]}`)

	code, _ := call(t, orderRouter(s), http.MethodGet, "/admin/orders", s.token(t, 1, false), "")
	assert.Equal(t, http.StatusForbidden, code)

	admin := s.token(t, 99, true)
	code, body := call(t, orderRouter(s), http.MethodGet, "/admin/orders?user_id=2", admin, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])

	code, body = call(t, orderRouter(s), http.MethodGet, "/admin/orders?page_size=500", admin, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["fields"], "page_size")
}

func TestHealth(t *testing.T) {
	s := newStack(t)
	code, body := call(t, s.payRouter, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
}

func jsonUint(v uint64) string { b, _ := json.Marshal(v); return string(b) }

func jsonNum(v any) string { b, _ := json.Marshal(v); return string(b) }
