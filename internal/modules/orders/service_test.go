package orders

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/auth"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/database/dbtest"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/events"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/catalog"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/apperr"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

var (
	alice = auth.Claims{UserID: 1, Email: "alice@example.com", RawToken: "t-alice"}
	bob   = auth.Claims{UserID: 2, Email: "bob@example.com", RawToken: "t-bob"}
)

type fixture struct {
	repo *Repo
	svc  *Service
	rec  *events.Recorder
}

func newFixture(t *testing.T, publishOnPay bool) fixture {
	t.Helper()
	db := dbtest.Open(t, Models()...)
	repo := NewRepo(db)
	rec := &events.Recorder{}
	prices := catalog.Static{
		1: money.MustParse("10.00"),
		2: money.MustParse("2.25"),
	}
	return fixture{
		repo: repo,
		svc:  NewService(repo, prices, events.Safe(rec, nil, 0), publishOnPay, nil),
		rec:  rec,
	}
}

func countRows(t *testing.T, r *Repo) (orders, items int64) {
	t.Helper()
	require.NoError(t, r.DB().Model(&Order{}).Count(&orders).Error)
	require.NoError(t, r.DB().Model(&OrderItem{}).Count(&items).Error)
	return orders, items
}

func TestCreateOrder_MergesDuplicateLines(t *testing.T) {
	f := newFixture(t, false)

	o, err := f.svc.CreateOrder(context.Background(), alice, []Line{
		{ProductID: 1, Qty: 2},
		{ProductID: 1, Qty: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, o.Status)
	assert.Equal(t, "30.00", o.Total.String())
	require.Len(t, o.Items, 1)
	assert.Equal(t, 3, o.Items[0].Qty)

	stored, err := f.repo.GetForUser(context.Background(), o.ID, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", stored.Total.String())
	assert.Equal(t, alice.Email, stored.UserEmail)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, uint64(1), stored.Items[0].ProductID)
	assert.Equal(t, 3, stored.Items[0].Qty)
	assert.Equal(t, "10.00", stored.Items[0].UnitPrice.String())
}

func TestCreateOrder_TotalIsSumOfLines(t *testing.T) {
	f := newFixture(t, false)

	o, err := f.svc.CreateOrder(context.Background(), alice, []Line{
		{ProductID: 2, Qty: 3},
		{ProductID: 1, Qty: 1},
		{ProductID: 2, Qty: 1},
	})
	require.NoError(t, err)

	sum := money.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.UnitPrice.Times(it.Qty))
	}
	assert.True(t, sum.Equal(o.Total))
	assert.Equal(t, "19.00", o.Total.String())
	assert.Equal(t, []uint64{2, 1}, []uint64{o.Items[0].ProductID, o.Items[1].ProductID})
}

func TestCreateOrder_PriceFailureWritesNothing(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.CreateOrder(context.Background(), alice, []Line{
		{ProductID: 1, Qty: 1},
		{ProductID: 99, Qty: 1},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))
	assert.Equal(t, "Product 99 not available", apperr.PublicMessage(err))

	orders, items := countRows(t, f.repo)
	assert.Zero(t, orders)
	assert.Zero(t, items)
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, alice, nil)
	assert.Equal(t, "Empty cart", apperr.PublicMessage(err))

	_, err = f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: 0}})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid qty", ae.PublicMsg)
	assert.Contains(t, ae.Fields, "items[0].qty")

	_, err = f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 0, Qty: 1}})
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))
}

func TestGetOrder_ForeignOrderIsNotFound(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	o, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: 1}})
	require.NoError(t, err)

	_, err = f.svc.GetOrder(ctx, bob, o.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = f.svc.GetOrder(ctx, alice, o.ID+100)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	got, err := f.svc.GetOrder(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestPayOrder_AlreadyPaidIsNoop(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	o, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: 3}})
	require.NoError(t, err)

	paid, err := f.svc.PayOrder(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	firstPaidAt := *paid.PaidAt

	again, err := f.svc.PayOrder(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, again.Status)
	assert.True(t, firstPaidAt.Equal(*again.PaidAt))

	sent := f.rec.OfType(events.TypePaymentSucceeded)
	require.Len(t, sent, 1)
	assert.JSONEq(t,
		`{"order_id":`+jsonUint(o.ID)+`,"user_id":1,"email":"alice@example.com","total":30.00}`,
		string(sent[0].Payload))
}

func TestPayOrder_PublishDisabledByDefault(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	o, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: 1}})
	require.NoError(t, err)
	_, err = f.svc.PayOrder(ctx, alice, o.ID)
	require.NoError(t, err)

	assert.Empty(t, f.rec.Events())
}

func TestPayOrder_PublishFailureStillPays(t *testing.T) {
	f := newFixture(t, true)
	f.rec.Err = assert.AnError
	ctx := context.Background()

	o, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: 1}})
	require.NoError(t, err)

	paid, err := f.svc.PayOrder(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
}

func TestPayOrder_ForeignOrder(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	o, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: 1}})
	require.NoError(t, err)

	_, err = f.svc.PayOrder(ctx, bob, o.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	still, err := f.repo.GetForUser(ctx, o.ID, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, still.Status)
}

func TestPatchStatus(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	o, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: 1}})
	require.NoError(t, err)

	_, err = f.svc.PatchStatus(ctx, alice, o.ID, "SHIPPED")
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))

	got, err := f.svc.PatchStatus(ctx, alice, o.ID, "paid")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)
}

func TestListOrders_NewestFirst(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	first, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: 1}})
	require.NoError(t, err)
	second, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 2, Qty: 1}})
	require.NoError(t, err)
	_, err = f.svc.CreateOrder(ctx, bob, []Line{{ProductID: 2, Qty: 1}})
	require.NoError(t, err)

	list, err := f.svc.ListOrders(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Len(t, list[0].Items, 1)
}

func TestAdminList(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	a, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: 1}})
	require.NoError(t, err)
	_, err = f.svc.CreateOrder(ctx, bob, []Line{{ProductID: 1, Qty: 1}})
	require.NoError(t, err)
	_, err = f.svc.PayOrder(ctx, alice, a.ID)
	require.NoError(t, err)

	all, err := f.svc.AdminList(ctx, AdminListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	assert.Len(t, all.Items, 2)

	paid, err := f.svc.AdminList(ctx, AdminListParams{Status: "paid"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), paid.Total)
	assert.Equal(t, a.ID, paid.Items[0].ID)

	got, err := f.svc.AdminGet(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, got.UserID)
}

func TestReconciler(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := NewReconciler(f.repo, nil)

	o, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: 1}})
	require.NoError(t, err)

	payload, err := json.Marshal(events.PaymentSucceeded{OrderID: o.ID, UserID: alice.UserID, Total: o.Total})
	require.NoError(t, err)

	require.NoError(t, r.HandlePaymentSucceeded(ctx, payload))
	require.NoError(t, r.HandlePaymentSucceeded(ctx, payload))

	got, err := f.repo.GetForUser(ctx, o.ID, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)

	// wrong owner or unknown order: acknowledged, nothing changes
	foreign, err := f.svc.CreateOrder(ctx, bob, []Line{{ProductID: 1, Qty: 1}})
	require.NoError(t, err)
	require.NoError(t, r.HandlePaymentSucceeded(ctx, json.RawMessage(`{"order_id":`+jsonUint(foreign.ID)+`,"user_id":1}`)))
	still, err := f.repo.GetForUser(ctx, foreign.ID, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, still.Status)

	// the order service's own event carries no user id
	require.NoError(t, r.HandlePaymentSucceeded(ctx, json.RawMessage(`{"order_id":`+jsonUint(foreign.ID)+`}`)))
	now, err := f.repo.GetForUser(ctx, foreign.ID, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, now.Status)

	assert.Error(t, r.HandlePaymentSucceeded(ctx, json.RawMessage(`{}`)))
	assert.Error(t, r.HandlePaymentSucceeded(ctx, json.RawMessage(`{"order_id":"x"}`)))
}

func TestReconcilerThroughConsumer(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	o, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: 1}})
	require.NoError(t, err)

	c := events.NewConsumer("order-reconciler", nil)
	NewReconciler(f.repo, nil).Register(c)

	body, err := events.Encode(events.TypePaymentSucceeded, events.PaymentSucceeded{OrderID: o.ID, UserID: alice.UserID})
	require.NoError(t, err)
	res := c.ProcessBatch(ctx, []events.Message{
		{ID: "1", Body: body},
		{ID: "2", Body: []byte(`{"type":"user.registered","payload":{}}`)},
	})
	assert.Empty(t, res.Failed)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Ignored)
}

func TestMergeLines(t *testing.T) {
	got := MergeLines([]Line{{1, 2}, {3, 1}, {1, 1}, {3, 4}, {5, 1}})
	assert.Equal(t, []Line{{1, 3}, {3, 5}, {5, 1}}, got)
	assert.Empty(t, MergeLines(nil))

	got = MergeLines([]Line{{1, math.MaxInt}, {1, 2}})
	assert.Equal(t, []Line{{1, MaxLineQty + 1}}, got)
	assert.Contains(t, CheckMerged(got), "items.product_1.qty")
	assert.Nil(t, CheckMerged([]Line{{1, MaxLineQty}}))
}

func TestCreateOrder_QuantityBounds(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	cases := []struct {
		name  string
		lines []Line
		field string
	}{
		{"single line over the cap", []Line{{ProductID: 1, Qty: MaxLineQty + 1}}, "items[0].qty"},
		{"max int line", []Line{{ProductID: 1, Qty: math.MaxInt}, {ProductID: 1, Qty: 2}}, "items[0].qty"},
		{"merge would wrap", []Line{{ProductID: 1, Qty: MaxLineQty}, {ProductID: 1, Qty: MaxLineQty}}, "items.product_1.qty"},
		{"merge just over the cap", []Line{{ProductID: 2, Qty: MaxLineQty}, {ProductID: 2, Qty: 1}}, "items.product_2.qty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(ctx, alice, tc.lines)
			ae, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.Invalid, ae.Kind)
			assert.Equal(t, "Invalid qty", ae.PublicMsg)
			assert.Contains(t, ae.Fields, tc.field)
			assert.ErrorIs(t, err, ErrInvalidQty)
		})
	}

	orders, items := countRows(t, f.repo)
	assert.Zero(t, orders)
	assert.Zero(t, items)

	o, err := f.svc.CreateOrder(ctx, alice, []Line{{ProductID: 1, Qty: MaxLineQty - 1}, {ProductID: 1, Qty: 1}})
	require.NoError(t, err)
	assert.Equal(t, MaxLineQty, o.Items[0].Qty)
	assert.Equal(t, "100000.00", o.Total.String())
	assert.False(t, o.Total.IsNegative())
}

func jsonUint(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
