package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pg-hostel/models"
	"pg-hostel/store"
)

const testKeySecret = "test_secret"

type paymentFixture struct {
	billing  *BillingService
	payments *PaymentService
	bill     models.Bill
}

func newPaymentFixture(t *testing.T) paymentFixture {
	t.Helper()
	db := newTestDB(t)
	billing := NewBillingService(db, nil, zap.NewNop(), nil, BillingOptions{})
	a := createTenant(t, db, "Asha", "101", time.Now())
	createRoom(t, db, "101", decPtr("1499.99"), a.ID)

	result, err := billing.GenerateMonthlyRent(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, result.Created, 1)

	payments := NewPaymentService(billing, OfflineGateway{}, store.NewMemoryIdempotencyStore(), nil, testKeySecret, zap.NewNop(), nil)
	return paymentFixture{billing: billing, payments: payments, bill: result.Created[0]}
}

func TestSign(t *testing.T) {
	// HMAC-SHA256("order_1|pay_1") under "secret"
	sig := Sign("secret", "order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, Sign("secret", "order_1", "pay_1"))
	assert.NotEqual(t, sig, Sign("secret", "order_1", "pay_2"))
	assert.NotEqual(t, sig, Sign("other", "order_1", "pay_1"))
}

func TestToMinorUnits(t *testing.T) {
	assert.EqualValues(t, 149999, ToMinorUnits(dec("1499.99")))
	assert.EqualValues(t, 150000, ToMinorUnits(dec("1500")))
	assert.EqualValues(t, 33333, ToMinorUnits(dec("333.33")))
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)

	order, err := f.payments.CreateOrder(ctx, f.bill.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.ID, "order_"))
	assert.EqualValues(t, 149999, order.Amount)
	assert.Equal(t, DefaultCurrency, order.Currency)

	_, err = f.payments.CreateOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)

	order, err := f.payments.CreateOrder(ctx, f.bill.ID)
	require.NoError(t, err)

	stored, err := f.billing.GetBill(ctx, f.bill.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.OrderID)

	req := VerifyRequest{
		BillID:    f.bill.ID,
		OrderID:   order.ID,
		PaymentID: "pay_1",
		Signature: "deadbeef",
	}
	_, err = f.payments.Verify(ctx, req)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	stored, err = f.billing.GetBill(ctx, f.bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillUnpaid, stored.Status)

	req.Signature = Sign(testKeySecret, req.OrderID, req.PaymentID)
	bill, err := f.payments.Verify(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.BillPaid, bill.Status)
	assert.Equal(t, "pay_1", bill.TransactionRef)

	// replaying the same callback is a no-op
	_, err = f.payments.Verify(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicate)

	// a second payment against the same order of a paid bill changes nothing
	again := VerifyRequest{BillID: f.bill.ID, OrderID: order.ID, PaymentID: "pay_2"}
	again.Signature = Sign(testKeySecret, again.OrderID, again.PaymentID)
	bill, err = f.payments.Verify(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", bill.TransactionRef)

	_, err = f.payments.CreateOrder(ctx, f.bill.ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestVerifyRejectsOrderOfAnotherBill(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)

	elec, err := f.billing.CreateElectricitySplit(ctx, ElectricitySplit{
		Amount:    dec("10"),
		TenantIDs: []string{f.bill.TenantID},
	})
	require.NoError(t, err)
	require.Len(t, elec, 1)

	cheap, err := f.payments.CreateOrder(ctx, elec[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, cheap.Amount)

	// a correctly signed payment of the cheap order presented for the rent bill
	req := VerifyRequest{BillID: f.bill.ID, OrderID: cheap.ID, PaymentID: "pay_x"}
	req.Signature = Sign(testKeySecret, req.OrderID, req.PaymentID)
	_, err = f.payments.Verify(ctx, req)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	rent, err := f.billing.GetBill(ctx, f.bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillUnpaid, rent.Status)

	// the rejected attempt does not burn the payment id for the bill it belongs to
	req.BillID = elec[0].ID
	bill, err := f.payments.Verify(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.BillPaid, bill.Status)
}

func TestVerifyRequiresAnOpenOrder(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)

	// no order was ever created for the bill
	req := VerifyRequest{BillID: f.bill.ID, OrderID: "order_forged", PaymentID: "pay_1"}
	req.Signature = Sign(testKeySecret, req.OrderID, req.PaymentID)
	_, err := f.payments.Verify(ctx, req)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	// a newer order replaces the previous one
	first, err := f.payments.CreateOrder(ctx, f.bill.ID)
	require.NoError(t, err)
	second, err := f.payments.CreateOrder(ctx, f.bill.ID)
	require.NoError(t, err)

	req = VerifyRequest{BillID: f.bill.ID, OrderID: first.ID, PaymentID: "pay_2"}
	req.Signature = Sign(testKeySecret, req.OrderID, req.PaymentID)
	_, err = f.payments.Verify(ctx, req)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	req = VerifyRequest{BillID: f.bill.ID, OrderID: second.ID, PaymentID: "pay_2"}
	req.Signature = Sign(testKeySecret, req.OrderID, req.PaymentID)
	bill, err := f.payments.Verify(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.BillPaid, bill.Status)
}

func TestVerifyUnknownBill(t *testing.T) {
	f := newPaymentFixture(t)
	req := VerifyRequest{BillID: "missing", OrderID: "order_1", PaymentID: "pay_1"}
	req.Signature = Sign(testKeySecret, req.OrderID, req.PaymentID)
	_, err := f.payments.Verify(context.Background(), req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyRequiresFields(t *testing.T) {
	f := newPaymentFixture(t)
	_, err := f.payments.Verify(context.Background(), VerifyRequest{BillID: f.bill.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRazorpayGatewayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 150000, body["amount"])
		assert.Equal(t, "INR", body["currency"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_abc","amount":150000,"currency":"INR","receipt":"receipt_1"}`))
	}))
	defer srv.Close()

	g := NewRazorpayGateway("rzp_key", "rzp_secret")
	g.BaseURL = srv.URL
	order, err := g.CreateOrder(context.Background(), 150000, "INR", "receipt_1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, "rzp_key", order.KeyID)
}

func TestRazorpayGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"description":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewRazorpayGateway("k", "s")
	g.BaseURL = srv.URL
	_, err := g.CreateOrder(context.Background(), 100, "INR", "r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
