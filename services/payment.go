package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pg-hostel/metrics"
	"pg-hostel/models"
	"pg-hostel/notify"
	"pg-hostel/store"
)

// DefaultCurrency for gateway orders.
const DefaultCurrency = "INR"

// paymentClaimTTL how long a verified payment id is remembered.
const paymentClaimTTL = 30 * 24 * time.Hour

// Order a gateway payment order for one bill.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units (paise)
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	KeyID    string `json:"key_id,omitempty"`
}

// PaymentGateway creates orders the client then pays against.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error)
}

// RazorpayGateway calls the Razorpay orders API.
type RazorpayGateway struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Client    *http.Client
}

// NewRazorpayGateway creates a gateway for the given API keys.
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		KeyID:     keyID,
		KeySecret: keySecret,
		BaseURL:   "https://api.razorpay.com",
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateOrder implements PaymentGateway.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(g.BaseURL, "/")+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.KeyID, g.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("razorpay create order: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("decode razorpay order: %w", err)
	}
	order.KeyID = g.KeyID
	return &order, nil
}

// OfflineGateway issues local order ids. Used when no gateway keys are configured.
type OfflineGateway struct{}

// CreateOrder implements PaymentGateway.
func (OfflineGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error) {
	return &Order{
		ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
	}, nil
}

// PaymentService takes bills through order creation and signature verification.
type PaymentService struct {
	billing     *BillingService
	gateway     PaymentGateway
	idempotency store.IdempotencyStore
	notifier    notify.Notifier
	secret      []byte
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// NewPaymentService creates a payment service. secret is the gateway key secret
// used to sign payment callbacks.
func NewPaymentService(billing *BillingService, gateway PaymentGateway, idem store.IdempotencyStore, notifier notify.Notifier, secret string, logger *zap.Logger, m *metrics.Metrics) *PaymentService {
	if idem == nil {
		idem = store.NewMemoryIdempotencyStore()
	}
	return &PaymentService{
		billing:     billing,
		gateway:     gateway,
		idempotency: idem,
		notifier:    notifier,
		secret:      []byte(secret),
		logger:      logger,
		metrics:     m,
	}
}

// ToMinorUnits converts rupees to paise, rounding to the nearest paisa.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateOrder opens a gateway order for an unpaid bill.
func (s *PaymentService) CreateOrder(ctx context.Context, billID string) (*Order, error) {
	bill, err := s.billing.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.Status == models.BillPaid {
		return nil, fmt.Errorf("bill %s: %w", billID, ErrAlreadyPaid)
	}

	order, err := s.gateway.CreateOrder(ctx, ToMinorUnits(bill.Amount), DefaultCurrency, "receipt_"+bill.ID)
	if err != nil {
		return nil, fmt.Errorf("create order for bill %s: %w", billID, err)
	}
	if err := s.billing.attachOrder(ctx, bill.ID, order.ID); err != nil {
		return nil, err
	}
	s.logger.Info("payment order created", zap.String("bill_id", billID), zap.String("order_id", order.ID))
	return order, nil
}

// VerifyRequest the gateway callback fields posted by the client.
type VerifyRequest struct {
	BillID    string
	OrderID   string
	PaymentID string
	Signature string
}

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID" under secret.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the callback signature and marks the bill paid. The order must be
// the one opened for this bill by CreateOrder. A payment id that was already
// processed returns ErrDuplicate and changes nothing.
func (s *PaymentService) Verify(ctx context.Context, req VerifyRequest) (*models.Bill, error) {
	if req.BillID == "" || req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		s.metrics.PaymentVerified("invalid")
		return nil, invalid("payment", "bill_id, order_id, payment_id and signature are required")
	}

	expected := Sign(string(s.secret), req.OrderID, req.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(req.Signature))) {
		s.metrics.PaymentVerified("bad_signature")
		s.logger.Warn("payment signature mismatch", zap.String("bill_id", req.BillID), zap.String("order_id", req.OrderID))
		return nil, ErrSignatureMismatch
	}

	bill, err := s.billing.GetBill(ctx, req.BillID)
	if err != nil {
		s.metrics.PaymentVerified("error")
		return nil, err
	}
	if bill.OrderID == "" || bill.OrderID != req.OrderID {
		s.metrics.PaymentVerified("bad_signature")
		s.logger.Warn("payment order does not belong to bill",
			zap.String("bill_id", req.BillID),
			zap.String("order_id", req.OrderID),
			zap.String("bill_order_id", bill.OrderID))
		return nil, ErrSignatureMismatch
	}

	claimed, err := s.idempotency.Claim(ctx, "payment:"+req.PaymentID, paymentClaimTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		s.metrics.PaymentVerified("duplicate")
		return nil, fmt.Errorf("payment %s: %w", req.PaymentID, ErrDuplicate)
	}

	bill, err = s.billing.MarkPaid(ctx, req.BillID, req.PaymentID)
	switch {
	case errors.Is(err, ErrAlreadyPaid):
		s.metrics.PaymentVerified("already_paid")
		return bill, nil
	case err != nil:
		// let the client retry the same payment
		if rerr := s.idempotency.Release(ctx, "payment:"+req.PaymentID); rerr != nil {
			s.logger.Warn("failed to release payment claim", zap.String("payment_id", req.PaymentID), zap.Error(rerr))
		}
		s.metrics.PaymentVerified("error")
		return nil, err
	}

	s.metrics.PaymentVerified("ok")
	s.sendReceipt(bill)
	return bill, nil
}

// sendReceipt emails the tenant in the background.
func (s *PaymentService) sendReceipt(bill *models.Bill) {
	if s.notifier == nil {
		return
	}
	tenant, err := s.billing.tenant(context.Background(), bill.TenantID)
	if err != nil || tenant.Email == "" {
		return
	}
	subject := fmt.Sprintf("Payment received: %s %s %d", bill.Type, bill.Month, bill.Year)
	body := fmt.Sprintf("Hello %s,\n\nWe received ₹%s for your %s bill (%s %d). Reference: %s.\n\nRegards,\nPG Management Team",
		tenant.Name, bill.Amount.StringFixed(2), bill.Type, bill.Month, bill.Year, bill.TransactionRef)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.Send(ctx, tenant.Email, subject, body); err != nil {
			s.metrics.NotificationFailed()
			s.logger.Warn("payment receipt failed", zap.String("bill_id", bill.ID), zap.Error(err))
		}
	}()
}
