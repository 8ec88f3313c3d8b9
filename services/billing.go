package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pg-hostel/metrics"
	"pg-hostel/models"
	"pg-hostel/notify"
)

// Billing defaults.
const (
	RentDueDay                = 5
	ElectricityDueDays        = 7
	defaultNotifyConcurrency  = 4
	defaultRentAmount float64 = 1500
)

// BillingOptions tunes the billing service.
type BillingOptions struct {
	// DefaultRent is charged for rooms without a price.
	DefaultRent decimal.Decimal
	// NotifyConcurrency bounds parallel bill notices.
	NotifyConcurrency int
}

// BillingService creates rent and electricity bills without duplicates.
type BillingService struct {
	db          *gorm.DB
	notifier    notify.Notifier
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	defaultRent decimal.Decimal
	concurrency int
}

// NewBillingService creates a billing service.
func NewBillingService(db *gorm.DB, notifier notify.Notifier, logger *zap.Logger, m *metrics.Metrics, opts BillingOptions) *BillingService {
	rent := opts.DefaultRent
	if !rent.IsPositive() {
		rent = decimal.NewFromFloat(defaultRentAmount)
	}
	concurrency := opts.NotifyConcurrency
	if concurrency <= 0 {
		concurrency = defaultNotifyConcurrency
	}
	return &BillingService{
		db:          db,
		notifier:    notifier,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
		defaultRent: rent,
		concurrency: concurrency,
	}
}

// SetClock replaces the time source.
func (s *BillingService) SetClock(now func() time.Time) {
	s.now = now
}

// DefaultRent returns the rent charged for unpriced rooms.
func (s *BillingService) DefaultRent() decimal.Decimal {
	return s.defaultRent
}

// GenerationResult summarises a monthly rent run.
type GenerationResult struct {
	Month   string        `json:"month"`
	Year    int           `json:"year"`
	Created []models.Bill `json:"created"`
	Skipped int           `json:"skipped"`
}

// GenerateMonthlyRent creates one Rent bill per tenant with a room for the month
// containing asOf. Tenants already billed for the period are skipped, so the run
// can be repeated safely.
func (s *BillingService) GenerateMonthlyRent(ctx context.Context, asOf time.Time) (*GenerationResult, error) {
	db := s.db.WithContext(ctx)
	month, year := PeriodOf(asOf)
	dueDate := time.Date(asOf.Year(), asOf.Month(), RentDueDay, 0, 0, 0, 0, asOf.Location())

	var tenants []models.Tenant
	if err := db.Where("room_no IS NOT NULL AND room_no <> ''").Order("room_no, name").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("load tenants: %w", err)
	}

	result := &GenerationResult{Month: month, Year: year, Created: []models.Bill{}}
	if len(tenants) == 0 {
		s.logger.Info("no tenants found to bill", zap.String("month", month), zap.Int("year", year))
		return result, nil
	}

	var rooms []models.Room
	if err := db.Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	prices := make(map[string]decimal.Decimal, len(rooms))
	for _, r := range rooms {
		if r.Price != nil && r.Price.IsPositive() {
			prices[r.RoomNo] = *r.Price
		}
	}

	billed := make(map[string]models.Tenant)
	for _, tenant := range tenants {
		amount, ok := prices[tenant.RoomNo]
		if !ok {
			amount = s.defaultRent
		}

		bill := models.Bill{
			ID:       uuid.NewString(),
			TenantID: tenant.ID,
			RoomNo:   tenant.RoomNo,
			Amount:   amount,
			Month:    month,
			Year:     year,
			Type:     models.BillRent,
			Status:   models.BillUnpaid,
			DueDate:  dueDate,
		}
		created, err := createBillIfAbsent(db, &bill)
		if err != nil {
			return result, fmt.Errorf("create rent bill for tenant %s: %w", tenant.ID, err)
		}
		if !created {
			result.Skipped++
			s.metrics.BillSkipped(string(models.BillRent))
			s.logger.Debug("rent bill already exists", zap.String("tenant_id", tenant.ID), zap.String("month", month), zap.Int("year", year))
			continue
		}

		result.Created = append(result.Created, bill)
		billed[bill.ID] = tenant
		s.metrics.BillCreated(string(models.BillRent))
		s.logger.Info("generated rent bill",
			zap.String("tenant", tenant.Name),
			zap.String("room_no", tenant.RoomNo),
			zap.String("amount", amount.StringFixed(2)))
	}

	s.notifyBills(ctx, result.Created, billed)
	s.logger.Info("monthly bill generation complete",
		zap.String("month", month),
		zap.Int("year", year),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// ElectricitySplit an electricity charge shared across tenants.
type ElectricitySplit struct {
	Amount    decimal.Decimal
	TenantIDs []string
	Month     string // defaults to the current month
	Year      int    // defaults to the current year
}

// CreateElectricitySplit divides the amount equally (rounded to 2 decimals) and
// creates one Electricity bill per tenant not yet billed for the period. Unknown
// tenants are skipped. The shares may not sum to the original amount.
func (s *BillingService) CreateElectricitySplit(ctx context.Context, req ElectricitySplit) ([]models.Bill, error) {
	req.TenantIDs = uniqueIDs(req.TenantIDs)
	if len(req.TenantIDs) == 0 {
		return nil, invalid("tenant_ids", "at least one tenant is required")
	}
	if !req.Amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}

	now := s.now()
	month, year, err := resolvePeriod(req.Month, req.Year, now)
	if err != nil {
		return nil, err
	}

	share := req.Amount.DivRound(decimal.NewFromInt(int64(len(req.TenantIDs))), 2)
	dueDate := now.AddDate(0, 0, ElectricityDueDays)
	db := s.db.WithContext(ctx)

	created := []models.Bill{}
	billed := make(map[string]models.Tenant)
	for _, tenantID := range req.TenantIDs {
		var tenant models.Tenant
		if err := db.First(&tenant, "id = ?", tenantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Warn("electricity split: unknown tenant skipped", zap.String("tenant_id", tenantID))
				continue
			}
			return created, fmt.Errorf("load tenant %s: %w", tenantID, err)
		}

		roomNo := tenant.RoomNo
		if roomNo == "" {
			roomNo = "N/A"
		}
		bill := models.Bill{
			ID:       uuid.NewString(),
			TenantID: tenant.ID,
			RoomNo:   roomNo,
			Amount:   share,
			Month:    month,
			Year:     year,
			Type:     models.BillElectricity,
			Status:   models.BillUnpaid,
			DueDate:  dueDate,
		}
		ok, err := createBillIfAbsent(db, &bill)
		if err != nil {
			return created, fmt.Errorf("create electricity bill for tenant %s: %w", tenant.ID, err)
		}
		if !ok {
			s.metrics.BillSkipped(string(models.BillElectricity))
			continue
		}
		created = append(created, bill)
		billed[bill.ID] = tenant
		s.metrics.BillCreated(string(models.BillElectricity))
	}

	s.notifyBills(ctx, created, billed)
	s.logger.Info("electricity bills created",
		zap.String("month", month),
		zap.Int("year", year),
		zap.String("share", share.StringFixed(2)),
		zap.Int("requested", len(req.TenantIDs)),
		zap.Int("created", len(created)))
	return created, nil
}

// MarkPaid flips an unpaid bill to Paid. txnRef is the verified gateway payment id.
func (s *BillingService) MarkPaid(ctx context.Context, billID, txnRef string) (*models.Bill, error) {
	db := s.db.WithContext(ctx)
	bill, err := s.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.Status == models.BillPaid {
		return bill, fmt.Errorf("bill %s: %w", billID, ErrAlreadyPaid)
	}

	paidAt := s.now()
	res := db.Model(&models.Bill{}).
		Where("id = ? AND status = ?", billID, models.BillUnpaid).
		Updates(map[string]interface{}{
			"status":          models.BillPaid,
			"transaction_ref": txnRef,
			"paid_at":         paidAt,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("mark bill %s paid: %w", billID, res.Error)
	}
	if res.RowsAffected == 0 {
		// paid by a concurrent request
		return bill, fmt.Errorf("bill %s: %w", billID, ErrAlreadyPaid)
	}

	bill.Status = models.BillPaid
	bill.TransactionRef = txnRef
	bill.PaidAt = &paidAt
	s.logger.Info("bill marked paid", zap.String("bill_id", billID), zap.String("transaction_ref", txnRef))
	return bill, nil
}

// attachOrder records the gateway order opened for an unpaid bill. A newer order
// replaces the previous one.
func (s *BillingService) attachOrder(ctx context.Context, billID, orderID string) error {
	res := s.db.WithContext(ctx).Model(&models.Bill{}).
		Where("id = ? AND status = ?", billID, models.BillUnpaid).
		Update("order_id", orderID)
	if res.Error != nil {
		return fmt.Errorf("attach order to bill %s: %w", billID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("bill %s: %w", billID, ErrAlreadyPaid)
	}
	return nil
}

// GetBill returns a bill by id.
func (s *BillingService) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	var bill models.Bill
	if err := s.db.WithContext(ctx).First(&bill, "id = ?", billID).Error; err != nil {
		return nil, lookupErr(err, "bill", billID)
	}
	return &bill, nil
}

// ListTenantBills returns a tenant's bills, newest first.
func (s *BillingService) ListTenantBills(ctx context.Context, tenantID string) ([]models.Bill, error) {
	var bills []models.Bill
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&bills).Error
	return bills, err
}

// ListBills returns bills for a period; empty month or zero year match everything.
func (s *BillingService) ListBills(ctx context.Context, month string, year int) ([]models.Bill, error) {
	q := s.db.WithContext(ctx).Model(&models.Bill{})
	if month != "" {
		m, ok := ParseMonth(month)
		if !ok {
			return nil, invalid("month", "invalid month name")
		}
		q = q.Where("month = ?", m.String())
	}
	if year != 0 {
		q = q.Where("year = ?", year)
	}
	var bills []models.Bill
	err := q.Order("year DESC, created_at DESC").Find(&bills).Error
	return bills, err
}

// uniqueIDs drops blanks and repeats, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// createBillIfAbsent inserts the bill unless one already exists for the same
// (tenant, month, year, type). The unique index decides, not a prior read.
func createBillIfAbsent(db *gorm.DB, bill *models.Bill) (bool, error) {
	res := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "month"},
			{Name: "year"},
			{Name: "type"},
		},
		DoNothing: true,
	}).Create(bill)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// notifyBills tells each newly billed tenant about the charge. Sends run in
// parallel and are awaited; failures are logged only.
func (s *BillingService) notifyBills(ctx context.Context, bills []models.Bill, tenants map[string]models.Tenant) {
	if s.notifier == nil || len(bills) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, bill := range bills {
		bill := bill
		tenant, ok := tenants[bill.ID]
		if !ok || tenant.Email == "" {
			continue
		}
		g.Go(func() error {
			subject, body := billNotice(tenant, bill)
			if err := s.notifier.Send(gctx, tenant.Email, subject, body); err != nil {
				s.metrics.NotificationFailed()
				s.logger.Warn("bill notification failed",
					zap.String("tenant_id", tenant.ID),
					zap.String("bill_id", bill.ID),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func billNotice(tenant models.Tenant, bill models.Bill) (string, string) {
	label := "Rent"
	if bill.Type == models.BillElectricity {
		label = "Electricity"
	}
	subject := fmt.Sprintf("%s Bill: %s %d", label, bill.Month, bill.Year)
	body := fmt.Sprintf("Hello %s,\n\nA %s bill of ₹%s for %s %d has been generated and added to your dashboard. Please pay by %s.\n\nRegards,\nPG Management Team",
		tenant.Name,
		label,
		bill.Amount.StringFixed(2),
		bill.Month,
		bill.Year,
		bill.DueDate.Format("Mon Jan 02 2006"))
	return subject, body
}

func (s *BillingService) tenant(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "tenant", id)
	}
	return &tenant, nil
}
