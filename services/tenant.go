package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pg-hostel/models"
	"pg-hostel/notify"
)

// passwordCost is the bcrypt cost for stored passwords.
var passwordCost = bcrypt.DefaultCost

// NewTenant registration details for a tenant moving in.
type NewTenant struct {
	Name         string
	Email        string
	Phone        string
	RoomNo       string
	Deposit      decimal.Decimal
	IDType       string
	IDNumber     string
	IDProof      string // document URL
	ProfilePhoto string // optional URL
}

// TenantService registers tenants and manages their accounts.
type TenantService struct {
	db        *gorm.DB
	occupancy *OccupancyService
	notifier  notify.Notifier
	logger    *zap.Logger
}

// NewTenantService creates a tenant service.
func NewTenantService(db *gorm.DB, occupancy *OccupancyService, notifier notify.Notifier, logger *zap.Logger) *TenantService {
	return &TenantService{db: db, occupancy: occupancy, notifier: notifier, logger: logger}
}

func (n NewTenant) validate() error {
	switch {
	case strings.TrimSpace(n.Name) == "":
		return invalid("name", "is required")
	case strings.TrimSpace(n.Email) == "":
		return invalid("email", "is required")
	case strings.TrimSpace(n.Phone) == "":
		return invalid("phone", "is required")
	case strings.TrimSpace(n.RoomNo) == "":
		return invalid("room_no", "is required")
	case strings.TrimSpace(n.IDType) == "":
		return invalid("id_type", "is required")
	case strings.TrimSpace(n.IDNumber) == "":
		return invalid("id_number", "is required")
	case strings.TrimSpace(n.IDProof) == "":
		return invalid("id_proof", "ID proof file is required")
	}
	if _, err := mail.ParseAddress(n.Email); err != nil {
		return invalid("email", "is not a valid address")
	}
	known := false
	for _, t := range models.IDTypes {
		if strings.EqualFold(t, n.IDType) {
			known = true
			break
		}
	}
	if !known {
		return invalid("id_type", "must be one of "+strings.Join(models.IDTypes, ", "))
	}
	if n.Deposit.IsNegative() {
		return invalid("deposit", "must not be negative")
	}
	return nil
}

// DefaultPassword is the initial password for a new tenant: the local part of the email.
func DefaultPassword(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Create registers a tenant and assigns their room in one step. The tenant is
// emailed their login details; a failed email does not fail the registration.
func (s *TenantService) Create(ctx context.Context, req NewTenant) (*models.Tenant, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	password := DefaultPassword(email)
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	photo := req.ProfilePhoto
	if photo == "" {
		photo = models.DefaultProfilePhoto
	}
	tenant := models.Tenant{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Password:     string(hashed),
		Phone:        strings.TrimSpace(req.Phone),
		Deposit:      req.Deposit,
		IDType:       strings.ToLower(req.IDType),
		IDNumber:     strings.TrimSpace(req.IDNumber),
		IDProof:      req.IDProof,
		ProfilePhoto: photo,
	}

	var room *models.Room
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Tenant{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("tenant with email %s: %w", email, ErrDuplicate)
		}
		if err := insertTenant(tx, &tenant); err != nil {
			return err
		}
		var err error
		room, err = s.occupancy.assignTx(tx, &tenant, strings.TrimSpace(req.RoomNo))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.occupancy.recordOperation(ctx, room, &tenant, models.OperationAssign)

	s.logger.Info("tenant registered",
		zap.String("tenant_id", tenant.ID),
		zap.String("room_no", tenant.RoomNo))

	if s.notifier != nil {
		subject := "Welcome to the PG"
		body := fmt.Sprintf("Hello %s,\n\nYour room %s is ready. Sign in with your email and the password %q, then change it from your dashboard.\n\nRegards,\nPG Management Team",
			tenant.Name, tenant.RoomNo, password)
		if err := s.notifier.Send(ctx, tenant.Email, subject, body); err != nil {
			s.logger.Warn("welcome email failed", zap.String("tenant_id", tenant.ID), zap.Error(err))
		}
	}
	return &tenant, nil
}

// List returns all active tenants ordered by room and name.
func (s *TenantService) List(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := s.db.WithContext(ctx).Order("room_no, name").Find(&tenants).Error
	return tenants, err
}

// Get returns a tenant by id.
func (s *TenantService) Get(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "tenant", id)
	}
	return &tenant, nil
}

// ChangePassword replaces the tenant's password after checking the old one.
func (s *TenantService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return invalid("new_password", "must be at least 6 characters")
	}
	tenant, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(tenant.Password), []byte(oldPassword)); err != nil {
		return ErrBadCredentials
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), passwordCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", id).Update("password", string(hashed)).Error
}

// Principal an authenticated caller.
type Principal struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Identity string `json:"identity"`
	RoomNo   string `json:"room_no,omitempty"`
}

// Authenticate signs in an administrator by username or a tenant by email.
func (s *TenantService) Authenticate(ctx context.Context, login, password string) (*Principal, error) {
	db := s.db.WithContext(ctx)
	login = strings.TrimSpace(login)

	var user models.User
	err := db.Where("username = ?", login).First(&user).Error
	if err == nil {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
			return nil, ErrBadCredentials
		}
		return &Principal{ID: fmt.Sprint(user.ID), Name: user.Username, Identity: user.Identity}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var tenant models.Tenant
	if err := db.Where("email = ?", strings.ToLower(login)).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(tenant.Password), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return &Principal{ID: tenant.ID, Name: tenant.Name, Identity: models.IdentityTenant, RoomNo: tenant.RoomNo}, nil
}

// insertTenant creates the row, reporting a lost race on the unique email
// index as ErrDuplicate.
func insertTenant(tx *gorm.DB, tenant *models.Tenant) error {
	if err := tx.Create(tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("tenant with email %s: %w", tenant.Email, ErrDuplicate)
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}
