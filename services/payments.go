package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"coin-miniapp-system/models"
	"coin-miniapp-system/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrUnknownProduct  = errors.New("unknown product")
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrInvoiceExpired  = errors.New("invoice expired")
	ErrAmountTooLow    = errors.New("transfer amount below invoice amount")
)

// PaymentConfig is the TON payment policy.
type PaymentConfig struct {
	SubscriptionPriceTON decimal.Decimal
	SubscriptionDays     int
	InvoiceTTL           time.Duration
}

// PaymentConfigFromEnv loads the policy with product defaults.
func PaymentConfigFromEnv() PaymentConfig {
	price, err := decimal.NewFromString(utils.Getenv("SUBSCRIPTION_PRICE_TON", "1.5"))
	if err != nil {
		log.Printf("⚠️  SUBSCRIPTION_PRICE_TON is not a decimal, using default 1.5")
		price = decimal.NewFromFloat(1.5)
	}
	return PaymentConfig{
		SubscriptionPriceTON: price,
		SubscriptionDays:     int(utils.GetenvInt64("SUBSCRIPTION_DAYS", 30)),
		InvoiceTTL:           time.Duration(utils.GetenvInt64("INVOICE_TTL_MINUTES", 30)) * time.Minute,
	}
}

type PaymentService struct {
	DB     *gorm.DB
	Config PaymentConfig
}

func NewPaymentService(db *gorm.DB, config PaymentConfig) *PaymentService {
	return &PaymentService{DB: db, Config: config}
}

// ListCourses returns the purchasable catalog.
func (s *PaymentService) ListCourses() ([]models.Course, error) {
	var courses []models.Course
	err := s.DB.Where("active = ?", true).Order("created_at ASC").Find(&courses).Error
	return courses, err
}

// CreateInvoice opens a pending TON invoice for a subscription or a course.
// The returned payload is what the wallet must attach as the transfer comment.
func (s *PaymentService) CreateInvoice(user *models.User, product models.ProductType, productRef string) (*models.Invoice, error) {
	var amount decimal.Decimal

	switch product {
	case models.ProductSubscription:
		productRef = "premium"
		amount = s.Config.SubscriptionPriceTON
	case models.ProductCourse:
		var course models.Course
		if err := s.DB.Where("code = ? AND active = ?", productRef, true).First(&course).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUnknownProduct
			}
			return nil, err
		}
		amount = course.PriceTON
	default:
		return nil, ErrUnknownProduct
	}

	invoice := &models.Invoice{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Product:    product,
		ProductRef: productRef,
		AmountTON:  amount,
		Payload:    strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Status:     models.InvoiceStatusPending,
		ExpiresAt:  time.Now().Add(s.Config.InvoiceTTL),
	}
	if err := s.DB.Create(invoice).Error; err != nil {
		return nil, err
	}
	log.Printf("🧾 Invoice %s: %s %s for %s TON", invoice.ID, invoice.Product, invoice.ProductRef, invoice.AmountTON)
	return invoice, nil
}

// GetInvoice returns one of the caller's invoices.
func (s *PaymentService) GetInvoice(userID, invoiceID string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.DB.Where("id = ? AND user_id = ?", invoiceID, userID).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// ConfirmByPayload settles the invoice matching an on-chain transfer comment:
// marks it confirmed and applies the product (extend the premium window or
// grant the course) in one transaction. Called by the payment watcher.
// Repeat confirmations of the same payload are no-ops.
func (s *PaymentService) ConfirmByPayload(payload, txHash string, amount decimal.Decimal) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Where("payload = ?", payload).First(&invoice).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}
		if invoice.Status == models.InvoiceStatusConfirmed {
			return nil
		}
		if invoice.Status == models.InvoiceStatusExpired || time.Now().After(invoice.ExpiresAt) {
			return ErrInvoiceExpired
		}
		if amount.LessThan(invoice.AmountTON) {
			return ErrAmountTooLow
		}

		now := time.Now()
		invoice.Status = models.InvoiceStatusConfirmed
		invoice.TxHash = &txHash
		invoice.ConfirmedAt = &now
		if err := tx.Save(&invoice).Error; err != nil {
			return err
		}

		switch invoice.Product {
		case models.ProductSubscription:
			return s.extendSubscription(tx, invoice.UserID, now)
		case models.ProductCourse:
			purchase := models.CoursePurchase{
				ID:         uuid.NewString(),
				UserID:     invoice.UserID,
				CourseCode: invoice.ProductRef,
				InvoiceID:  invoice.ID,
			}
			if err := tx.Create(&purchase).Error; err != nil && !isDuplicateKey(err) {
				return err
			}
			return nil
		}
		return nil
	})
	if err != nil {
		return err
	}

	paymentsConfirmed.Inc()
	log.Printf("💎 Payment confirmed for payload %s (tx %s)", payload, txHash)
	return nil
}

// extendSubscription adds the plan window on top of any remaining time.
func (s *PaymentService) extendSubscription(tx *gorm.DB, userID string, now time.Time) error {
	var user models.User
	if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
		return err
	}

	from := now
	if user.PremiumUntil != nil && user.PremiumUntil.After(now) {
		from = *user.PremiumUntil
	}
	until := from.AddDate(0, 0, s.Config.SubscriptionDays)
	return tx.Model(&user).Update("premium_until", until).Error
}

// ExpireStale marks overdue pending invoices expired. Scheduler job.
func (s *PaymentService) ExpireStale() (int64, error) {
	res := s.DB.Model(&models.Invoice{}).
		Where("status = ? AND expires_at < ?", models.InvoiceStatusPending, time.Now()).
		Update("status", models.InvoiceStatusExpired)
	return res.RowsAffected, res.Error
}

// HasCourse reports whether the user already owns a course.
func (s *PaymentService) HasCourse(userID, courseCode string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.CoursePurchase{}).
		Where("user_id = ? AND course_code = ?", userID, courseCode).
		Count(&count).Error
	return count > 0, err
}
