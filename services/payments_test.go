package services_test

import (
	"testing"
	"time"

	"coin-miniapp-system/models"
	"coin-miniapp-system/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCreateInvoiceSubscription(t *testing.T) {
	user := createUser(t, "pay_sub")

	invoice, err := paymentService.CreateInvoice(user, models.ProductSubscription, "")
	assert.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPending, invoice.Status)
	assert.Equal(t, "premium", invoice.ProductRef)
	assert.True(t, invoice.AmountTON.Equal(decimal.NewFromFloat(1.5)))
	assert.Len(t, invoice.Payload, 16)
	assert.True(t, invoice.ExpiresAt.After(time.Now()))
}

func TestCreateInvoiceUnknownCourse(t *testing.T) {
	user := createUser(t, "pay_unknown")

	_, err := paymentService.CreateInvoice(user, models.ProductCourse, "no-such-course")
	assert.ErrorIs(t, err, services.ErrUnknownProduct)

	_, err = paymentService.CreateInvoice(user, models.ProductType("gadget"), "x")
	assert.ErrorIs(t, err, services.ErrUnknownProduct)
}

func TestConfirmSubscriptionExtendsPremium(t *testing.T) {
	user := createUser(t, "pay_confirm")

	invoice, err := paymentService.CreateInvoice(user, models.ProductSubscription, "")
	assert.NoError(t, err)

	err = paymentService.ConfirmByPayload(invoice.Payload, "txhash1", invoice.AmountTON)
	assert.NoError(t, err)

	after := reloadUser(t, user.ID)
	assert.NotNil(t, after.PremiumUntil)
	expected := time.Now().AddDate(0, 0, 30)
	assert.WithinDuration(t, expected, *after.PremiumUntil, time.Minute)

	// Repeat confirmation is a no-op, not a second extension
	err = paymentService.ConfirmByPayload(invoice.Payload, "txhash1", invoice.AmountTON)
	assert.NoError(t, err)
	assert.WithinDuration(t, expected, *reloadUser(t, user.ID).PremiumUntil, time.Minute)
}

func TestConfirmStacksOnActivePremium(t *testing.T) {
	user := createUser(t, "pay_stack")
	until := time.Now().AddDate(0, 0, 10)
	assert.NoError(t, db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("premium_until", until).Error)

	invoice, err := paymentService.CreateInvoice(reloadUser(t, user.ID), models.ProductSubscription, "")
	assert.NoError(t, err)
	assert.NoError(t, paymentService.ConfirmByPayload(invoice.Payload, "txhash2", invoice.AmountTON))

	after := reloadUser(t, user.ID)
	assert.WithinDuration(t, until.AddDate(0, 0, 30), *after.PremiumUntil, time.Minute)
}

func TestConfirmCourseGrantsPurchase(t *testing.T) {
	user := createUser(t, "pay_course")

	invoice, err := paymentService.CreateInvoice(user, models.ProductCourse, "web3-foundations")
	assert.NoError(t, err)
	assert.NoError(t, paymentService.ConfirmByPayload(invoice.Payload, "txhash3", invoice.AmountTON))

	owned, err := paymentService.HasCourse(user.ID, "web3-foundations")
	assert.NoError(t, err)
	assert.True(t, owned)
}

func TestConfirmRejectsLowAmount(t *testing.T) {
	user := createUser(t, "pay_low")

	invoice, err := paymentService.CreateInvoice(user, models.ProductSubscription, "")
	assert.NoError(t, err)

	err = paymentService.ConfirmByPayload(invoice.Payload, "txhash4", decimal.NewFromFloat(0.1))
	assert.ErrorIs(t, err, services.ErrAmountTooLow)

	fresh, err := paymentService.GetInvoice(user.ID, invoice.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPending, fresh.Status)
}

func TestConfirmUnknownPayload(t *testing.T) {
	err := paymentService.ConfirmByPayload("not-a-real-payload", "txhash5", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, services.ErrInvoiceNotFound)
}

func TestExpireStale(t *testing.T) {
	user := createUser(t, "pay_stale")

	invoice, err := paymentService.CreateInvoice(user, models.ProductSubscription, "")
	assert.NoError(t, err)
	assert.NoError(t, db.Model(&models.Invoice{}).
		Where("id = ?", invoice.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	expired, err := paymentService.ExpireStale()
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, expired, int64(1))

	err = paymentService.ConfirmByPayload(invoice.Payload, "txhash6", invoice.AmountTON)
	assert.ErrorIs(t, err, services.ErrInvoiceExpired)
}
