package payment_test

import (
	"testing"

	"ms-orders/internal/payment"

	"github.com/stretchr/testify/assert"
)

func TestSignPayment(t *testing.T) {
	sig := payment.SignPayment("secret", "order_abc", "pay_xyz")
	assert.Len(t, sig, 64)

	// Deterministic for the same inputs.
	assert.Equal(t, sig, payment.SignPayment("secret", "order_abc", "pay_xyz"))

	// Any input change produces a different signature.
	assert.NotEqual(t, sig, payment.SignPayment("secret", "order_abc", "pay_other"))
	assert.NotEqual(t, sig, payment.SignPayment("other", "order_abc", "pay_xyz"))
}

func TestVerifyPaymentSignature(t *testing.T) {
	sig := payment.SignPayment("secret", "order_abc", "pay_xyz")

	assert.True(t, payment.VerifyPaymentSignature("secret", "order_abc", "pay_xyz", sig))
	assert.False(t, payment.VerifyPaymentSignature("secret", "order_abc", "pay_xyz", "deadbeef"))
	assert.False(t, payment.VerifyPaymentSignature("wrong", "order_abc", "pay_xyz", sig))
	assert.False(t, payment.VerifyPaymentSignature("secret", "order_abc", "pay_xyz", ""))
}
