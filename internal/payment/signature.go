package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayment computes the callback signature the gateway sends after a
// successful payment: hex HMAC-SHA256 over "gatewayOrderID|gatewayPaymentID".
func SignPayment(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks a callback signature in constant time.
func VerifyPaymentSignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := SignPayment(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
