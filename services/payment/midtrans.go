package paymentsvc

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"math"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/enrollment"
)

// snapAPI is the part of snap.Client used by the gateway.
type snapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// MidtransGateway creates snap checkouts and authenticates midtrans HTTP notifications.
type MidtransGateway struct {
	serverKey string
	client    snapAPI
}

var _ enrollment.PaymentGateway = (*MidtransGateway)(nil)

func NewMidtransGateway(conf core.MidtransConfig) *MidtransGateway {
	env := midtrans.Sandbox
	if conf.Production {
		env = midtrans.Production
	}
	var client snap.Client
	client.New(conf.ServerKey, env)
	return &MidtransGateway{serverKey: conf.ServerKey, client: &client}
}

func (gw *MidtransGateway) CreateCheckout(_ context.Context, checkout enrollment.Checkout) (enrollment.CheckoutSession, error) {
	amount := int64(math.Round(checkout.Amount))
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  checkout.OrderID,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: checkout.CustomerName,
			Email: checkout.CustomerEmail,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    checkout.ItemID,
			Name:  truncate(checkout.ItemName, 50),
			Price: amount,
			Qty:   1,
		}},
	}

	resp, mErr := gw.client.CreateTransaction(req)
	if mErr != nil {
		return enrollment.CheckoutSession{}, errors.Wrap(mErr, "creating snap transaction")
	}
	return enrollment.CheckoutSession{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// VerifyNotification checks signature_key = SHA512(order_id + status_code + gross_amount + server_key).
func (gw *MidtransGateway) VerifyNotification(n enrollment.PaymentNotification) error {
	if n.OrderID == "" || n.SignatureKey == "" {
		return enrollment.ErrInvalidNotification
	}
	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, gw.serverKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) != 1 {
		return enrollment.ErrInvalidNotification
	}
	return nil
}

// Signature computes the midtrans notification signature.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// midtrans rejects item names longer than 50 characters
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
