package paymentsvc

import (
	"context"
	"testing"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-lms/darasa/core/enrollment"
)

type snapStub struct {
	req  *snap.Request
	resp *snap.Response
	err  *midtrans.Error
}

func (s *snapStub) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	s.req = req
	return s.resp, s.err
}

func TestMidtransGateway_CreateCheckout(t *testing.T) {
	t.Run("creates snap transaction", func(t *testing.T) {
		stub := &snapStub{resp: &snap.Response{Token: "tok", RedirectURL: "https://pay.example/tok"}}
		gw := &MidtransGateway{serverKey: "key", client: stub}

		sess, err := gw.CreateCheckout(context.Background(), enrollment.Checkout{
			OrderID:       "ENR-1",
			Amount:        149000.4,
			Currency:      "IDR",
			ItemID:        "course-1",
			ItemName:      "Go for backend developers: from zero to production services",
			CustomerName:  "Jane",
			CustomerEmail: "jane@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "tok", sess.Token)
		assert.Equal(t, "https://pay.example/tok", sess.RedirectURL)

		assert.Equal(t, "ENR-1", stub.req.TransactionDetails.OrderID)
		assert.Equal(t, int64(149000), stub.req.TransactionDetails.GrossAmt)
		items := *stub.req.Items
		require.Len(t, items, 1)
		assert.Len(t, []rune(items[0].Name), 50)
	})

	t.Run("wraps gateway errors", func(t *testing.T) {
		stub := &snapStub{err: &midtrans.Error{Message: "unauthorized", StatusCode: 401}}
		gw := &MidtransGateway{serverKey: "key", client: stub}

		_, err := gw.CreateCheckout(context.Background(), enrollment.Checkout{OrderID: "ENR-1", Amount: 10})
		assert.Error(t, err)
	})
}

func TestMidtransGateway_VerifyNotification(t *testing.T) {
	gw := &MidtransGateway{serverKey: "server-key"}
	valid := enrollment.PaymentNotification{
		OrderID:     "ENR-1",
		StatusCode:  "200",
		GrossAmount: "149000.00",
	}
	valid.SignatureKey = Signature(valid.OrderID, valid.StatusCode, valid.GrossAmount, "server-key")

	tamperedAmount := valid
	tamperedAmount.GrossAmount = "1.00"
	wrongKey := valid
	wrongKey.SignatureKey = Signature(valid.OrderID, valid.StatusCode, valid.GrossAmount, "other-key")
	missing := valid
	missing.SignatureKey = ""

	tests := []struct {
		name    string
		n       enrollment.PaymentNotification
		wantErr error
	}{
		{"valid signature", valid, nil},
		{"tampered amount", tamperedAmount, enrollment.ErrInvalidNotification},
		{"signed with another key", wrongKey, enrollment.ErrInvalidNotification},
		{"missing signature", missing, enrollment.ErrInvalidNotification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, gw.VerifyNotification(tt.n))
		})
	}
}
