package enums

// PaymentMethod tags how a payment was made.
type PaymentMethod string

const (
	PaymentMethodToss         PaymentMethod = "toss"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodToken        PaymentMethod = "token"
)

var paymentMethods = []PaymentMethod{PaymentMethodToss, PaymentMethodBankTransfer, PaymentMethodToken}

func (v PaymentMethod) IsValid() bool { return valid(paymentMethods, v) }

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	return parse("payment method", paymentMethods, raw)
}
