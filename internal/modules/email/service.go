package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

const (
	SubjectVerify           = "Verify your MicroShop account"
	SubjectPaymentConfirmed = "Payment confirmed - MicroShop"
)

var (
	verifyTmpl = template.Must(template.New("verify").Parse(
		`<h3>Welcome to MicroShop</h3>` +
			`<p>Please verify your email:</p>` +
			`<p><a href="{{.URL}}">{{.URL}}</a></p>`))

	paymentTmpl = template.Must(template.New("payment").Parse(
		`<h3>Payment successful</h3>` +
			`<p>Order <b>#{{.OrderID}}</b> is paid.</p>` +
			`<p>Total: <b>${{.Total}}</b></p>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("email: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// VerificationHTML renders the account verification body. verifyURL is
// escaped for the href and the link text.
func VerificationHTML(verifyURL string) (string, error) {
	return render(verifyTmpl, struct{ URL string }{verifyURL})
}

func PaymentConfirmedHTML(orderID string, total money.Amount) (string, error) {
	return render(paymentTmpl, struct {
		OrderID string
		Total   string
	}{orderID, total.String()})
}
