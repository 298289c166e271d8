package orders

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

const (
	unavailableProduct   = "product unavailable"
	unregisteredCustomer = "unregistered customer"
)

// confirmationLine is one rendered row of the confirmation table.
type confirmationLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	LineTotal string
}

type confirmation struct {
	OrderID         int64
	CustomerEmail   string
	UserID          int64
	Lines           []confirmationLine
	Total           string
	ShippingAddress *domain.ShippingAddress
	PaymentMethod   string
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1>New order received</h1>
  <h2>Order #{{.OrderID}}</h2>
  <h3>Customer</h3>
  <p><strong>Email:</strong> {{.CustomerEmail}}</p>
  <p><strong>User ID:</strong> {{.UserID}}</p>
  <h3>Items</h3>
  <table style="width: 100%; border-collapse: collapse;">
    <thead>
      <tr><th align="left">Product</th><th>Quantity</th><th align="right">Unit price</th><th align="right">Total</th></tr>
    </thead>
    <tbody>
{{- range .Lines}}
      <tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">${{.UnitPrice}}</td><td align="right">${{.LineTotal}}</td></tr>
{{- end}}
    </tbody>
  </table>
  <h3>Order total: ${{.Total}}</h3>
{{- with .ShippingAddress}}
  <h3>Shipping address</h3>
  <p>{{.Address}}</p>
  <p>{{.City}}, ZIP {{.ZipCode}}</p>
  <p>Phone: {{.Phone}}</p>
{{- end}}
  <h3>Payment method</h3>
  <p>{{.PaymentMethod}}</p>
</div>
`))

// enrichedItem is an order line with the product details found after commit.
type enrichedItem struct {
	ProductID int64
	Quantity  int
	Name      string
	Price     decimal.Decimal
}

// renderConfirmation builds the notification for a committed order. Missing
// lookups have already been replaced with placeholders by the caller.
func renderConfirmation(order domain.Order, email string, items []enrichedItem, recipient string) (domain.OrderNotification, error) {
	customer := email
	if customer == "" {
		customer = unregisteredCustomer
	}

	data := confirmation{
		OrderID:         order.ID,
		CustomerEmail:   customer,
		UserID:          order.UserID,
		Lines:           make([]confirmationLine, 0, len(items)),
		Total:           order.Total.StringFixed(2),
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod.Label(),
	}
	for _, item := range items {
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		data.Lines = append(data.Lines, confirmationLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price.StringFixed(2),
			LineTotal: lineTotal.StringFixed(2),
		})
	}

	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, data); err != nil {
		return domain.OrderNotification{}, err
	}

	return domain.OrderNotification{
		OrderID: order.ID,
		To:      recipient,
		Subject: fmt.Sprintf("New order #%d - %s", order.ID, customer),
		Body:    body.String(),
		HTML:    true,
	}, nil
}
