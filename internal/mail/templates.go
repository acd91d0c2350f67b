package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// OrderEmail is the data shared by the order lifecycle templates
type OrderEmail struct {
	CompanyName   string
	CustomerName  string
	OrderID       uint
	PortalURL     string
	Total         string
	ValidUntil    string
	Carrier       string
	WaybillNumber string
}

// RetentionEmail is the data for the win-back templates
type RetentionEmail struct {
	CompanyName  string
	CustomerName string
	DaysInactive int
	ShopURL      string
}

// QuoteSent builds the message carrying a quote and its portal link
func QuoteSent(to string, data OrderEmail) (Message, error) {
	subject := fmt.Sprintf("Cotización para tu Pedido #%d - %s", data.OrderID, data.CompanyName)
	return build("quote_sent", to, data.CustomerName, subject, data)
}

// PaymentConfirmed builds the payment confirmation message
func PaymentConfirmed(to string, data OrderEmail) (Message, error) {
	subject := fmt.Sprintf("Pago Confirmado - Pedido #%d - %s", data.OrderID, data.CompanyName)
	return build("payment_confirmed", to, data.CustomerName, subject, data)
}

// PaymentRejected builds the message sent when a payment could not be verified
func PaymentRejected(to string, data OrderEmail) (Message, error) {
	subject := fmt.Sprintf("Problema con el pago - Pedido #%d - %s", data.OrderID, data.CompanyName)
	return build("payment_rejected", to, data.CustomerName, subject, data)
}

// Dispatched builds the shipment notification with carrier and waybill
func Dispatched(to string, data OrderEmail) (Message, error) {
	subject := fmt.Sprintf("Tu Pedido #%d ha sido Despachado - %s", data.OrderID, data.CompanyName)
	return build("dispatched", to, data.CustomerName, subject, data)
}

// RetentionRisk builds the win-back message for customers inactive up to 90 days
func RetentionRisk(to string, data RetentionEmail) (Message, error) {
	subject := fmt.Sprintf("%s, tenemos novedades para ti en %s", data.CustomerName, data.CompanyName)
	return build("retention_risk", to, data.CustomerName, subject, data)
}

// RetentionLost builds the win-back message for customers inactive over 90 days
func RetentionLost(to string, data RetentionEmail) (Message, error) {
	subject := fmt.Sprintf("¡Te extrañamos en %s, %s!", data.CompanyName, data.CustomerName)
	return build("retention_lost", to, data.CustomerName, subject, data)
}

func build(name, to, toName, subject string, data interface{}) (Message, error) {
	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	return Message{
		To:      to,
		ToName:  toName,
		Subject: subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
