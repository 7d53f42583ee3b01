package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/logger"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/repository"
)

// ShipmentEmailService 向顾客发送发货与签收通知
type ShipmentEmailService struct {
	orderRepo repository.OrderRepository
	email     *EmailService
}

// NewShipmentEmailService 创建发货通知服务
func NewShipmentEmailService(orderRepo repository.OrderRepository, email *EmailService) *ShipmentEmailService {
	return &ShipmentEmailService{orderRepo: orderRepo, email: email}
}

// SendShipmentEmail 发送发货通知，订单无邮箱时跳过
func (s *ShipmentEmailService) SendShipmentEmail(ctx context.Context, orderID uint, fulfillmentStatus string) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	to := strings.TrimSpace(order.CustomerEmail)
	if to == "" {
		logger.FromContext(ctx).Infow("order_shipment_email_skipped", "order_id", orderID, "reason", "no_email")
		return nil
	}
	message, err := buildShipmentEmail(order, fulfillmentStatus)
	if err != nil {
		return err
	}
	message.To = to
	if err := s.email.Send(message); err != nil {
		return err
	}
	logger.FromContext(ctx).Infow("order_shipment_email_sent", "order_id", orderID, "status", fulfillmentStatus)
	return nil
}

var shipmentEmailHTML = template.Must(template.New("shipment").Parse(`<p>{{if .Name}}Hi {{.Name}},{{end}}</p>
<p>{{.Headline}}</p>
<p>Order No: <strong>{{.OrderNo}}</strong></p>
{{- if .TrackingNumber}}
<p>Tracking number: {{.TrackingNumber}}</p>
{{- end}}
{{- if .TrackingURL}}
<p><a href="{{.TrackingURL}}">Track your parcel</a></p>
{{- end}}
`))

type shipmentEmailView struct {
	Name           string
	Headline       string
	OrderNo        string
	TrackingNumber string
	TrackingURL    string
}

func buildShipmentEmail(order *models.Order, fulfillmentStatus string) (EmailMessage, error) {
	view := shipmentEmailView{
		Name:           strings.TrimSpace(order.CustomerName),
		Headline:       "Your order has shipped.",
		OrderNo:        order.OrderNo,
		TrackingNumber: stringValue(order.TrackingNumber),
		TrackingURL:    stringValue(order.TrackingURL),
	}
	subject := fmt.Sprintf("Order %s is on its way", order.OrderNo)
	if fulfillmentStatus == constants.FulfillmentStatusDelivered {
		subject = fmt.Sprintf("Order %s has been delivered", order.OrderNo)
		view.Headline = "Your order has been delivered."
	}

	var lines []string
	if view.Name != "" {
		lines = append(lines, fmt.Sprintf("Hi %s,", view.Name), "")
	}
	lines = append(lines, view.Headline, "", "Order No: "+view.OrderNo)
	if view.TrackingNumber != "" {
		lines = append(lines, "Tracking number: "+view.TrackingNumber)
	}
	if view.TrackingURL != "" {
		lines = append(lines, "Track your parcel: "+view.TrackingURL)
	}

	var html bytes.Buffer
	if err := shipmentEmailHTML.Execute(&html, view); err != nil {
		return EmailMessage{}, fmt.Errorf("render shipment email: %w", err)
	}
	return EmailMessage{Subject: subject, Text: strings.Join(lines, "\n"), HTML: html.String()}, nil
}
