package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"storefront_server/lib"
	"storefront_server/structs"
	"storefront_server/structs/tables"

	"github.com/MonkyMars/gecho"
	"github.com/resend/resend-go/v3"
)

var (
	client     *resend.Client
	clientOnce = sync.Once{}
)

// Notifier is told about every placed order.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *tables.Order) error
}

// NotificationService mails order confirmations through Resend. With email
// disabled it only logs.
type NotificationService struct {
	logger *gecho.Logger
	cfg    *structs.EmailConfig
	client *resend.Client
}

func NewNotificationService(logger *gecho.Logger, cfg *structs.EmailConfig) *NotificationService {
	ns := &NotificationService{
		logger: logger,
		cfg:    cfg,
	}
	if cfg.Enabled && cfg.ApiKey != "" {
		ns.client = getEmailClient(cfg.ApiKey)
	}
	return ns
}

func getEmailClient(apiKey string) *resend.Client {
	clientOnce.Do(func() {
		client = resend.NewClient(apiKey)
	})
	return client
}

func (ns *NotificationService) SendEmail(ctx context.Context, to []string, subject string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    ns.cfg.From,
		To:      to,
		Html:    body,
		Subject: subject,
	}

	_, err := ns.client.Emails.Send(params)
	if err != nil {
		ns.logger.Error("Failed to send email", gecho.Field("error", err), gecho.Field("recipients", len(to)))
		return err
	}
	return nil
}

// OrderPlaced sends the confirmation to the customer, copying the shop admin.
func (ns *NotificationService) OrderPlaced(ctx context.Context, order *tables.Order) error {
	if ns.client == nil {
		ns.logger.Debug("Email disabled, skipping order confirmation", gecho.Field("order_number", order.OrderNumber))
		return nil
	}

	to := []string{order.Email}
	if ns.cfg.AdminEmail != "" {
		to = append(to, ns.cfg.AdminEmail)
	}

	subject := fmt.Sprintf("Order confirmation %s", order.OrderNumber)
	return ns.SendEmail(ctx, to, subject, orderConfirmationBody(order))
}

func orderConfirmationBody(order *tables.Order) string {
	var items strings.Builder
	for _, item := range order.CartItems {
		name := item.ProductTitle
		if item.Variant != nil {
			name += " - " + item.Variant.Name
		}
		fmt.Fprintf(&items, "<li>%dx %s: &euro; %s</li>",
			item.Quantity,
			html.EscapeString(name),
			lib.LineTotal(item.PriceAtPurchase, item.Quantity).StringFixed(2),
		)
	}

	return fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<style>
				body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
				.container { max-width: 600px; margin: 0 auto; padding: 20px; }
				.header { background-color: #4CAF50; color: white; padding: 20px; text-align: center; }
				.content { padding: 20px; background-color: #f9f9f9; }
			</style>
		</head>
		<body>
			<div class="container">
				<div class="header">
					<h1>Thank you for your order!</h1>
				</div>
				<div class="content">
					<p>Dear %s,</p>
					<p>We received your order <strong>%s</strong>.</p>
					<ul>%s</ul>
					<p><strong>Total: &euro; %s</strong></p>
					<h4>Delivery address:</h4>
					<p>%s</p>
				</div>
			</div>
		</body>
		</html>
	`, html.EscapeString(order.Name), html.EscapeString(order.OrderNumber), items.String(),
		order.TotalAmount.StringFixed(2), html.EscapeString(order.Address))
}
