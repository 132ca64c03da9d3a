package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"voucher-api/internal/config"
	"voucher-api/internal/models"
)

// BrevoService sends transactional email via the Brevo API. It implements
// Notifier for the allocation engine.
type BrevoService struct {
	APIKey     string
	FromEmail  string
	FromName   string
	httpClient *http.Client
}

// NewBrevoService creates a new Brevo service instance
func NewBrevoService() *BrevoService {
	return &BrevoService{
		APIKey:    config.AppConfig.BrevoAPIKey,
		FromEmail: config.AppConfig.BrevoFromEmail,
		FromName:  config.AppConfig.BrevoFromName,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// EmailRequest represents Brevo email request structure
type EmailRequest struct {
	Sender      EmailSender `json:"sender"`
	To          []EmailTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
	TextContent string      `json:"textContent"`
}

type EmailSender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type EmailTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SendVoucherEmail sends the purchase confirmation carrying the voucher code
func (s *BrevoService) SendVoucherEmail(recipient, name string, voucher *models.Voucher, txn *models.Transaction) error {
	if voucher == nil {
		return fmt.Errorf("no voucher to send")
	}

	expiry := ""
	if voucher.ExpiryDate != nil {
		expiry = voucher.ExpiryDate.Format("2 January 2006")
	}

	subject := fmt.Sprintf("Your %s voucher", voucher.ProductName)
	htmlContent := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>Your voucher</title>
		</head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px; text-align: center;">
				<h1 style="color: #333; margin-bottom: 20px;">Thank you for your purchase, %s!</h1>
				<p style="color: #666; font-size: 16px; margin-bottom: 20px;">Here is your %s voucher code:</p>
				<div style="background-color: #007bff; color: white; padding: 20px; border-radius: 10px; font-size: 28px; font-weight: bold; letter-spacing: 3px; margin: 20px 0;">
					%s
				</div>
				<p style="color: #999; font-size: 14px; margin-top: 20px;">Valid until %s. Keep this code to yourself.</p>
				<p style="color: #999; font-size: 12px; margin-top: 30px;">Order reference: %s</p>
			</div>
		</body>
		</html>
	`, name, voucher.ProductName, voucher.Code, expiry, txn.TempID)

	textContent := fmt.Sprintf(`
		Thank you for your purchase, %s!

		Your %s voucher code: %s

		Valid until %s. Keep this code to yourself.

		Order reference: %s
	`, name, voucher.ProductName, voucher.Code, expiry, txn.TempID)

	emailReq := EmailRequest{
		Sender: EmailSender{
			Name:  s.FromName,
			Email: s.FromEmail,
		},
		To: []EmailTo{
			{Email: recipient, Name: name},
		},
		Subject:     subject,
		HTMLContent: htmlContent,
		TextContent: textContent,
	}

	return s.sendEmail(emailReq)
}

// sendEmail sends email via Brevo API
func (s *BrevoService) sendEmail(req EmailRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	httpReq, err := http.NewRequest("POST", "https://api.brevo.com/v3/smtp/email", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", s.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}

	return nil
}
