// Package receipts renders PDF receipts for completed bookings by printing
// an HTML template through headless Chrome.
package receipts

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/fixlify/homeservices-api/models"
)

type Generator struct {
	tmpl *template.Template
}

func NewGenerator(templatePath string) (*Generator, error) {
	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse receipt template: %w", err)
	}
	return &Generator{tmpl: tmpl}, nil
}

type receiptData struct {
	Reference     string
	CustomerName  string
	WorkerName    string
	ServiceName   string
	Date          string
	TimeSlot      string
	Address       string
	Amount        string
	PaymentMethod string
	IssuedAt      string
}

// Generate renders the receipt for a booking. The caller is responsible for
// only issuing receipts for completed bookings.
func (g *Generator) Generate(ctx context.Context, booking *models.Booking) ([]byte, error) {
	workerName := "—"
	if booking.Worker != nil {
		workerName = booking.Worker.FullName
	}

	data := receiptData{
		Reference:     booking.Reference,
		CustomerName:  booking.Customer.FullName,
		WorkerName:    workerName,
		ServiceName:   booking.Service.Name,
		Date:          booking.Date.Format("January 2, 2006"),
		TimeSlot:      booking.TimeSlot,
		Address:       booking.Address,
		Amount:        fmt.Sprintf("%s %.2f", booking.Currency, float64(booking.AmountCents)/100),
		PaymentMethod: booking.PaymentMethod,
		IssuedAt:      time.Now().Format("January 2, 2006"),
	}

	var rendered bytes.Buffer
	if err := g.tmpl.Execute(&rendered, data); err != nil {
		return nil, err
	}

	return printToPDF(ctx, rendered.String())
}

func printToPDF(parent context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}
