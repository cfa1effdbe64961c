package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pos-backend/internal/config"
	"pos-backend/internal/domain"
)

// Directive is one instruction for the thermal-printer app. Field values
// follow the printer protocol: align 0=left 1=center 2=right, format
// 0=normal 1=tall 2=large.
type Directive struct {
	Type    int    `json:"type"`
	Content string `json:"content"`
	Bold    int    `json:"bold,omitempty"`
	Align   int    `json:"align,omitempty"`
	Format  int    `json:"format,omitempty"`
}

// Payload is the full print job for one receipt.
type Payload struct {
	PrintData []Directive `json:"printData"`
}

const separator = "------------------------------"

// Renderer turns a settled order into print directives. It is the single
// formatting contract for receipts.
type Renderer struct {
	cfg config.ReceiptConfig
}

func NewRenderer(cfg config.ReceiptConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

// ErrorPayload produces a one-line error receipt; the printer app expects
// a printable payload even on failure.
func ErrorPayload(message string) Payload {
	return Payload{PrintData: []Directive{
		{Type: 0, Content: message, Bold: 1, Align: 1},
	}}
}

func (r *Renderer) Render(order *domain.Order) Payload {
	p := make([]Directive, 0, 16+len(order.Items))

	p = append(p,
		Directive{Content: r.cfg.StoreName, Bold: 1, Align: 1, Format: 2},
		Directive{Content: r.cfg.AddressLine1, Align: 1},
		Directive{Content: r.cfg.AddressLine2, Align: 1},
		Directive{Content: separator},
	)

	p = append(p, Directive{Content: "Order : " + order.OrderNumber})
	if order.CustomerName != "" && order.CustomerName != "-" {
		p = append(p, Directive{Content: "Pelanggan : " + sanitizeText(order.CustomerName, 32)})
	}
	if order.TableNumber != nil && *order.TableNumber != "" {
		p = append(p, Directive{Content: "Meja : " + *order.TableNumber})
	}
	orderType := "Takeaway"
	if order.TypeOrder == domain.OrderTypeDineIn {
		orderType = "Dine In"
	}
	p = append(p,
		Directive{Content: "Tipe : " + orderType},
		Directive{Content: formatDate(order.CreatedAt)},
		Directive{Content: separator},
	)

	if len(order.Items) == 0 {
		p = append(p, Directive{Content: "BELUM ADA ITEM", Bold: 1, Align: 1})
	} else {
		for _, item := range order.Items {
			name := padRight(sanitizeText(item.ProductName, 16), 16)
			qty := padLeft(fmt.Sprintf("%dx", item.Qty), 4)
			p = append(p, Directive{Content: name + qty + " " + formatRupiah(item.Subtotal)})
		}
	}

	p = append(p,
		Directive{Content: separator},
		Directive{Content: "Subtotal " + formatRupiah(order.Subtotal), Align: 2},
	)
	if order.Discount.IsPositive() {
		p = append(p, Directive{Content: "Diskon " + formatRupiah(order.Discount), Align: 2})
	}
	if order.Tax.IsPositive() {
		p = append(p, Directive{Content: "Pajak " + formatRupiah(order.Tax), Align: 2})
	}
	p = append(p, Directive{Content: "TOTAL " + formatRupiah(order.Total), Bold: 1, Align: 2, Format: 1})
	if order.PaymentMethod != nil {
		p = append(p, Directive{Content: "Metode: " + *order.PaymentMethod})
	}
	p = append(p,
		Directive{Content: "Terima kasih", Bold: 1, Align: 1},
		Directive{Content: " "},
	)

	return Payload{PrintData: p}
}

// sanitizeText keeps printable ASCII only; the printer cannot render
// anything else.
func sanitizeText(text string, max int) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteByte(' ')
		case r >= 0x20 && r <= 0x7E:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func formatRupiah(amount decimal.Decimal) string {
	return "Rp " + amount.Round(0).String()
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
