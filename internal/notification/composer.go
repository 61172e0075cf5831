// Package notification renders lifecycle emails, stores them in the outbox
// and delivers them over SMTP.
package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	texttemplate "text/template"

	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[domain.NotificationKind]string{
	domain.NotifyRepairSubmitted:       "Your Repair Request Is Being Processed ({{.JobCode}})",
	domain.NotifyRepairQuoted:          "New quote for your repair {{.JobCode}}",
	domain.NotifyRepairQuoteSent:       "Your quote for {{.JobCode}} was sent",
	domain.NotifyRepairAccepted:        "Quote accepted - {{.JobCode}}",
	domain.NotifyRepairRejected:        "Job {{.JobCode}} was rejected",
	domain.NotifyProviderOnboarding:    "Set up payouts for {{.JobCode}}",
	domain.NotifyDepositPaid:           "New Paid Repair Request - {{.Description}}",
	domain.NotifyCompletionNeeded:      "Please confirm your repair {{.JobCode}}",
	domain.NotifyPriceRevised:          "Revised price for {{.JobCode}}",
	domain.NotifyFinalChargeReceipt:    "Payment receipt for {{.JobCode}}",
	domain.NotifyJobConfirmed:          "Job {{.JobCode}} confirmed",
	domain.NotifyPayoutReleased:        "Payout sent for {{.JobCode}}",
	domain.NotifyReservationSubmitted:  "New Reservation Alert - {{.PropertyTitle}}",
	domain.NotifyDocumentsRequested:    "Documents requested for {{.PropertyTitle}}",
	domain.NotifyDocumentsSubmitted:    "Documents received for reservation #{{.ReservationID}}",
	domain.NotifyReservationAccepted:   "Your reservation at {{.PropertyTitle}} was accepted",
	domain.NotifyReservationRejected:   "Your reservation at {{.PropertyTitle}} was declined",
	domain.NotifyReservationPaid:       "Reservation #{{.ReservationID}} paid",
	domain.NotifyReservationPaidTenant: "Payment received for {{.PropertyTitle}}",
	domain.NotifyReservationConfirmed:  "Reservation confirmed - {{.PropertyTitle}}",
	domain.NotifyOrderReserved:         "New Reservation Alert - Tajer",
}

// Data is the template payload. Money fields are preformatted strings.
type Data struct {
	RepairID       int64
	JobCode        string
	Description    string
	ImageURLs      []string
	Address        string
	PreferredTime  string
	RequesterEmail string
	ProviderName   string
	ProviderCity   string

	Price         string
	Deposit       string
	FinalPrice    string
	MaterialsCost string
	Amount        string

	ReservationID int64
	PropertyTitle string
	TenantName    string
	TenantEmail   string
	StartDate     string
	EndDate       string
	Note          string

	OrderRef     string
	VendorName   string
	GuestName    string
	GuestContact string
	Barcode      string
	Items        []ItemLine

	// Link is the primary call to action. Kinds with a well-known page get a
	// default when it is empty.
	Link      string
	AcceptURL string
	RejectURL string
}

type ItemLine struct {
	Name     string
	Quantity int
}

// Message asks for one email to one recipient.
type Message struct {
	Kind        domain.NotificationKind
	To          string
	EntityType  string
	EntityID    int64
	DedupSuffix string
	Data        Data
}

type Composer struct {
	bodies      *template.Template
	subjects    map[domain.NotificationKind]*texttemplate.Template
	baseURL     string
	frontendURL string
}

func NewComposer(baseURL, frontendURL string) (*Composer, error) {
	const op = "internal.notification.NewComposer"

	bodies, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse templates: %w", op, err)
	}

	c := &Composer{
		bodies:      bodies,
		subjects:    make(map[domain.NotificationKind]*texttemplate.Template, len(subjects)),
		baseURL:     strings.TrimRight(baseURL, "/"),
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}

	for kind, text := range subjects {
		if bodies.Lookup(string(kind)) == nil {
			return nil, fmt.Errorf("%s: no body template for %s", op, kind)
		}

		t, err := texttemplate.New(string(kind)).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse subject for %s: %w", op, kind, err)
		}
		c.subjects[kind] = t
	}

	return c, nil
}

// Compose renders m into an outbox row.
func (c *Composer) Compose(m Message) (*domain.Notification, error) {
	const op = "internal.notification.Composer.Compose"

	subject, ok := c.subjects[m.Kind]
	if !ok {
		return nil, fmt.Errorf("%s: unknown notification kind %q", op, m.Kind)
	}

	if m.To == "" {
		return nil, fmt.Errorf("%s: %s has no recipient", op, m.Kind)
	}

	data := c.withLinks(m.Kind, m.Data)

	var subj bytes.Buffer
	if err := subject.Execute(&subj, data); err != nil {
		return nil, fmt.Errorf("%s: failed to render subject: %w", op, err)
	}

	var body bytes.Buffer
	if err := c.bodies.ExecuteTemplate(&body, string(m.Kind), data); err != nil {
		return nil, fmt.Errorf("%s: failed to render body: %w", op, err)
	}

	return &domain.Notification{
		Recipient:  domain.NormalizeEmail(m.To),
		Subject:    strings.TrimSpace(subj.String()),
		BodyHTML:   body.String(),
		Kind:       m.Kind,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		DedupKey:   domain.DedupKeyFor(m.Kind, m.EntityType, m.EntityID, m.DedupSuffix),
	}, nil
}

func (c *Composer) withLinks(kind domain.NotificationKind, d Data) Data {
	if d.RepairID != 0 && d.JobCode != "" {
		code := url.QueryEscape(d.JobCode)
		if d.AcceptURL == "" {
			d.AcceptURL = fmt.Sprintf("%s/api/repairs/%d/accept?code=%s", c.baseURL, d.RepairID, code)
		}
		if d.RejectURL == "" {
			d.RejectURL = fmt.Sprintf("%s/api/repairs/%d/reject?code=%s", c.baseURL, d.RepairID, code)
		}
	}

	if d.Link != "" {
		return d
	}

	switch kind {
	case domain.NotifyCompletionNeeded:
		d.Link = fmt.Sprintf("%s/repairs/confirm?job=%s", c.frontendURL, url.QueryEscape(d.JobCode))
	case domain.NotifyReservationSubmitted, domain.NotifyDocumentsSubmitted, domain.NotifyReservationPaid:
		d.Link = fmt.Sprintf("%s/reservations/%d", c.frontendURL, d.ReservationID)
	case domain.NotifyDocumentsRequested:
		d.Link = fmt.Sprintf("%s/reservations/%d/documents", c.frontendURL, d.ReservationID)
	case domain.NotifyReservationAccepted:
		d.Link = fmt.Sprintf("%s/reservations/%d/verify", c.frontendURL, d.ReservationID)
	case domain.NotifyOrderReserved:
		d.Link = fmt.Sprintf("%s/vendor/reservations", c.frontendURL)
	}

	return d
}
