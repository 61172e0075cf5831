package service

import (
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/notification"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return money(d.Decimal)
}

func repairData(r *domain.RepairRequest) notification.Data {
	d := notification.Data{
		RepairID:       r.ID,
		JobCode:        r.JobCode,
		Description:    r.Description,
		ImageURLs:      r.ImageURLs,
		Address:        r.CustomerAddress,
		PreferredTime:  r.PreferredTime,
		RequesterEmail: r.RequesterEmail,
		ProviderName:   r.ProviderName(),
		Price:          nullMoney(r.PriceQuote),
		Deposit:        money(r.DepositAmount),
		FinalPrice:     nullMoney(r.FinalPrice),
		MaterialsCost:  nullMoney(r.MaterialsCost),
	}
	if r.ProviderCity != nil {
		d.ProviderCity = *r.ProviderCity
	}
	return d
}

func repairMessage(kind domain.NotificationKind, to string, r *domain.RepairRequest, suffix string, data notification.Data) notification.Message {
	return notification.Message{
		Kind:        kind,
		To:          to,
		EntityType:  domain.EntityRepair,
		EntityID:    r.ID,
		DedupSuffix: suffix,
		Data:        data,
	}
}

func reservationData(r *domain.Reservation, p *domain.Property) notification.Data {
	d := notification.Data{
		ReservationID: r.ID,
		TenantName:    r.TenantName,
		TenantEmail:   r.TenantEmail,
		StartDate:     r.StartDate.Format(domain.DateLayout),
		EndDate:       r.EndDate.Format(domain.DateLayout),
		Price:         money(r.OfferPrice),
	}
	if p != nil {
		d.PropertyTitle = p.Title
		d.Address = p.Address
	}
	return d
}

func reservationMessage(kind domain.NotificationKind, to string, r *domain.Reservation, suffix string, data notification.Data) notification.Message {
	return notification.Message{
		Kind:        kind,
		To:          to,
		EntityType:  domain.EntityReservation,
		EntityID:    r.ID,
		DedupSuffix: suffix,
		Data:        data,
	}
}

func orderMessage(o *domain.Order, v *domain.Vendor) notification.Message {
	items := make([]notification.ItemLine, len(o.Items))
	for i, it := range o.Items {
		items[i] = notification.ItemLine{Name: it.ProductName, Quantity: it.Quantity}
	}

	data := notification.Data{
		OrderRef:   o.Ref.String(),
		VendorName: v.Name,
		Barcode:    o.Barcode,
		Amount:     money(o.TotalPrice),
		Items:      items,
	}
	if o.GuestName != nil {
		data.GuestName = *o.GuestName
	}
	if o.GuestContact != nil {
		data.GuestContact = *o.GuestContact
	}

	return notification.Message{
		Kind:       domain.NotifyOrderReserved,
		To:         v.Email,
		EntityType: domain.EntityOrder,
		EntityID:   o.ID,
		Data:       data,
	}
}
