package service

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/payment"
)

// BookingRequest is the typed booking selection carried from the wizard to
// checkout, either posted directly or stored as a draft.  UserID is always
// taken from the access token, never from the body.
type BookingRequest struct {
	UserID        *uint64          `json:"-"`
	VehicleID     *uint64          `json:"vehicle_id,omitempty"`
	Vehicle       *model.Vehicle   `json:"vehicle,omitempty"`
	ServiceID     uint64           `json:"service_id" validate:"required"`
	AddOnIDs      []uint64         `json:"add_on_ids,omitempty" validate:"max=10"`
	Date          string           `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	Time          string           `json:"appointment_time" validate:"required,datetime=15:04"`
	TotalPrice    *decimal.Decimal `json:"total_price,omitempty"`
	TotalDuration *int             `json:"total_duration,omitempty"`
	CustomerName  string           `json:"customer_name,omitempty" validate:"max=120"`
	CustomerEmail string           `json:"customer_email,omitempty" validate:"omitempty,email,max=254"`
	CustomerPhone string           `json:"customer_phone,omitempty" validate:"max=40"`
}

// bookingMeta is the compact form of a paid selection stored in the
// checkout session's metadata.booking value.  Keys are abbreviated to stay
// within the provider's per-value limit.
type bookingMeta struct {
	UserID      *uint64      `json:"u,omitempty"`
	VehicleID   *uint64      `json:"v,omitempty"`
	Vehicle     *vehicleMeta `json:"vh,omitempty"`
	ServiceID   uint64       `json:"s"`
	ServiceName string       `json:"sn"`
	Price       string       `json:"sp"`
	AddOnIDs    []uint64     `json:"a,omitempty"`
	Date        string       `json:"d"`
	Time        string       `json:"t"`
	Total       string       `json:"tp"`
	Duration    int          `json:"td"`
	Name        string       `json:"n,omitempty"`
	Email       string       `json:"e,omitempty"`
	Phone       string       `json:"ph,omitempty"`
}

type vehicleMeta struct {
	Year     int    `json:"y"`
	Make     string `json:"mk"`
	Model    string `json:"md"`
	Trim     string `json:"tr,omitempty"`
	BodyType string `json:"bt"`
	Exterior string `json:"ec,omitempty"`
	Interior string `json:"ic,omitempty"`
	Plate    string `json:"lp,omitempty"`
}

func encodeBookingMeta(req BookingRequest, q Quote) (string, error) {
	m := bookingMeta{
		UserID:      req.UserID,
		VehicleID:   req.VehicleID,
		ServiceID:   q.Service.ID,
		ServiceName: q.Service.Name,
		Price:       q.Service.Price.StringFixed(2),
		Date:        req.Date,
		Time:        req.Time,
		Total:       q.TotalPrice.StringFixed(2),
		Duration:    q.TotalDuration,
		Name:        strings.TrimSpace(req.CustomerName),
		Email:       strings.TrimSpace(req.CustomerEmail),
		Phone:       strings.TrimSpace(req.CustomerPhone),
	}
	for _, a := range q.AddOns {
		m.AddOnIDs = append(m.AddOnIDs, a.ID)
	}
	if v := req.Vehicle; v != nil && req.VehicleID == nil {
		m.Vehicle = &vehicleMeta{
			Year: v.Year, Make: v.Make, Model: v.Model, Trim: v.Trim, BodyType: v.BodyType,
			Exterior: v.ExteriorColor, Interior: v.InteriorColor, Plate: v.LicensePlate,
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	if len(b) > payment.MaxMetadataValue {
		return "", apperr.Validation("booking details are too long for checkout; shorten the vehicle or contact fields")
	}
	return string(b), nil
}

func decodeBookingMeta(s string) (bookingMeta, error) {
	var m bookingMeta
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return m, err
	}
	if m.ServiceID == 0 || m.Date == "" || m.Time == "" {
		return m, apperr.Validation("booking metadata is incomplete")
	}
	return m, nil
}

func (m bookingMeta) vehicle() *model.Vehicle {
	if m.Vehicle == nil {
		return nil
	}
	return &model.Vehicle{
		UserID: m.UserID, Year: m.Vehicle.Year, Make: m.Vehicle.Make, Model: m.Vehicle.Model,
		Trim: m.Vehicle.Trim, BodyType: m.Vehicle.BodyType, ExteriorColor: m.Vehicle.Exterior,
		InteriorColor: m.Vehicle.Interior, LicensePlate: m.Vehicle.Plate,
	}
}
