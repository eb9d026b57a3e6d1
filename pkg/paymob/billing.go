package paymob

import "strings"

// Placeholder fills billing fields the caller did not supply. The gateway
// rejects payment key requests with any required billing key missing.
const Placeholder = "NA"

// BillingData is the address/contact block of a payment key request. Every
// field except ExtraDescription is required by the gateway.
type BillingData struct {
	Apartment        string `json:"apartment"`
	Floor            string `json:"floor"`
	Street           string `json:"street"`
	Building         string `json:"building"`
	ShippingMethod   string `json:"shipping_method"`
	PostalCode       string `json:"postal_code"`
	City             string `json:"city"`
	Country          string `json:"country"`
	State            string `json:"state"`
	PhoneNumber      string `json:"phone_number"`
	LastName         string `json:"last_name"`
	FirstName        string `json:"first_name"`
	Email            string `json:"email"`
	ExtraDescription string `json:"extra_description,omitempty"`
}

// BillingInput is what the storefront may send; any field can be blank.
type BillingInput struct {
	Email          string
	FirstName      string
	LastName       string
	PhoneNumber    string
	Apartment      string
	Floor          string
	Street         string
	Building       string
	PostalCode     string
	City           string
	State          string
	Country        string
	ShippingMethod string
	Notes          string
}

// BuildBillingData resolves each field exactly once: the caller's non-blank
// value wins, otherwise the placeholder. Country falls back to defaultCountry.
func BuildBillingData(in BillingInput, defaultCountry string) BillingData {
	country := orDefault(in.Country, defaultCountry)
	return BillingData{
		Apartment:        orPlaceholder(in.Apartment),
		Floor:            orPlaceholder(in.Floor),
		Street:           orPlaceholder(in.Street),
		Building:         orPlaceholder(in.Building),
		ShippingMethod:   orPlaceholder(in.ShippingMethod),
		PostalCode:       orPlaceholder(in.PostalCode),
		City:             orPlaceholder(in.City),
		Country:          orPlaceholder(country),
		State:            orPlaceholder(in.State),
		PhoneNumber:      orPlaceholder(in.PhoneNumber),
		LastName:         orPlaceholder(in.LastName),
		FirstName:        orPlaceholder(in.FirstName),
		Email:            orPlaceholder(in.Email),
		ExtraDescription: strings.TrimSpace(in.Notes),
	}
}

func orPlaceholder(v string) string {
	return orDefault(v, Placeholder)
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
