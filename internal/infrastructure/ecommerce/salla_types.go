package ecommerce

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/storesync/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Response Envelope
// ---------------------------------------------------------------------------

// sallaEnvelope is the standard Salla API response wrapper
type sallaEnvelope struct {
	Status     int              `json:"status"`
	Success    bool             `json:"success"`
	Data       json.RawMessage  `json:"data"`
	Pagination *sallaPagination `json:"pagination"`
	Error      *sallaError      `json:"error"`
}

// sallaPagination carries list endpoint paging metadata
type sallaPagination struct {
	Count       int `json:"count"`
	Total       int `json:"total"`
	PerPage     int `json:"perPage"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// sallaError carries the platform's error payload
type sallaError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ---------------------------------------------------------------------------
// Flexible Field Types
// ---------------------------------------------------------------------------

// flexID accepts both numeric and string identifiers.
// Salla sends numeric ids on some resources and strings on others.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

// flexMoney accepts a money field in any of the shapes the platform sends:
// a bare number, a numeric string, or an object with an amount field.
// Unparseable values never fail decoding; they are flagged so the caller
// can record a warning and continue with the remaining fields.
type flexMoney struct {
	Value   *decimal.Decimal
	Invalid bool
	Raw     string
}

func (m *flexMoney) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}

	// Object form: {"amount": 19.99, "currency": "SAR"}
	if len(s) > 0 && s[0] == '{' {
		var obj struct {
			Amount json.RawMessage `json:"amount"`
		}
		if err := json.Unmarshal(data, &obj); err != nil || len(obj.Amount) == 0 {
			m.Invalid = true
			m.Raw = s
			return nil
		}
		return m.UnmarshalJSON(obj.Amount)
	}

	// String form: strip quotes, then parse as decimal
	if len(s) >= 2 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			m.Invalid = true
			m.Raw = s
			return nil
		}
		s = strings.TrimSpace(v)
		if s == "" {
			return nil
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		m.Invalid = true
		m.Raw = s
		return nil
	}
	m.Value = &d
	return nil
}

// collect appends a parse warning for this field when the value was
// unparseable, and returns the decimal (nil when absent or invalid)
func (m flexMoney) collect(field string, warnings *[]string) *decimal.Decimal {
	if m.Invalid {
		*warnings = append(*warnings, fmt.Sprintf("%s: unparseable value %q", field, m.Raw))
		return nil
	}
	return m.Value
}

// flexInt accepts both numeric and string integers
type flexInt struct {
	Value *int64
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return nil
		}
		s = strings.TrimSpace(v)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	f.Value = &n
	return nil
}

// localeMatcher resolves arbitrary locale keys (ar, ar-SA, en-US, fr-FR)
// onto the three locales the sync pipeline stores
var localeMatcher = language.NewMatcher([]language.Tag{
	language.Arabic,
	language.English,
	language.French,
})

// localizedField accepts either a plain string or a locale-keyed object.
// A plain string is treated as the Arabic value since the platform's
// default store locale is Arabic.
type localizedField struct {
	Text integration.LocalizedText
}

func (l *localizedField) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		l.Text.Ar = v
		return nil
	}

	var byLocale map[string]string
	if err := json.Unmarshal(data, &byLocale); err != nil {
		return err
	}
	for key, value := range byLocale {
		if value == "" {
			continue
		}
		tag, err := language.Parse(key)
		if err != nil {
			continue
		}
		_, idx, conf := localeMatcher.Match(tag)
		if conf == language.No {
			continue
		}
		switch idx {
		case 0:
			if l.Text.Ar == "" {
				l.Text.Ar = value
			}
		case 1:
			if l.Text.En == "" {
				l.Text.En = value
			}
		case 2:
			if l.Text.Fr == "" {
				l.Text.Fr = value
			}
		}
	}
	return nil
}

// flexTime accepts the timestamp shapes the platform sends: RFC3339 strings,
// "2006-01-02 15:04:05" strings, and the object form {"date": "..."}
type flexTime struct {
	Value time.Time
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}
	if len(s) > 0 && s[0] == '{' {
		var obj struct {
			Date string `json:"date"`
		}
		if err := json.Unmarshal(data, &obj); err != nil || obj.Date == "" {
			return nil
		}
		s = obj.Date
	} else {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return nil
		}
		s = v
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05.000000", "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Value = parsed
			return nil
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Product Payloads
// ---------------------------------------------------------------------------

type sallaVariant struct {
	ID            flexID    `json:"id"`
	SKU           string    `json:"sku"`
	Price         flexMoney `json:"price"`
	SalePrice     flexMoney `json:"sale_price"`
	CostPrice     flexMoney `json:"cost_price"`
	StockQuantity flexInt   `json:"stock_quantity"`
	Weight        flexMoney `json:"weight"`
}

type sallaProduct struct {
	ID            flexID         `json:"id"`
	Name          localizedField `json:"name"`
	Description   localizedField `json:"description"`
	URLName       localizedField `json:"url_name"`
	Status        string         `json:"status"`
	Tags          []string       `json:"tags"`
	Brand         *sallaBrand    `json:"brand"`
	Price         flexMoney      `json:"price"`
	SalePrice     flexMoney      `json:"sale_price"`
	CostPrice     flexMoney      `json:"cost_price"`
	StockQuantity flexInt        `json:"quantity"`
	Weight        flexMoney      `json:"weight"`
	SKU           string         `json:"sku"`
	Skus          []sallaVariant `json:"skus"`
	UpdatedAt     flexTime       `json:"updated_at"`
}

type sallaBrand struct {
	Name localizedField `json:"name"`
}

// toPlatform converts the decoded payload to the domain representation.
// When the product carries no explicit variants, the product-level commerce
// fields become the single implicit variant.
func (p *sallaProduct) toPlatform(raw []byte) integration.PlatformProduct {
	warnings := make([]string, 0)

	product := integration.PlatformProduct{
		ProductID:   p.ID.String(),
		Name:        p.Name.Text,
		Description: p.Description.Text,
		Handle:      p.URLName.Text,
		Published:   p.Status == "sale" || p.Status == "active",
		Tags:        p.Tags,
		UpdatedAt:   p.UpdatedAt.Value,
		RawData:     string(raw),
	}
	if p.Brand != nil {
		product.Brand = p.Brand.Name.Text.Resolve()
	}

	if len(p.Skus) > 0 {
		for i, sku := range p.Skus {
			prefix := fmt.Sprintf("skus[%d].", i)
			product.Variants = append(product.Variants, integration.PlatformVariant{
				VariantID: sku.ID.String(),
				SKU:       sku.SKU,
				Price:     sku.Price.collect(prefix+"price", &warnings),
				SalePrice: sku.SalePrice.collect(prefix+"sale_price", &warnings),
				Cost:      sku.CostPrice.collect(prefix+"cost_price", &warnings),
				Stock:     sku.StockQuantity.Value,
				Weight:    sku.Weight.collect(prefix+"weight", &warnings),
			})
		}
	} else {
		product.Variants = append(product.Variants, integration.PlatformVariant{
			VariantID: p.ID.String(),
			SKU:       p.SKU,
			Price:     p.Price.collect("price", &warnings),
			SalePrice: p.SalePrice.collect("sale_price", &warnings),
			Cost:      p.CostPrice.collect("cost_price", &warnings),
			Stock:     p.StockQuantity.Value,
			Weight:    p.Weight.collect("weight", &warnings),
		})
	}

	product.ParseWarnings = warnings
	return product
}

// ---------------------------------------------------------------------------
// Order Payloads
// ---------------------------------------------------------------------------

type sallaCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Mobile    flexID `json:"mobile"`
	Country   string `json:"country"`
	City      string `json:"city"`
}

func (c *sallaCustomer) toAddress() integration.PlatformAddress {
	return integration.PlatformAddress{
		Name:    strings.TrimSpace(c.FirstName + " " + c.LastName),
		Phone:   c.Mobile.String(),
		Country: c.Country,
		City:    c.City,
	}
}

type sallaAddress struct {
	Name       string `json:"name"`
	Phone      flexID `json:"phone"`
	Country    string `json:"country"`
	City       string `json:"city"`
	Street     string `json:"street_number"`
	Address    string `json:"shipping_address"`
	PostalCode string `json:"postal_code"`
}

func (a *sallaAddress) toAddress() integration.PlatformAddress {
	street := a.Street
	if street == "" {
		street = a.Address
	}
	return integration.PlatformAddress{
		Name:       a.Name,
		Phone:      a.Phone.String(),
		Country:    a.Country,
		City:       a.City,
		Street:     street,
		PostalCode: a.PostalCode,
	}
}

type sallaOrderItem struct {
	ProductID flexID         `json:"product_id"`
	Name      localizedField `json:"name"`
	SKU       string         `json:"sku"`
	Quantity  flexInt        `json:"quantity"`
	Price     flexMoney      `json:"price"`
	Total     flexMoney      `json:"total"`
}

type sallaStatus struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (s *sallaStatus) value() string {
	if s == nil {
		return ""
	}
	if s.Slug != "" {
		return s.Slug
	}
	return s.Name
}

type sallaOrder struct {
	ID            flexID           `json:"id"`
	ReferenceID   flexID           `json:"reference_id"`
	Status        *sallaStatus     `json:"status"`
	PaymentMethod string           `json:"payment_method"`
	Currency      string           `json:"currency"`
	SubTotal      flexMoney        `json:"sub_total"`
	ShippingCost  flexMoney        `json:"shipping_cost"`
	Tax           flexMoney        `json:"tax"`
	Total         flexMoney        `json:"total"`
	Customer      *sallaCustomer   `json:"customer"`
	Billing       *sallaAddress    `json:"billing_address"`
	Shipping      *sallaAddress    `json:"shipping_address"`
	Items         []sallaOrderItem `json:"items"`
	CreatedAt     flexTime         `json:"created_at"`
	UpdatedAt     flexTime         `json:"updated_at"`
}

func (o *sallaOrder) toPlatform(raw []byte) integration.PlatformOrder {
	warnings := make([]string, 0)

	order := integration.PlatformOrder{
		OrderID:       o.ID.String(),
		ReferenceID:   o.ReferenceID.String(),
		Status:        o.Status.value(),
		PaymentMethod: o.PaymentMethod,
		Currency:      o.Currency,
		Subtotal:      o.SubTotal.collect("sub_total", &warnings),
		ShippingCost:  o.ShippingCost.collect("shipping_cost", &warnings),
		Tax:           o.Tax.collect("tax", &warnings),
		Total:         o.Total.collect("total", &warnings),
		CreatedAt:     o.CreatedAt.Value,
		UpdatedAt:     o.UpdatedAt.Value,
		RawData:       string(raw),
	}
	if o.Customer != nil {
		order.Customer = o.Customer.toAddress()
	}
	if o.Billing != nil {
		order.Billing = o.Billing.toAddress()
	}
	if o.Shipping != nil {
		order.Shipping = o.Shipping.toAddress()
	}

	order.Lines = convertOrderItems(o.Items, &warnings)
	order.ParseWarnings = warnings
	return order
}

func convertOrderItems(items []sallaOrderItem, warnings *[]string) []integration.PlatformOrderLine {
	lines := make([]integration.PlatformOrderLine, 0, len(items))
	for i, item := range items {
		prefix := fmt.Sprintf("items[%d].", i)
		line := integration.PlatformOrderLine{
			ProductID:   item.ProductID.String(),
			ProductName: item.Name.Text.Resolve(),
			SKU:         item.SKU,
			UnitPrice:   item.Price.collect(prefix+"price", warnings),
			Total:       item.Total.collect(prefix+"total", warnings),
		}
		if item.Quantity.Value != nil {
			line.Quantity = *item.Quantity.Value
		}
		lines = append(lines, line)
	}
	return lines
}

// ---------------------------------------------------------------------------
// Checkout Payloads
// ---------------------------------------------------------------------------

type sallaCheckout struct {
	ID        flexID           `json:"id"`
	Status    *sallaStatus     `json:"status"`
	Currency  string           `json:"currency"`
	Total     flexMoney        `json:"total"`
	Customer  *sallaCustomer   `json:"customer"`
	Items     []sallaOrderItem `json:"items"`
	CreatedAt flexTime         `json:"created_at"`
	UpdatedAt flexTime         `json:"updated_at"`
}

func (c *sallaCheckout) toPlatform(raw []byte) integration.PlatformCheckout {
	warnings := make([]string, 0)

	checkout := integration.PlatformCheckout{
		CheckoutID: c.ID.String(),
		Status:     c.Status.value(),
		Currency:   c.Currency,
		Total:      c.Total.collect("total", &warnings),
		CreatedAt:  c.CreatedAt.Value,
		UpdatedAt:  c.UpdatedAt.Value,
		RawData:    string(raw),
	}
	if c.Customer != nil {
		checkout.Customer = c.Customer.toAddress()
	}

	checkout.Lines = convertOrderItems(c.Items, &warnings)
	checkout.ParseWarnings = warnings
	return checkout
}

// ---------------------------------------------------------------------------
// Webhook Registration Payloads
// ---------------------------------------------------------------------------

type sallaWebhookRegistration struct {
	Name             string `json:"name"`
	Event            string `json:"event"`
	URL              string `json:"url"`
	Version          string `json:"version"`
	SecurityStrategy string `json:"security_strategy"`
}
