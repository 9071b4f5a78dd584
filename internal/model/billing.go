package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a non-negative currency value held in minor units (kobo).
type Amount int64

// maxUnits keeps units*100 plus the largest rounded fraction within int64.
const maxUnits = (math.MaxInt64 - 100) / 100

// ParseAmount parses a decimal string such as "5000.00" or "2500.5" without
// going through floating point. More than two fraction digits round half up.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount: %s", s)
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if units > maxUnits {
		return 0, fmt.Errorf("amount out of range: %s", s)
	}

	var minor int64
	roundUp := false
	for i, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		switch {
		case i < 2:
			minor = minor*10 + int64(r-'0')
		case i == 2:
			roundUp = r >= '5'
		}
	}
	if len(frac) == 1 {
		minor *= 10
	}
	total := units*100 + minor
	if roundUp {
		total++
	}
	return Amount(total), nil
}

// String formats the amount with exactly two decimals.
func (a Amount) String() string {
	return fmt.Sprintf("%d.%02d", int64(a)/100, int64(a)%100)
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

type BillItem struct {
	Description string `json:"description" validate:"required"`
	Amount      Amount `json:"amount"`
}

type InvoiceStatus string

const (
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusPending       InvoiceStatus = "pending"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially paid"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

type ReceiptStatus string

const (
	ReceiptStatusPaid          ReceiptStatus = "paid"
	ReceiptStatusPartiallyPaid ReceiptStatus = "partially_paid"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank-transfer"
)

type Customer struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type Invoice struct {
	InvoiceNumber FlexString    `json:"invoice_number" validate:"required"`
	PatientID     FlexString    `json:"patient_id"`
	Date          string        `json:"date"`
	Status        InvoiceStatus `json:"status" validate:"required,oneof='paid' 'pending' 'partially paid' 'cancelled'"`
	Customer      Customer      `json:"customer"`
	Items         []BillItem    `json:"items" validate:"dive"`
}

type Receipt struct {
	ReceiptNumber FlexString    `json:"receipt_number" validate:"required"`
	PatientID     FlexString    `json:"patient_id"`
	Date          string        `json:"date"`
	Status        ReceiptStatus `json:"status" validate:"required,oneof=paid partially_paid"`
	PaymentMethod PaymentMethod `json:"payment_method" validate:"required,oneof=cash card bank-transfer"`
	BalanceAmount Amount        `json:"balance_amount"`
	Customer      Customer      `json:"customer"`
	Items         []BillItem    `json:"items" validate:"dive"`
}

type BillKind string

const (
	BillKindInvoice BillKind = "invoice"
	BillKindReceipt BillKind = "receipt"
)

// BillDocument is the printable shape shared by invoices and receipts.
type BillDocument struct {
	Kind          BillKind   `json:"kind" validate:"required,oneof=invoice receipt"`
	Number        string     `json:"number" validate:"required"`
	PatientID     string     `json:"patient_id,omitempty"`
	Date          string     `json:"date"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	Balance       *Amount    `json:"balance_amount,omitempty"`
	Customer      Customer   `json:"customer"`
	Items         []BillItem `json:"items" validate:"dive"`
}

func (inv Invoice) Document() BillDocument {
	return BillDocument{
		Kind:      BillKindInvoice,
		Number:    inv.InvoiceNumber.String(),
		PatientID: inv.PatientID.String(),
		Date:      inv.Date,
		Status:    string(inv.Status),
		Customer:  inv.Customer,
		Items:     inv.Items,
	}
}

func (r Receipt) Document() BillDocument {
	balance := r.BalanceAmount
	return BillDocument{
		Kind:          BillKindReceipt,
		Number:        r.ReceiptNumber.String(),
		PatientID:     r.PatientID.String(),
		Date:          r.Date,
		Status:        string(r.Status),
		PaymentMethod: string(r.PaymentMethod),
		Balance:       &balance,
		Customer:      r.Customer,
		Items:         r.Items,
	}
}

// Total sums the item amounts.
func (d BillDocument) Total() Amount {
	var total Amount
	for _, item := range d.Items {
		total += item.Amount
	}
	return total
}
