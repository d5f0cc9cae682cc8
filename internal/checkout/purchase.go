package checkout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PurchaseRequest запрос на покупку плана для конкретной placa.
type PurchaseRequest struct {
	PlanName  string `json:"planName" validate:"required"`
	PlanPrice Price  `json:"planPrice" validate:"required,price" swaggertype:"number" example:"49.9"`
	Plate     string `json:"plate" validate:"required"`
}

// Normalize убирает пробелы по краям и переводит placa в верхний регистр.
func (r PurchaseRequest) Normalize() PurchaseRequest {
	return PurchaseRequest{
		PlanName:  strings.TrimSpace(r.PlanName),
		PlanPrice: Price(strings.TrimSpace(string(r.PlanPrice))),
		Plate:     strings.ToUpper(strings.TrimSpace(r.Plate)),
	}
}

// Price цена плана. В JSON приходит числом или строкой с числом,
// хранится как исходный текст до валидации.
type Price string

// UnmarshalJSON принимает число, строку или null.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("planPrice must be a number or numeric string: %w", err)
		}
		*p = Price(n.String())
		return nil
	}
}

// Float возвращает числовое значение цены.
func (p Price) Float() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(p)), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("price %q is not finite", string(p))
	}
	return v, nil
}
