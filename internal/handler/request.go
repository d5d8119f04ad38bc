package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/auth"
)

func currentUser(r *http.Request) (uuid.UUID, *AppError) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, ErrMissingToken
	}
	return userID, nil
}

// lenientDecimal accepts a JSON number or numeric string. Anything else,
// including null and empty strings, decodes to zero.
type lenientDecimal struct {
	decimal.Decimal
}

func (d *lenientDecimal) UnmarshalJSON(b []byte) error {
	d.Decimal = decimal.Zero

	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	} else {
		s = string(b)
	}

	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	d.Decimal = v
	return nil
}

// amountValue is a strict decimal: numbers or numeric strings only.
type amountValue struct {
	decimal.Decimal
	set   bool
	valid bool
}

func (a *amountValue) UnmarshalJSON(b []byte) error {
	a.set = true
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		a.set = false
		return nil
	}

	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	} else {
		s = string(b)
	}

	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	a.Decimal = v
	a.valid = true
	return nil
}
