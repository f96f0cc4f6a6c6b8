package register

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SerialPrefix is the institution prefix on every loan serial number.
const SerialPrefix = "LH"

// Entry is one immutable row of the loan register. Serial numbers are
// strictly increasing and gapless within a year.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	LoanID       uuid.UUID `json:"loan_id"`
	Year         int       `json:"year"`
	Sequence     int       `json:"sequence"`
	SerialNumber string    `json:"serial_number"`
	RegisteredAt time.Time `json:"registered_at"`
}

// FormatSerial renders a register serial as LH/{year}/{seq:3}.
func FormatSerial(year, sequence int) string {
	return fmt.Sprintf("%s/%d/%03d", SerialPrefix, year, sequence)
}

// YearStats summarizes register entries for export queries.
type YearStats struct {
	Year       int            `json:"year"`
	TotalLoans int            `json:"total_loans"`
	ByStatus   map[string]int `json:"by_status"`
}
