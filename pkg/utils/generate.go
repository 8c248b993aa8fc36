package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateBookingCode creates a human readable booking code.
// Format: BOOK-YYYYMMDD-HHMMSS-XXXXXXXX, suffix taken from the booking id.
func GenerateBookingCode(now time.Time, id uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("BOOK-%s-%s-%s", now.Format("20060102"), now.Format("150405"), suffix)
}
