package utils

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const maxAddressLength = 30

var frPrinter = message.NewPrinter(language.French)

// FormatCurrency renders a CFA amount the way the dashboard cards show it:
// "1.5M CFA" from a million up, French digit grouping below.
func FormatCurrency(amount float64) string {
	if amount == 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "0 CFA"
	}
	if amount >= 1_000_000 {
		return fmt.Sprintf("%.1fM CFA", amount/1_000_000)
	}
	return frPrinter.Sprintf("%d", int64(math.Round(amount))) + " CFA"
}

// FormatDistance converts metres to kilometres.
func FormatDistance(metres float64) string {
	return fmt.Sprintf("%.1f km", metres/1000)
}

// FormatDuration converts seconds to whole minutes.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0 min"
	}
	return fmt.Sprintf("%d min", (seconds+30)/60)
}

// FormatAddress shortens long addresses for table cells.
func FormatAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return "N/A"
	}
	runes := []rune(address)
	if len(runes) > maxAddressLength {
		return string(runes[:maxAddressLength]) + "..."
	}
	return address
}

var statusLabels = map[string]string{
	// rides
	"pending":     "En attente",
	"accepted":    "Acceptée",
	"in_progress": "En cours",
	"completed":   "Terminée",
	"cancelled":   "Annulée",
	// drivers
	"available": "Disponible",
	"offline":   "Hors ligne",
	"on_ride":   "En course",
	// verifications
	"in_review": "En examen",
	"approved":  "Approuvée",
	"rejected":  "Refusée",
}

// StatusLabel returns the French label of a ride, driver or verification
// status. Unknown statuses are returned as-is.
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}
