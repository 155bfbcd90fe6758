package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/models"
)

const csvDateLayout = "02/01/2006 15:04"

// WriteCSV writes header and rows as a UTF-8 CSV document with a BOM so
// spreadsheet tools detect the encoding.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// Table renders a collection as CSV cells.
func Table(col models.Collection) (header []string, rows [][]string) {
	switch col.Kind {
	case models.KindClients:
		header = []string{"ID", "Nom", "Email", "Téléphone", "Adresse", "Courses", "Note", "Inscrit le"}
		for _, c := range col.Clients {
			rows = append(rows, []string{
				c.ID, c.Name, c.Email, c.Phone, c.Address,
				strconv.Itoa(c.TotalRides), fmt.Sprintf("%.1f", c.Rating), formatDate(c.CreatedAt),
			})
		}

	case models.KindDrivers:
		header = []string{"ID", "Nom", "Email", "Téléphone", "Véhicule", "Plaque", "Vérifié", "Courses", "Gains", "Note", "Statut"}
		for _, d := range col.Drivers {
			rows = append(rows, []string{
				d.ID, d.FullName, d.Email, d.Phone, d.VehicleType, d.VehiclePlate, yesNo(d.IsVerified),
				strconv.Itoa(d.TotalRides), FormatCurrency(d.TotalEarnings.Float64()),
				fmt.Sprintf("%.1f", d.Rating), StatusLabel(string(d.Status)),
			})
		}

	case models.KindRides:
		header = []string{"ID", "Client", "Conducteur", "Départ", "Arrivée", "Distance", "Durée", "Prix", "Statut", "Date"}
		for _, r := range col.Rides {
			rows = append(rows, []string{
				r.ID, orNA(r.ClientName()), orNA(r.DriverName()), r.PickupAddress, r.DropoffAddress,
				FormatDistance(r.Distance), FormatDuration(r.Duration), FormatCurrency(r.TotalPrice.Float64()),
				StatusLabel(string(r.Status)), formatDate(r.CreatedAt),
			})
		}

	case models.KindVerifications:
		header = []string{"ID", "Conducteur", "Moto", "Couleur", "Plaque", "Statut", "Soumis le", "Vérifié le", "Motif du refus"}
		for _, v := range col.Verifications {
			driver := ""
			if v.Driver != nil {
				driver = v.Driver.FullName
			}
			verifiedAt := ""
			if v.VerifiedAt != nil {
				verifiedAt = formatDate(*v.VerifiedAt)
			}
			rows = append(rows, []string{
				v.ID, orNA(driver), v.MotorcycleModel, v.MotorcycleColor, v.MotorcyclePlate,
				StatusLabel(string(v.Status)), formatDate(v.SubmittedAt), verifiedAt, v.RejectionReason,
			})
		}
	}
	return header, rows
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(csvDateLayout)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Oui"
	}
	return "Non"
}
