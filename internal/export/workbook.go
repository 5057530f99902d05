// Package export renders medication data as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"healthbridge-server/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetMedications = "Medications"
	SheetReminders   = "Reminders"
	SheetAdherence   = "Adherence"
)

var (
	medicationHeader = []string{"Name", "Generic Name", "Dosage", "Frequency", "Route", "Category", "Active", "Refills Remaining", "Days Supply", "Reminder Times", "Prescribed By"}
	reminderHeader   = []string{"Date", "Time", "Medication", "Dosage", "Taken", "Taken At", "Notes"}
	adherenceHeader  = []string{"Medication", "Doses", "Taken", "Adherence %"}
)

// MedicationWorkbook builds a workbook with a sheet of medications, a sheet
// of materialised doses and a per-medication adherence summary whose last row
// is the overall rate.
func MedicationWorkbook(meds []models.Medication, reminders []models.MedicationReminder, overall int) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	medRows := make([][]any, 0, len(meds))
	for _, m := range meds {
		medRows = append(medRows, []any{
			m.Name, m.GenericName, m.Dosage, m.Frequency, string(m.Route), string(m.Category),
			yesNo(m.IsActive), m.RefillsRemaining, m.DaysSupply, strings.Join(m.ReminderTimes, ", "), m.PrescribedBy,
		})
	}

	remRows := make([][]any, 0, len(reminders))
	type tally struct{ total, taken int }
	perMed := map[string]*tally{}
	var order []string
	for _, r := range reminders {
		takenAt := ""
		if r.CompletedAt != nil {
			takenAt = r.CompletedAt.Format("2006-01-02 15:04")
		}
		remRows = append(remRows, []any{r.Date(), r.Time, r.MedicationName, r.Dosage, yesNo(r.IsCompleted), takenAt, r.Notes})

		tl, ok := perMed[r.MedicationName]
		if !ok {
			tl = &tally{}
			perMed[r.MedicationName] = tl
			order = append(order, r.MedicationName)
		}
		tl.total++
		if r.IsCompleted {
			tl.taken++
		}
	}

	adhRows := make([][]any, 0, len(order)+1)
	for _, name := range order {
		tl := perMed[name]
		adhRows = append(adhRows, []any{name, tl.total, tl.taken, int(math.Round(100 * float64(tl.taken) / float64(tl.total)))})
	}
	adhRows = append(adhRows, []any{"Overall", len(reminders), countTaken(reminders), overall})

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{SheetMedications, medicationHeader, medRows},
		{SheetReminders, reminderHeader, remRows},
		{SheetAdherence, adherenceHeader, adhRows},
	}
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", sh.name, err)
		}
		if err := writeSheet(f, sh.name, sh.header, sh.rows, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Bytes renders the workbook as xlsx and closes it.
func Bytes(f *excelize.File) ([]byte, error) {
	defer f.Close()
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, sheet, err)
		}
	}
	return nil
}

func countTaken(reminders []models.MedicationReminder) int {
	n := 0
	for _, r := range reminders {
		if r.IsCompleted {
			n++
		}
	}
	return n
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
