package httpapi

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

var reservationExportHeader = []string{
	"Reservation ID",
	"Room ID",
	"Requester ID",
	"Department ID",
	"Start Time",
	"End Time",
	"Status",
	"Participants",
	"Validated By",
	"Validated At",
	"Created At",
}

var auditExportHeader = []string{
	"Audit ID",
	"Action",
	"Actor ID",
	"Target Type",
	"Target ID",
	"Outcome",
	"Error",
	"Created At",
}

// GenerateReservationExport renders reservations as an xlsx workbook.
func GenerateReservationExport(items []*domain.Reservation) ([]byte, error) {
	rows := make([][]any, 0, len(items))
	for _, res := range items {
		rows = append(rows, []any{
			res.ReservationID,
			res.RoomID,
			res.UserID,
			res.DepartmentID.String,
			res.StartTime.Format(time.RFC3339),
			res.EndTime.Format(time.RFC3339),
			string(res.Status),
			res.ParticipantCount,
			res.ValidatedBy.String,
			nullTimeString(res.ValidatedAt.Valid, res.ValidatedAt.Time),
			res.CreatedAt.Format(time.RFC3339),
		})
	}
	return generateExcel("Reservations", reservationExportHeader, rows)
}

// GenerateAuditExport renders audit logs as an xlsx workbook.
func GenerateAuditExport(items []*domain.AuditLog) ([]byte, error) {
	rows := make([][]any, 0, len(items))
	for _, log := range items {
		rows = append(rows, []any{
			log.AuditID,
			log.Action,
			log.ActorID.String,
			log.TargetType,
			log.TargetID,
			string(log.Outcome),
			log.ErrorMessage.String,
			log.CreatedAt.Format(time.RFC3339),
		})
	}
	return generateExcel("Audit Logs", auditExportHeader, rows)
}

func nullTimeString(valid bool, t time.Time) string {
	if !valid {
		return ""
	}
	return t.Format(time.RFC3339)
}

// generateExcel writes a single-sheet workbook with a styled header row.
func generateExcel(sheetName string, headers []string, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	// WriteToBuffer needs the file open, so close only on the error paths.

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "Z", 22); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	f.Close()
	return buf.Bytes(), nil
}
