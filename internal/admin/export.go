package admin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"zapisnik/internal/model"
)

// handleExport streams the appointments of the requested range as an
// xlsx workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	start, end, err := rangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appts, err := s.db.ListAppointmentsBetween(r.Context(), start, end)
	if err != nil {
		s.internalError(w, err)
		return
	}

	loc := time.UTC
	if settings, err := s.db.GetSettings(r.Context()); err == nil {
		if tz, terr := time.LoadLocation(settings.Timezone); terr == nil {
			loc = tz
		}
	}

	file, err := s.buildWorkbook(r, appts, loc)
	if err != nil {
		s.internalError(w, err)
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("appointments_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := file.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("write export")
	}
}

func (s *Server) buildWorkbook(r *http.Request, appts []model.Appointment, loc *time.Location) (*excelize.File, error) {
	const sheet = "Записи"

	file := excelize.NewFile()
	file.SetSheetName("Sheet1", sheet)

	headers := []string{"№", "Код", "Клиент", "Услуга", "Дата", "Начало", "Конец", "Статус"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	if style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = file.SetCellStyle(sheet, startCell, endCell, style)
	}

	for i, a := range appts {
		clientName := ""
		if client, err := s.db.GetClient(r.Context(), a.ClientID); err == nil && client != nil {
			clientName = client.FullName
			if client.Username != "" {
				clientName += " (@" + client.Username + ")"
			}
		}

		localStart := a.StartTime.In(loc)
		localEnd := a.EndTime.In(loc)
		row := []interface{}{
			i + 1,
			a.Reference,
			clientName,
			a.ServiceName,
			localStart.Format("02.01.2006"),
			localStart.Format("15:04"),
			localEnd.Format("15:04"),
			statusLabel(a.Status),
		}
		for col, val := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := file.SetCellValue(sheet, cell, val); err != nil {
				return nil, err
			}
		}
	}

	return file, nil
}

func statusLabel(status string) string {
	switch status {
	case model.StatusPending:
		return "Ожидает"
	case model.StatusConfirmed:
		return "Подтверждена"
	case model.StatusCancelled:
		return "Отменена"
	case model.StatusCompleted:
		return "Завершена"
	default:
		return status
	}
}
