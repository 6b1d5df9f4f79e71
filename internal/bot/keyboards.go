package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"zapisnik/internal/model"
	"zapisnik/internal/slots"
)

// Callback data prefixes. The payload after the prefix is the value the
// state machine validates; stale or foreign callbacks are rejected by
// the FSM, not the keyboard.
const (
	cbBook           = "book"
	cbMainMenu       = "menu"
	cbMyAppointments = "my"
	cbCancelList     = "cancel_list"
	cbNoop           = "noop"
	cbServicePrefix  = "service:"
	cbNavPrefix      = "nav:"  // nav:YYYY-MM
	cbDatePrefix     = "date:" // date:YYYY-MM-DD
	cbTimePrefix     = "time:" // time:HH:MM
	cbBackToDates    = "back:dates"
	cbConfirm        = "confirm"
	cbCancelBooking  = "cancel_booking"
	cbCancelPrefix   = "cancel:"    // cancel:<appointment id> (ask)
	cbDoCancelPrefix = "do_cancel:" // do_cancel:<appointment id> (commit)
)

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Записаться", cbBook),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗂 Мои записи", cbMyAppointments),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отменить запись", cbCancelList),
		),
	)
}

func servicesKeyboard(services []model.Service) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(services)+1)
	for _, s := range services {
		label := fmt.Sprintf("%s — %d мин, %.0f ₽", s.Name, s.DurationMinutes, s.Price)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbServicePrefix, s.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Главное меню", cbMainMenu),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// calendarKeyboard builds a Monday-first month grid. Only dates present
// in available are selectable; everything else is an inert dot.
func calendarKeyboard(year int, month time.Month, available []time.Time) tgbotapi.InlineKeyboardMarkup {
	availableSet := make(map[string]bool, len(available))
	for _, d := range available {
		availableSet[slots.DateKey(d)] = true
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 8)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %d", monthNames[month-1], year), cbNoop),
	))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Пн", cbNoop),
		tgbotapi.NewInlineKeyboardButtonData("Вт", cbNoop),
		tgbotapi.NewInlineKeyboardButtonData("Ср", cbNoop),
		tgbotapi.NewInlineKeyboardButtonData("Чт", cbNoop),
		tgbotapi.NewInlineKeyboardButtonData("Пт", cbNoop),
		tgbotapi.NewInlineKeyboardButtonData("Сб", cbNoop),
		tgbotapi.NewInlineKeyboardButtonData("Вс", cbNoop),
	))

	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := firstDay.AddDate(0, 1, -1).Day()

	day := 1
	offset := slots.MondayIndex(firstDay.Weekday())
	for day <= daysInMonth {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for col := 0; col < 7; col++ {
			if (len(rows) == 2 && col < offset) || day > daysInMonth {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", cbNoop))
				continue
			}
			key := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
			if availableSet[key] {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("%d", day), cbDatePrefix+key))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData("·", cbNoop))
			}
			day++
		}
		rows = append(rows, row)
	}

	prev := firstDay.AddDate(0, -1, 0)
	next := firstDay.AddDate(0, 1, 0)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️", fmt.Sprintf("%s%04d-%02d", cbNavPrefix, prev.Year(), prev.Month())),
		tgbotapi.NewInlineKeyboardButtonData("Отмена", cbCancelBooking),
		tgbotapi.NewInlineKeyboardButtonData("➡️", fmt.Sprintf("%s%04d-%02d", cbNavPrefix, next.Year(), next.Month())),
	))

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func timeSlotsKeyboard(times []time.Time) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	var row []tgbotapi.InlineKeyboardButton
	for _, t := range times {
		clock := slots.FormatClock(t)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(clock, cbTimePrefix+clock))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ К выбору даты", cbBackToDates),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func confirmationKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", cbConfirm),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", cbCancelBooking),
		),
	)
}

func appointmentsKeyboard(appts []model.Appointment, loc *time.Location) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(appts)+1)
	for _, a := range appts {
		label := fmt.Sprintf("%s — %s", a.ServiceName, a.StartTime.In(loc).Format("02.01.2006 15:04"))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbCancelPrefix, a.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Главное меню", cbMainMenu),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func cancelConfirmKeyboard(appointmentID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да, отменить", fmt.Sprintf("%s%d", cbDoCancelPrefix, appointmentID)),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", cbMainMenu),
		),
	)
}
