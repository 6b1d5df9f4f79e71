// Package bot is the Telegram transport: it turns updates into booking
// actions, renders the dialog keyboards and delivers notifications.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"zapisnik/internal/booking"
	"zapisnik/internal/database"
	"zapisnik/internal/google"
	"zapisnik/internal/model"
	"zapisnik/internal/slots"
)

const (
	msgWelcome = "Здравствуйте! Я помогу записаться на приём.\n\nВыберите действие:"
	msgError   = "Произошла ошибка. Попробуйте ещё раз или начните сначала: /start"
	msgExpired = "Сессия истекла. Начните запись заново:"
)

// Bot wires the Telegram API to the booking flow.
type Bot struct {
	api         *tgbotapi.BotAPI
	flow        *booking.Flow
	db          *database.DB
	calendar    *google.CalendarService // nil when sync is disabled
	limiter     RateLimiter
	adminChatID int64
	location    string // salon address shown in calendar links
	logger      zerolog.Logger
}

// New creates the bot. calendar may be nil.
func New(api *tgbotapi.BotAPI, flow *booking.Flow, db *database.DB, calendar *google.CalendarService,
	limiter RateLimiter, adminChatID int64, location string, logger zerolog.Logger) *Bot {
	return &Bot{
		api:         api,
		flow:        flow,
		db:          db,
		calendar:    calendar,
		limiter:     limiter,
		adminChatID: adminChatID,
		location:    location,
		logger:      logger,
	}
}

// Start consumes updates until ctx is cancelled. Updates are handled
// sequentially, so actions from one client are applied in arrival order.
func (b *Bot) Start(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info().Str("username", b.api.Self.UserName).Msg("bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info().Msg("bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// processUpdate is the fault boundary: a panic or unexpected error in a
// handler resets the client to the main menu instead of killing the loop.
func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Int64("chat_id", chatID).Msg("handler panicked")
			if chatID != 0 {
				b.sendMainMenu(chatID, msgError)
			}
		}
	}()

	if chatID != 0 && b.limiter != nil {
		allowed, err := b.limiter.Allow(ctx, chatID)
		if err != nil {
			b.logger.Error().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			return
		}
	}

	var err error
	switch {
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("update handling failed")
		if chatID != 0 {
			b.sendMainMenu(chatID, msgError)
		}
	}
}

func updateChatID(update tgbotapi.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		if _, err := b.db.UpsertClient(ctx, msg.Chat.ID, msg.From.UserName, fullName(msg.From)); err != nil {
			return fmt.Errorf("upsert client: %w", err)
		}
		b.sendMainMenu(msg.Chat.ID, msgWelcome)
		return nil
	case "help":
		b.sendMainMenu(msg.Chat.ID, "Запись на приём, просмотр и отмена своих записей — всё через кнопки ниже.")
		return nil
	default:
		b.sendMainMenu(msg.Chat.ID, "Я понимаю только кнопки. Выберите действие:")
		return nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	// Answer first so the client's spinner stops even if handling fails.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("answer callback failed")
	}
	if cb.Message == nil {
		return nil
	}

	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	data := cb.Data

	switch {
	case data == cbNoop:
		return nil

	case data == cbMainMenu:
		b.edit(chatID, msgID, msgWelcome, mainMenuKeyboard())
		return nil

	case data == cbBook:
		return b.startBooking(ctx, cb, chatID, msgID)

	case data == cbMyAppointments:
		return b.showAppointments(ctx, chatID, msgID, false)

	case data == cbCancelList:
		return b.showAppointments(ctx, chatID, msgID, true)

	case strings.HasPrefix(data, cbServicePrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, cbServicePrefix), 10, 64)
		if err != nil {
			return nil
		}
		return b.apply(ctx, chatID, msgID, booking.PickService{ServiceID: id})

	case strings.HasPrefix(data, cbNavPrefix):
		ym, err := time.Parse("2006-01", strings.TrimPrefix(data, cbNavPrefix))
		if err != nil {
			return nil
		}
		return b.applyNav(ctx, chatID, msgID, ym.Year(), ym.Month())

	case strings.HasPrefix(data, cbDatePrefix):
		return b.apply(ctx, chatID, msgID, booking.PickDate{Date: strings.TrimPrefix(data, cbDatePrefix)})

	case strings.HasPrefix(data, cbTimePrefix):
		return b.apply(ctx, chatID, msgID, booking.PickTime{Clock: strings.TrimPrefix(data, cbTimePrefix)})

	case data == cbBackToDates:
		return b.apply(ctx, chatID, msgID, booking.Back{})

	case data == cbConfirm:
		return b.apply(ctx, chatID, msgID, booking.Confirm{})

	case data == cbCancelBooking:
		return b.apply(ctx, chatID, msgID, booking.Cancel{})

	case strings.HasPrefix(data, cbCancelPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, cbCancelPrefix), 10, 64)
		if err != nil {
			return nil
		}
		return b.askCancelConfirmation(ctx, chatID, msgID, id)

	case strings.HasPrefix(data, cbDoCancelPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, cbDoCancelPrefix), 10, 64)
		if err != nil {
			return nil
		}
		return b.cancelAppointment(ctx, chatID, msgID, id)
	}
	return nil
}

func (b *Bot) startBooking(ctx context.Context, cb *tgbotapi.CallbackQuery, chatID int64, msgID int) error {
	res, err := b.flow.Start(ctx, chatID, cb.From.UserName, fullName(cb.From))
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			b.edit(chatID, msgID, "Сейчас запись недоступна: нет активных услуг.", mainMenuKeyboard())
			return nil
		}
		return err
	}
	b.edit(chatID, msgID, "Выберите услугу:", servicesKeyboard(res.Services))
	return nil
}

// apply pushes an action through the state machine and renders the
// resulting step.
func (b *Bot) apply(ctx context.Context, chatID int64, msgID int, action booking.Action) error {
	res, err := b.flow.Apply(ctx, chatID, action)
	if err != nil {
		return b.renderError(ctx, chatID, msgID, res, err)
	}
	return b.render(ctx, chatID, msgID, res)
}

// applyNav repaints the calendar for another month without changing the
// session.
func (b *Bot) applyNav(ctx context.Context, chatID int64, msgID int, year int, month time.Month) error {
	res, err := b.flow.Apply(ctx, chatID, booking.Navigate{Year: year, Month: month})
	if err != nil {
		return b.renderError(ctx, chatID, msgID, res, err)
	}
	b.edit(chatID, msgID, b.datePrompt(res),
		calendarKeyboard(year, month, res.Dates))
	return nil
}

func (b *Bot) render(ctx context.Context, chatID int64, msgID int, res booking.Result) error {
	switch res.State {
	case booking.StateChoosingService:
		b.edit(chatID, msgID, "Выберите услугу:", servicesKeyboard(res.Services))

	case booking.StateChoosingDate:
		text := b.datePrompt(res)
		if res.NoSlots {
			text = "На эту дату свободного времени нет. Выберите другой день:"
		}
		first := time.Now()
		if len(res.Dates) > 0 {
			first = res.Dates[0]
		}
		b.edit(chatID, msgID, text, calendarKeyboard(first.Year(), first.Month(), res.Dates))

	case booking.StateChoosingTime:
		b.edit(chatID, msgID,
			fmt.Sprintf("%s, %s\nВыберите время:", res.Session.ServiceName, formatDate(res.Session.Date)),
			timeSlotsKeyboard(res.Times))

	case booking.StateConfirming:
		s := res.Session
		text := fmt.Sprintf("Проверьте запись:\n\n💅 %s\n📅 %s\n🕐 %s\n⏱ %d мин",
			s.ServiceName, formatDate(s.Date), s.Clock, s.DurationMin)
		b.edit(chatID, msgID, text, confirmationKeyboard())

	case booking.StateCommitted:
		return b.renderCommitted(ctx, chatID, msgID, res)

	case booking.StateCancelled:
		b.edit(chatID, msgID, "Запись отменена.", mainMenuKeyboard())
	}
	return nil
}

func (b *Bot) renderCommitted(ctx context.Context, chatID int64, msgID int, res booking.Result) error {
	appt := res.Appointment
	loc := b.location
	link := google.CalendarLink(appt.ServiceName, appt.StartTime, appt.EndTime, "Запись: "+appt.ServiceName, loc)

	localStart := appt.StartTime
	if tz, err := time.LoadLocation(res.Timezone); err == nil {
		localStart = localStart.In(tz)
	}

	text := fmt.Sprintf("✅ Вы записаны!\n\n💅 %s\n📅 %s в %s\n\n<a href=%q>Добавить в Google Календарь</a>\n\nЗа 24 часа и за 2 часа до визита придёт напоминание.",
		appt.ServiceName, formatDate(localStart), localStart.Format("15:04"), link)

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, mainMenuKeyboard())
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error().Err(err).Msg("send confirmation failed")
	}

	b.notifyAdmin(fmt.Sprintf("🆕 Новая запись\n\n%s\n%s в %s",
		appt.ServiceName, formatDate(localStart), localStart.Format("15:04")))

	if b.calendar != nil {
		eventID, err := b.calendar.CreateEvent(ctx, appt.ServiceName, appt.StartTime, appt.EndTime,
			fmt.Sprintf("Запись #%s", appt.Reference))
		if err != nil {
			b.logger.Error().Err(err).Int64("appointment_id", appt.ID).Msg("calendar sync failed")
		} else if err := b.db.SetGoogleEventID(ctx, appt.ID, eventID); err != nil {
			b.logger.Error().Err(err).Int64("appointment_id", appt.ID).Msg("store event id failed")
		}
	}
	return nil
}

// renderError turns flow errors into user-facing prompts. Unknown errors
// propagate to the fault boundary.
func (b *Bot) renderError(ctx context.Context, chatID int64, msgID int, res booking.Result, err error) error {
	switch {
	case errors.Is(err, booking.ErrInvalidTransition):
		// Stale keyboard or expired session.
		if res.Session == nil {
			b.edit(chatID, msgID, msgExpired, mainMenuKeyboard())
			return nil
		}
		return b.render(ctx, chatID, msgID, res)

	case errors.Is(err, booking.ErrSlotUnavailable):
		if len(res.Times) > 0 {
			b.edit(chatID, msgID, "Это время уже занято. Выберите другое:", timeSlotsKeyboard(res.Times))
			return nil
		}
		b.edit(chatID, msgID, "Эта дата больше недоступна. Начните заново: /start", mainMenuKeyboard())
		return nil

	case errors.Is(err, booking.ErrNotFound):
		b.edit(chatID, msgID, "Услуга больше недоступна. Начните заново:", mainMenuKeyboard())
		return nil

	case errors.Is(err, booking.ErrValidation):
		b.edit(chatID, msgID, msgError, mainMenuKeyboard())
		return nil
	}
	return err
}

func (b *Bot) showAppointments(ctx context.Context, chatID int64, msgID int, forCancel bool) error {
	appts, err := b.flow.UpcomingAppointments(ctx, chatID)
	if err != nil {
		return err
	}
	if len(appts) == 0 {
		b.edit(chatID, msgID, "У вас нет предстоящих записей.", mainMenuKeyboard())
		return nil
	}

	loc := time.UTC
	if settings, err := b.db.GetSettings(ctx); err == nil {
		if tz, terr := time.LoadLocation(settings.Timezone); terr == nil {
			loc = tz
		}
	}

	if forCancel {
		b.edit(chatID, msgID, "Какую запись отменить?", appointmentsKeyboard(appts, loc))
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Ваши записи:\n")
	for _, a := range appts {
		local := a.StartTime.In(loc)
		fmt.Fprintf(&sb, "\n💅 %s\n📅 %s в %s\n", a.ServiceName, formatDate(local), local.Format("15:04"))
	}
	b.edit(chatID, msgID, sb.String(), mainMenuKeyboard())
	return nil
}

func (b *Bot) askCancelConfirmation(ctx context.Context, chatID int64, msgID int, appointmentID int64) error {
	appt, err := b.db.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt == nil {
		b.edit(chatID, msgID, "Запись не найдена.", mainMenuKeyboard())
		return nil
	}
	b.edit(chatID, msgID,
		fmt.Sprintf("Отменить запись «%s»?", appt.ServiceName),
		cancelConfirmKeyboard(appointmentID))
	return nil
}

func (b *Bot) cancelAppointment(ctx context.Context, chatID int64, msgID int, appointmentID int64) error {
	appt, err := b.flow.CancelAppointment(ctx, chatID, appointmentID)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			b.edit(chatID, msgID, "Эту запись отменить нельзя.", mainMenuKeyboard())
			return nil
		}
		return err
	}

	b.edit(chatID, msgID, "Запись отменена.", mainMenuKeyboard())
	b.notifyAdmin(fmt.Sprintf("❌ Отмена записи\n\n%s\n%s",
		appt.ServiceName, appt.StartTime.Format("02.01.2006 15:04")))

	if b.calendar != nil && appt.GoogleEventID != "" {
		if err := b.calendar.DeleteEvent(ctx, appt.GoogleEventID); err != nil {
			b.logger.Error().Err(err).Int64("appointment_id", appt.ID).Msg("calendar event delete failed")
		}
	}
	return nil
}

// SendReminder implements reminder.Notifier. Instants arrive already
// localized by the sweep.
func (b *Bot) SendReminder(_ context.Context, chatID int64, appt model.Appointment, timeLeft string) error {
	text := fmt.Sprintf("🔔 Напоминание: через %s у вас запись.\n\n💅 %s\n📅 %s в %s",
		timeLeft, appt.ServiceName, formatDate(appt.StartTime), slots.FormatClock(appt.StartTime))
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) notifyAdmin(text string) {
	if b.adminChatID == 0 {
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(b.adminChatID, text)); err != nil {
		b.logger.Error().Err(err).Msg("admin notification failed")
	}
}

func (b *Bot) sendMainMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (b *Bot) edit(chatID int64, msgID int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, kb)
	if _, err := b.api.Send(edit); err != nil {
		// The message may be too old to edit; fall back to a fresh one.
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = kb
		if _, serr := b.api.Send(msg); serr != nil {
			b.logger.Error().Err(serr).Int64("chat_id", chatID).Msg("send failed")
		}
	}
}

func (b *Bot) datePrompt(res booking.Result) string {
	if len(res.Dates) == 0 {
		return "Свободных дат в ближайшее время нет. Загляните позже."
	}
	return "Выберите дату:"
}

var weekdayShort = [...]string{"пн", "вт", "ср", "чт", "пт", "сб", "вс"}

func formatDate(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Format("02.01.2006"), weekdayShort[slots.MondayIndex(t.Weekday())])
}

func fullName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
