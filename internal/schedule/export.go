/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"
	"gorm.io/gorm"

	"github.com/openkiosk/fleetd/internal/models"
)

// ExportICalResult holds an exported calendar document.
type ExportICalResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportService renders a player's schedule as iCalendar so operators
// can overlay it on their own calendars.
type ExportService struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewExportService creates an export service.
func NewExportService(db *gorm.DB, logger zerolog.Logger) *ExportService {
	return &ExportService{
		db:     db,
		logger: logger.With().Str("component", "schedule_export").Logger(),
	}
}

var isoToRRuleWeekday = map[int]rrule.Weekday{
	1: rrule.MO, 2: rrule.TU, 3: rrule.WE, 4: rrule.TH,
	5: rrule.FR, 6: rrule.SA, 7: rrule.SU,
}

// ExportToICal renders every occurrence of a player's time and event
// slots between start and end. Default slots are omitted, a band that
// covers every minute of every day says nothing on a calendar.
func (s *ExportService) ExportToICal(ctx context.Context, playerID string, start, end time.Time) (*ExportICalResult, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).First(&player, "id = ?", playerID).Error; err != nil {
		return nil, fmt.Errorf("player not found: %w", err)
	}

	var slots []models.Slot
	if err := s.db.WithContext(ctx).
		Where("player_id = ? AND kind <> ?", playerID, models.SlotDefault).
		Order("sort_order, id").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("fetch slots: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("BEGIN:VCALENDAR\r\n")
	buf.WriteString("VERSION:2.0\r\n")
	buf.WriteString("PRODID:-//OpenKiosk//Fleet Schedule Export//EN\r\n")
	buf.WriteString(fmt.Sprintf("X-WR-CALNAME:%s Schedule\r\n", escapeICalText(player.Name)))
	buf.WriteString("CALSCALE:GREGORIAN\r\n")
	buf.WriteString("METHOD:PUBLISH\r\n")

	for i := range slots {
		slot := &slots[i]
		occurrences, err := slotOccurrences(slot, start, end)
		if err != nil {
			s.logger.Warn().Err(err).Str("slot_id", slot.ID).Msg("skipping slot in export")
			continue
		}

		duration := windowDuration(slot)
		for _, startsAt := range occurrences {
			buf.WriteString("BEGIN:VEVENT\r\n")
			buf.WriteString(fmt.Sprintf("UID:%s-%s@fleetd\r\n", slot.ID, startsAt.Format("20060102")))
			buf.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICalTime(time.Now())))
			buf.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICalTime(startsAt)))
			buf.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICalTime(startsAt.Add(duration))))
			buf.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICalText(slot.Name)))
			buf.WriteString(fmt.Sprintf("CATEGORIES:%s\r\n", strings.ToUpper(string(slot.Kind))))
			buf.WriteString("END:VEVENT\r\n")
		}
	}

	buf.WriteString("END:VCALENDAR\r\n")

	filename := fmt.Sprintf("%s-schedule-%s-to-%s.ics",
		slugify(player.Name),
		start.Format("2006-01-02"),
		end.Format("2006-01-02"))

	return &ExportICalResult{
		Data:        buf.Bytes(),
		Filename:    filename,
		ContentType: "text/calendar; charset=utf-8",
	}, nil
}

// slotOccurrences expands a slot's recurrence into concrete start
// instants within [start, end].
func slotOccurrences(slot *models.Slot, start, end time.Time) ([]time.Time, error) {
	if len(slot.DaysOfWeek) == 0 {
		// One-shot event anchored to its start date.
		if slot.RangeStart == nil {
			return nil, nil
		}
		at := atMinute(*slot.RangeStart, slot.WindowFrom)
		if at.Before(start) || at.After(end) {
			return nil, nil
		}
		return []time.Time{at}, nil
	}

	byDays := make([]rrule.Weekday, 0, len(slot.DaysOfWeek))
	for _, wd := range slot.DaysOfWeek {
		day, ok := isoToRRuleWeekday[wd]
		if !ok {
			return nil, fmt.Errorf("weekday code %d out of range", wd)
		}
		byDays = append(byDays, day)
	}

	anchor := start
	if slot.RangeStart != nil && slot.RangeStart.After(start) {
		anchor = *slot.RangeStart
	}

	rr, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: byDays,
		Dtstart:   atMinute(anchor, slot.WindowFrom),
	})
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}

	occurrences := rr.Between(start, end, true)

	if slot.RangeEnd != nil {
		limit := atMinute(*slot.RangeEnd, models.MinutesPerDay-1)
		filtered := occurrences[:0]
		for _, occ := range occurrences {
			if !occ.After(limit) {
				filtered = append(filtered, occ)
			}
		}
		occurrences = filtered
	}

	return occurrences, nil
}

// windowDuration is the calendar length of one occurrence. Overnight
// windows wrap past midnight, so length is computed modulo a day.
func windowDuration(slot *models.Slot) time.Duration {
	if slot.Kind == models.SlotEvent && (slot.WindowTo == 0 || slot.WindowTo == slot.WindowFrom) {
		// Open-ended event, shown until end of day.
		return time.Duration(models.MinutesPerDay-slot.WindowFrom) * time.Minute
	}
	length := (slot.WindowTo - slot.WindowFrom + models.MinutesPerDay) % models.MinutesPerDay
	if length == 0 {
		length = models.MinutesPerDay
	}
	return time.Duration(length) * time.Minute
}

func atMinute(day time.Time, minute int) time.Time {
	d := CivilDate(day)
	return d.Add(time.Duration(minute) * time.Minute)
}

func formatICalTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func slugify(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
