package schedule

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/openkiosk/fleetd/internal/models"
)

func openExportTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Player{}, &models.Slot{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestExportToICalWeeklySlot(t *testing.T) {
	db := openExportTestDB(t)
	ctx := context.Background()

	player := models.Player{ID: "player-1", Name: "Lobby Screen", Timezone: "UTC"}
	if err := db.Create(&player).Error; err != nil {
		t.Fatalf("create player: %v", err)
	}

	// Office hours, 09:00 to 18:00 Monday through Friday.
	slot := models.Slot{
		ID: "slot-office", PlayerID: player.ID, Name: "Office Hours",
		Kind: models.SlotTime, WindowFrom: 540, WindowTo: 1080,
		DaysOfWeek: []int{1, 2, 3, 4, 5},
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("create slot: %v", err)
	}
	// Default slots never appear in the calendar.
	fallback := models.Slot{
		ID: "slot-default", PlayerID: player.ID, Name: "Fallback",
		Kind: models.SlotDefault, IsDefault: true,
	}
	if err := db.Create(&fallback).Error; err != nil {
		t.Fatalf("create slot: %v", err)
	}

	svc := NewExportService(db, zerolog.Nop())

	// 2026-03-02 is a Monday; one full week has five weekday occurrences.
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 23, 59, 0, 0, time.UTC)

	result, err := svc.ExportToICal(ctx, player.ID, start, end)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	content := string(result.Data)
	if got := strings.Count(content, "BEGIN:VEVENT"); got != 5 {
		t.Errorf("VEVENT count = %d, want 5", got)
	}
	if !strings.Contains(content, "SUMMARY:Office Hours") {
		t.Error("expected slot name in summary")
	}
	if strings.Contains(content, "Fallback") {
		t.Error("default slot must not be exported")
	}
	if !strings.Contains(content, "DTSTART:20260302T090000Z") {
		t.Errorf("expected Monday 09:00 start, got:\n%s", content)
	}
	if !strings.Contains(content, "DTEND:20260302T180000Z") {
		t.Error("expected Monday 18:00 end")
	}
	if result.Filename != "lobby-screen-schedule-2026-03-02-to-2026-03-08.ics" {
		t.Errorf("filename = %q", result.Filename)
	}
}

func TestExportToICalOneShotEvent(t *testing.T) {
	db := openExportTestDB(t)
	ctx := context.Background()

	player := models.Player{ID: "player-1", Name: "Window", Timezone: "UTC"}
	if err := db.Create(&player).Error; err != nil {
		t.Fatalf("create player: %v", err)
	}

	anchor := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	slot := models.Slot{
		ID: "slot-launch", PlayerID: player.ID, Name: "Launch Day",
		Kind: models.SlotEvent, WindowFrom: 600, RangeStart: &anchor,
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("create slot: %v", err)
	}

	svc := NewExportService(db, zerolog.Nop())
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	result, err := svc.ExportToICal(ctx, player.ID, start, end)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	content := string(result.Data)
	if got := strings.Count(content, "BEGIN:VEVENT"); got != 1 {
		t.Errorf("VEVENT count = %d, want 1", got)
	}
	if !strings.Contains(content, "DTSTART:20260304T100000Z") {
		t.Error("expected event start at anchored date 10:00")
	}
	// Open-ended event runs to end of day.
	if !strings.Contains(content, "DTEND:20260305T000000Z") {
		t.Error("expected event end at midnight")
	}
}
