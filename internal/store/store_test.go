package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/openkiosk/fleetd/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Player{},
		&models.Asset{},
		&models.Slot{},
		&models.SlotItem{},
		&models.PlaybackLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(openTestDB(t), nil, nil, zerolog.Nop())
}

func seedPlayer(t *testing.T, svc *Service) *models.Player {
	t.Helper()
	player := &models.Player{Name: "lobby-screen", Timezone: "UTC"}
	if err := svc.RegisterPlayer(context.Background(), player); err != nil {
		t.Fatalf("register player: %v", err)
	}
	return player
}

func seedAsset(t *testing.T, svc *Service, playerID string, class models.AssetClass) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		PlayerID:        playerID,
		Name:            "promo",
		Class:           class,
		URI:             "file:///data/promo",
		DurationSeconds: 30,
	}
	if err := svc.CreateAsset(context.Background(), asset); err != nil {
		t.Fatalf("create asset: %v", err)
	}
	return asset
}

func TestCreateSlotValidation(t *testing.T) {
	svc := newTestService(t)
	player := seedPlayer(t, svc)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		slot    models.Slot
		wantErr error
	}{
		{
			name: "valid time slot",
			slot: models.Slot{
				PlayerID: player.ID, Name: "Office Hours", Kind: models.SlotTime,
				WindowFrom: 540, WindowTo: 1080, DaysOfWeek: []int{1, 2, 3, 4, 5},
			},
		},
		{
			name: "window from out of bounds",
			slot: models.Slot{
				PlayerID: player.ID, Kind: models.SlotTime,
				WindowFrom: 1440, WindowTo: 100, DaysOfWeek: []int{1},
			},
			wantErr: ErrInvalidWindow,
		},
		{
			name: "negative window to",
			slot: models.Slot{
				PlayerID: player.ID, Kind: models.SlotTime,
				WindowFrom: 0, WindowTo: -1, DaysOfWeek: []int{1},
			},
			wantErr: ErrInvalidWindow,
		},
		{
			name: "weekday code out of range",
			slot: models.Slot{
				PlayerID: player.ID, Kind: models.SlotTime,
				WindowFrom: 0, WindowTo: 60, DaysOfWeek: []int{0},
			},
			wantErr: ErrInvalidWeekday,
		},
		{
			name: "unknown kind",
			slot: models.Slot{
				PlayerID: player.ID, Kind: "banner",
			},
			wantErr: ErrInvalidKind,
		},
		{
			name: "event without anchor",
			slot: models.Slot{
				PlayerID: player.ID, Kind: models.SlotEvent, WindowFrom: 600,
			},
			wantErr: ErrEventNeedsAnchor,
		},
		{
			name: "event with date anchor",
			slot: models.Slot{
				PlayerID: player.ID, Name: "Launch", Kind: models.SlotEvent,
				WindowFrom: 600, RangeStart: &start,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := tt.slot
			err := svc.CreateSlot(context.Background(), &slot)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateSlot() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSlotRejectsSecondDefault(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	player := seedPlayer(t, svc)

	first := &models.Slot{PlayerID: player.ID, Name: "Loop", Kind: models.SlotDefault}
	if err := svc.CreateSlot(ctx, first); err != nil {
		t.Fatalf("create first default: %v", err)
	}

	second := &models.Slot{PlayerID: player.ID, Name: "Loop B", Kind: models.SlotDefault}
	if err := svc.CreateSlot(ctx, second); !errors.Is(err, ErrDuplicateDefault) {
		t.Errorf("CreateSlot() error = %v, want ErrDuplicateDefault", err)
	}

	// A different player is unaffected.
	other := &models.Player{Name: "hallway-screen", Timezone: "UTC"}
	if err := svc.RegisterPlayer(ctx, other); err != nil {
		t.Fatalf("register player: %v", err)
	}
	theirs := &models.Slot{PlayerID: other.ID, Name: "Loop", Kind: models.SlotDefault}
	if err := svc.CreateSlot(ctx, theirs); err != nil {
		t.Errorf("CreateSlot() for other player = %v, want nil", err)
	}
}

func TestUpdateSlotRejectsSecondDefault(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	player := seedPlayer(t, svc)

	def := &models.Slot{PlayerID: player.ID, Name: "Loop", Kind: models.SlotDefault}
	if err := svc.CreateSlot(ctx, def); err != nil {
		t.Fatalf("create default: %v", err)
	}
	slot := &models.Slot{
		PlayerID: player.ID, Name: "Office Hours", Kind: models.SlotTime,
		WindowFrom: 540, WindowTo: 1080, DaysOfWeek: []int{1, 2, 3, 4, 5},
	}
	if err := svc.CreateSlot(ctx, slot); err != nil {
		t.Fatalf("create time slot: %v", err)
	}

	slot.Kind = models.SlotDefault
	slot.DaysOfWeek = nil
	if err := svc.UpdateSlot(ctx, slot); !errors.Is(err, ErrDuplicateDefault) {
		t.Errorf("UpdateSlot() error = %v, want ErrDuplicateDefault", err)
	}

	// Updating the existing default in place stays legal.
	def.Name = "Idle Loop"
	if err := svc.UpdateSlot(ctx, def); err != nil {
		t.Errorf("UpdateSlot() on the default itself = %v, want nil", err)
	}
}

func TestItemOverrideMustBePositive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	player := seedPlayer(t, svc)
	asset := seedAsset(t, svc, player.ID, models.AssetImage)

	slot := &models.Slot{PlayerID: player.ID, Kind: models.SlotDefault}
	if err := svc.CreateSlot(ctx, slot); err != nil {
		t.Fatalf("create slot: %v", err)
	}

	negative := -5
	zero := 0
	if err := svc.AddItem(ctx, slot.ID, &models.SlotItem{AssetID: asset.ID, DurationOverride: &negative}); !errors.Is(err, ErrInvalidOverride) {
		t.Errorf("AddItem(negative) error = %v, want ErrInvalidOverride", err)
	}
	if err := svc.AddItem(ctx, slot.ID, &models.SlotItem{AssetID: asset.ID, DurationOverride: &zero}); !errors.Is(err, ErrInvalidOverride) {
		t.Errorf("AddItem(zero) error = %v, want ErrInvalidOverride", err)
	}

	item := &models.SlotItem{AssetID: asset.ID}
	if err := svc.AddItem(ctx, slot.ID, item); err != nil {
		t.Fatalf("add item: %v", err)
	}
	item.DurationOverride = &negative
	if err := svc.UpdateItem(ctx, item); !errors.Is(err, ErrInvalidOverride) {
		t.Errorf("UpdateItem(negative) error = %v, want ErrInvalidOverride", err)
	}

	ten := 10
	item.DurationOverride = &ten
	if err := svc.UpdateItem(ctx, item); err != nil {
		t.Errorf("UpdateItem(positive) = %v, want nil", err)
	}
}

func TestCreateSlotRejectsInvertedRange(t *testing.T) {
	svc := newTestService(t)
	player := seedPlayer(t, svc)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	slot := models.Slot{
		PlayerID: player.ID, Kind: models.SlotTime,
		WindowFrom: 0, WindowTo: 60, DaysOfWeek: []int{6},
		RangeStart: &start, RangeEnd: &end,
	}

	if err := svc.CreateSlot(context.Background(), &slot); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("CreateSlot() error = %v, want ErrInvalidRange", err)
	}
}

func TestListSlotsPreloadsItemsOrdered(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	player := seedPlayer(t, svc)
	asset := seedAsset(t, svc, player.ID, models.AssetImage)

	slot := &models.Slot{
		PlayerID: player.ID, Name: "Loop", Kind: models.SlotDefault,
	}
	if err := svc.CreateSlot(ctx, slot); err != nil {
		t.Fatalf("create slot: %v", err)
	}

	second := &models.SlotItem{AssetID: asset.ID, SortOrder: 2}
	first := &models.SlotItem{AssetID: asset.ID, SortOrder: 1}
	if err := svc.AddItem(ctx, slot.ID, second); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := svc.AddItem(ctx, slot.ID, first); err != nil {
		t.Fatalf("add item: %v", err)
	}

	slots, err := svc.ListSlots(ctx, player.ID)
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
	items := slots[0].Items
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].ID != first.ID || items[1].ID != second.ID {
		t.Errorf("items not ordered by sort_order: got %s,%s", items[0].ID, items[1].ID)
	}
	if items[0].Asset == nil || items[0].Asset.ID != asset.ID {
		t.Error("expected preloaded asset on item")
	}
}

func TestAddItemRejectsUnknownAsset(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	player := seedPlayer(t, svc)

	slot := &models.Slot{PlayerID: player.ID, Kind: models.SlotDefault}
	if err := svc.CreateSlot(ctx, slot); err != nil {
		t.Fatalf("create slot: %v", err)
	}

	item := &models.SlotItem{AssetID: "missing"}
	if err := svc.AddItem(ctx, slot.ID, item); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("AddItem() error = %v, want ErrAssetNotFound", err)
	}
}

func TestReorderItems(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	player := seedPlayer(t, svc)
	asset := seedAsset(t, svc, player.ID, models.AssetImage)

	slot := &models.Slot{PlayerID: player.ID, Kind: models.SlotDefault}
	if err := svc.CreateSlot(ctx, slot); err != nil {
		t.Fatalf("create slot: %v", err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		item := &models.SlotItem{AssetID: asset.ID}
		if err := svc.AddItem(ctx, slot.ID, item); err != nil {
			t.Fatalf("add item: %v", err)
		}
		ids = append(ids, item.ID)
	}

	reversed := []string{ids[2], ids[1], ids[0]}
	if err := svc.ReorderItems(ctx, slot.ID, reversed); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	got, err := svc.GetSlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	for i, item := range got.Items {
		if item.ID != reversed[i] {
			t.Errorf("item[%d] = %s, want %s", i, item.ID, reversed[i])
		}
	}

	if err := svc.ReorderItems(ctx, slot.ID, []string{"stranger"}); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("ReorderItems() error = %v, want ErrItemNotFound", err)
	}
}

func TestDeleteAssetCascadesToItems(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	player := seedPlayer(t, svc)
	asset := seedAsset(t, svc, player.ID, models.AssetVideo)

	slot := &models.Slot{PlayerID: player.ID, Kind: models.SlotDefault}
	if err := svc.CreateSlot(ctx, slot); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	if err := svc.AddItem(ctx, slot.ID, &models.SlotItem{AssetID: asset.ID}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := svc.DeleteAsset(ctx, asset.ID); err != nil {
		t.Fatalf("delete asset: %v", err)
	}

	got, err := svc.GetSlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if len(got.Items) != 0 {
		t.Errorf("len(items) = %d after asset delete, want 0", len(got.Items))
	}

	if _, err := svc.GetAsset(ctx, asset.ID); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("GetAsset() error = %v, want ErrAssetNotFound", err)
	}
}

func TestDeletePlayerCascades(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	player := seedPlayer(t, svc)
	asset := seedAsset(t, svc, player.ID, models.AssetImage)

	slot := &models.Slot{PlayerID: player.ID, Kind: models.SlotDefault}
	if err := svc.CreateSlot(ctx, slot); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	if err := svc.AddItem(ctx, slot.ID, &models.SlotItem{AssetID: asset.ID}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := svc.DeletePlayer(ctx, player.ID); err != nil {
		t.Fatalf("delete player: %v", err)
	}

	if _, err := svc.GetPlayer(ctx, player.ID); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("GetPlayer() error = %v, want ErrPlayerNotFound", err)
	}
	slots, err := svc.ListSlots(ctx, player.ID)
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("len(slots) = %d after player delete, want 0", len(slots))
	}
}

func TestPlaybackLogRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	player := seedPlayer(t, svc)

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := svc.RecordPlayback(ctx, player.ID, "slot-1", "Office Hours", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("record playback: %v", err)
		}
	}

	entries, err := svc.ListPlayback(ctx, player.ID, 2)
	if err != nil {
		t.Fatalf("list playback: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if !entries[0].StartedAt.After(entries[1].StartedAt) {
		t.Error("expected newest-first ordering")
	}

	pruned, err := svc.PrunePlayback(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("prune playback: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d, want 2", pruned)
	}
}
