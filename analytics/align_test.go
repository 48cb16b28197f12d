package analytics

import (
	"errors"
	"testing"
	"time"

	"txoflow/models"
)

func snapDate(day int) time.Time {
	return time.Date(2025, time.January, day, 0, 0, 0, 0, time.UTC)
}

func TestAlignSnapshotsOIChanges(t *testing.T) {
	latest := models.DailySnapshot{
		AsOfDate: snapDate(3),
		Rows: []models.OptionQuoteRow{
			{ContractCode: "202501", Strike: 18000, Type: models.Call, OpenInterest: 100, Price: 150},
			{ContractCode: "202501", Strike: 18200, Type: models.Call, OpenInterest: 40, Price: 80},
		},
	}
	prior := models.DailySnapshot{
		AsOfDate: snapDate(2),
		Rows: []models.OptionQuoteRow{
			{ContractCode: "202501", Strike: 18000, Type: models.Call, OpenInterest: 80, Price: 140},
			// Present only on the older day; must not survive the join.
			{ContractCode: "202501", Strike: 17800, Type: models.Put, OpenInterest: 999, Price: 60},
		},
	}

	table, err := AlignSnapshots([]models.DailySnapshot{latest, prior}, 50)
	if err != nil {
		t.Fatalf("AlignSnapshots: %v", err)
	}
	if table.Depth != 1 {
		t.Fatalf("depth = %d, want 1", table.Depth)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}

	if got := table.Rows[0].OIChangeD(1); got != 20 {
		t.Fatalf("matched row D1 = %v, want 20", got)
	}
	// No counterpart on the older day: the full OI counts as new.
	if got := table.Rows[1].OIChangeD(1); got != 40 {
		t.Fatalf("unmatched row D1 = %v, want 40", got)
	}

	// Notional is recomputed at the contract multiplier.
	if got := table.Rows[0].Notional; got != 100*150*50 {
		t.Fatalf("notional = %v, want %v", got, 100*150*50.0)
	}
}

func TestAlignSnapshotsMultiDayDepth(t *testing.T) {
	mk := func(day int, oi float64) models.DailySnapshot {
		return models.DailySnapshot{
			AsOfDate: snapDate(day),
			Rows: []models.OptionQuoteRow{
				{ContractCode: "202501", Strike: 18000, Type: models.Put, OpenInterest: oi, Price: 100},
			},
		}
	}
	table, err := AlignSnapshots([]models.DailySnapshot{mk(4, 300), mk(3, 250), mk(2, 100)}, 50)
	if err != nil {
		t.Fatalf("AlignSnapshots: %v", err)
	}
	if table.Depth != 2 {
		t.Fatalf("depth = %d, want 2", table.Depth)
	}
	if got := table.Rows[0].OIChangeD(1); got != 50 {
		t.Fatalf("D1 = %v, want 50", got)
	}
	if got := table.Rows[0].OIChangeD(2); got != 200 {
		t.Fatalf("D2 = %v, want 200", got)
	}
}

func TestAlignSnapshotsSingleDay(t *testing.T) {
	latest := models.DailySnapshot{
		AsOfDate: snapDate(3),
		Rows: []models.OptionQuoteRow{
			{ContractCode: "202501", Strike: 18000, Type: models.Call, OpenInterest: 10, Price: 5},
		},
	}
	table, err := AlignSnapshots([]models.DailySnapshot{latest}, 50)
	if err != nil {
		t.Fatalf("AlignSnapshots: %v", err)
	}
	if table.Depth != 0 {
		t.Fatalf("depth = %d, want 0", table.Depth)
	}
	if len(table.Rows[0].OIChanges) != 0 {
		t.Fatalf("expected no OI change columns for a single snapshot")
	}
}

func TestAlignSnapshotsEmpty(t *testing.T) {
	if _, err := AlignSnapshots(nil, 50); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}
