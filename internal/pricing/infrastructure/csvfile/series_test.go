package csvfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"windfarm-impact/internal/hourkey"
	pricing "windfarm-impact/internal/pricing/domain"
)

func TestWriteThenRead(t *testing.T) {
	records := []pricing.Record{
		{Hour: hourkey.Key{Month: time.July, Day: 4, Hour: 17}, LocationID: 4001, LocationName: ".Z.MAINE", Price: -3.25},
	}
	path := filepath.Join(t.TempDir(), "lmp.csv")
	if err := Write(path, records); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0] != records[0] {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestReadInvalidPrice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lmp.csv")
	content := "Date,Location ID,Location Name,Locational Marginal Price\n01-01 00:00,4001,.Z.MAINE,n/a\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(path); !errors.Is(err, pricing.ErrInvalidPrice) {
		t.Fatalf("expected invalid price, got %v", err)
	}
}
