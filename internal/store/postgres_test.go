package store

import (
	"strings"
	"testing"
	"time"

	"github.com/auctionhaus/dutch-engine/internal/model"
)

func TestParseU64(t *testing.T) {
	v, err := parseU64("18446744073709551615")
	if err != nil {
		t.Fatalf("max uint64 should parse: %v", err)
	}
	if v != ^uint64(0) {
		t.Errorf("expected max uint64, got %d", v)
	}

	if got, _ := parseU64(u64(12345)); got != 12345 {
		t.Errorf("round trip failed, got %d", got)
	}

	for _, bad := range []string{"", "abc", "-1", "1.5"} {
		if _, err := parseU64(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

// fakeRow feeds canned column values into scanAuction.
type fakeRow struct {
	reserve string
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	*dest[0].(*string) = "a1"
	*dest[1].(*string) = "seller"
	*dest[2].(*string) = r.reserve
	*dest[3].(*string) = "10"
	*dest[4].(*string) = "10"
	*dest[5].(*string) = "0"
	*dest[6].(*string) = "200"
	*dest[7].(*string) = model.RailNative
	*dest[8].(**string) = nil
	*dest[9].(*string) = model.StateOpen
	*dest[10].(*string) = ""
	*dest[11].(*string) = "0"
	*dest[12].(*time.Time) = time.Now().UTC()
	*dest[13].(**time.Time) = nil
	return nil
}

func TestScanAuction_MalformedNumericSurfaces(t *testing.T) {
	a, err := scanAuction(&fakeRow{reserve: "100"})
	if err != nil {
		t.Fatalf("well-formed row should scan: %v", err)
	}
	if a.Reserve != 100 {
		t.Errorf("expected reserve 100, got %d", a.Reserve)
	}

	_, err = scanAuction(&fakeRow{reserve: "not-a-number"})
	if err == nil {
		t.Fatal("expected error for malformed numeric, got nil")
	}
	if !strings.Contains(err.Error(), "malformed numeric") {
		t.Errorf("error should name the corrupt value, got %v", err)
	}
}
