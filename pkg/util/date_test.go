package util

import (
	"testing"
	"time"
)

func TestParseDateLayout(t *testing.T) {
	got, ok := ParseDate("2018-01-01")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseDateRejectsOtherFormats(t *testing.T) {
	for _, s := range []string{"", "2024-10-10T10:10:10Z", "1728555010", "01/01/2018", "2018-1-1", "2018-02-30"} {
		if _, ok := ParseDate(s); ok {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

func TestFormatDateUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	in := time.Date(2024, 3, 1, 2, 0, 0, 0, loc)
	if got := FormatDate(in); got != "2024-02-29" {
		t.Fatalf("unexpected %s", got)
	}
}
