package csvio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lewtec/apontador/internal/domain"
)

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, []domain.Annotation{
		{RaterID: "nam", ItemID: "A", X: 20, Y: 10},
		{RaterID: "nam", ItemID: "B, left", X: 3, Y: 4},
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := "name,click_x,click_y\nA,20,10\n\"B, left\",3,4\n"
	if buf.String() != want {
		t.Errorf("Encode() = %q, want %q", buf.String(), want)
	}
}

func TestDecode(t *testing.T) {
	t.Run("reads canonical order", func(t *testing.T) {
		records, malformed, err := Decode(strings.NewReader("name,click_x,click_y\nA,20,10\nB,1,2\n"))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if len(malformed) != 0 {
			t.Fatalf("unexpected malformed rows: %v", malformed)
		}
		want := []domain.Record{{ItemID: "A", X: 20, Y: 10}, {ItemID: "B", X: 1, Y: 2}}
		if len(records) != len(want) {
			t.Fatalf("Got %d records, want %d", len(records), len(want))
		}
		for i := range want {
			if records[i] != want[i] {
				t.Errorf("records[%d] = %+v, want %+v", i, records[i], want[i])
			}
		}
	})

	t.Run("reads legacy order by column name", func(t *testing.T) {
		records, _, err := Decode(strings.NewReader("name,click_y,click_x\nA,10,20\n"))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if len(records) != 1 || records[0] != (domain.Record{ItemID: "A", X: 20, Y: 10}) {
			t.Errorf("Decode() = %+v, want A at (20, 10)", records)
		}
	})

	t.Run("tolerates BOM, case, extra columns and float cells", func(t *testing.T) {
		input := "\ufeffName, CLICK_Y ,click_x,comment\nA,10.0,20,ok\n"
		records, malformed, err := Decode(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if len(malformed) != 0 || len(records) != 1 {
			t.Fatalf("Decode() = %+v, %v", records, malformed)
		}
		if records[0] != (domain.Record{ItemID: "A", X: 20, Y: 10}) {
			t.Errorf("records[0] = %+v", records[0])
		}
	})

	t.Run("skips row missing click_x", func(t *testing.T) {
		input := "name,click_x,click_y\nA,20,10\nB,,5\nC,7,8\n"
		records, malformed, err := Decode(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if len(malformed) != 1 {
			t.Fatalf("Got %d malformed rows, want 1", len(malformed))
		}
		if malformed[0].Line != 3 || malformed[0].Column != ColumnX {
			t.Errorf("malformed[0] = %+v, want line 3 column click_x", malformed[0])
		}
		if len(records) != 2 || records[0].ItemID != "A" || records[1].ItemID != "C" {
			t.Errorf("records = %+v, want A and C", records)
		}
	})

	t.Run("skips short, negative and non-numeric rows", func(t *testing.T) {
		input := "name,click_x,click_y\nA,1\nB,-1,2\nC,x,2\nD,1.5,2\n,1,2\nE,3,4\n"
		records, malformed, err := Decode(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if len(malformed) != 5 {
			t.Errorf("Got %d malformed rows, want 5: %v", len(malformed), malformed)
		}
		if len(records) != 1 || records[0].ItemID != "E" {
			t.Errorf("records = %+v, want only E", records)
		}
	})

	t.Run("fails on missing column", func(t *testing.T) {
		_, _, err := Decode(strings.NewReader("name,click_x\nA,1\n"))
		if err == nil {
			t.Fatal("Expected error for missing click_y column")
		}
		if !strings.Contains(err.Error(), "click_y") {
			t.Errorf("error %q should name the missing column", err)
		}
	})

	t.Run("fails on empty input", func(t *testing.T) {
		if _, _, err := Decode(strings.NewReader("")); err == nil {
			t.Fatal("Expected error for empty input")
		}
	})

	t.Run("header only yields nothing", func(t *testing.T) {
		records, malformed, err := Decode(strings.NewReader("name,click_x,click_y\n"))
		if err != nil || len(records) != 0 || len(malformed) != 0 {
			t.Errorf("Decode() = %v, %v, %v", records, malformed, err)
		}
	})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	anns := []domain.Annotation{
		{ItemID: "oct_001", X: 512, Y: 248},
		{ItemID: "oct_002", X: 0, Y: 0},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, anns); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	records, malformed, err := Decode(&buf)
	if err != nil || len(malformed) != 0 {
		t.Fatalf("Decode() error = %v, malformed = %v", err, malformed)
	}
	for i, ann := range anns {
		if records[i] != (domain.Record{ItemID: ann.ItemID, X: ann.X, Y: ann.Y}) {
			t.Errorf("records[%d] = %+v, want %+v", i, records[i], ann)
		}
	}
}
