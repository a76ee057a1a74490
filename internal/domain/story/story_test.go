package story

import (
	"errors"
	"reflect"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
	}{
		{name: "empty", records: []Record{}},
		{name: "single", records: []Record{
			{ID: 1, Title: "Tale cat, moon", Content: "Once upon a time...", Date: "01/02/2025 20:15", ImagePrompt: "a cat on the moon"},
		}},
		{name: "ordered with unicode and empty prompt", records: []Record{
			{ID: 3, Title: "Masal ağaç", Content: "Bir varmış,\n\nbir yokmuş.", Date: "03/02/2025 21:00"},
			{ID: 1, Title: "\"quoted\"", Content: "line\nbreak", Date: "01/02/2025 20:15", ImagePrompt: "x"},
			{ID: 2, Title: "third", Content: "", Date: "02/02/2025 19:30", ImagePrompt: ""},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := Encode(tt.records)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := Decode(blob)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.records) {
				t.Errorf("round trip = %+v, want %+v", got, tt.records)
			}
		})
	}
}

func TestEncodeUsesStoredFieldNames(t *testing.T) {
	blob, err := Encode([]Record{{ID: 7, Title: "t", Content: "c", Date: "d", ImagePrompt: "p"}})
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"id":7,"title":"t","content":"c","date":"d","imagePrompt":"p"}]`
	if blob != want {
		t.Errorf("Encode() = %s, want %s", blob, want)
	}
}

func TestEncodeNil(t *testing.T) {
	blob, err := Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if blob != "[]" {
		t.Errorf("Encode(nil) = %q, want []", blob)
	}
}

func TestDecodeEmptyAndCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		corrupt bool
	}{
		{name: "empty string", blob: ""},
		{name: "whitespace", blob: "  \n"},
		{name: "empty array", blob: "[]"},
		{name: "null", blob: "null"},
		{name: "truncated", blob: `[{"id":1,"title":"a"`, corrupt: true},
		{name: "object instead of array", blob: `{"id":1}`, corrupt: true},
		{name: "wrong field type", blob: `[{"id":"one"}]`, corrupt: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.blob)
			if got == nil || len(got) != 0 {
				t.Errorf("Decode() = %v, want empty non-nil slice", got)
			}
			if tt.corrupt != errors.Is(err, ErrCorrupt) {
				t.Errorf("Decode() error = %v, corrupt = %v", err, tt.corrupt)
			}
			if !tt.corrupt && err != nil {
				t.Errorf("Decode() unexpected error = %v", err)
			}
		})
	}
}

func TestReversed(t *testing.T) {
	in := []Record{{ID: 1}, {ID: 2}, {ID: 3}}
	got := Reversed(in)
	want := []Record{{ID: 3}, {ID: 2}, {ID: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Reversed() = %v, want %v", got, want)
	}
	if in[0].ID != 1 {
		t.Error("Reversed() mutated its input")
	}
}

func TestRecordHelpers(t *testing.T) {
	r := Record{Title: "Tale owl", Content: "Hoot.", Date: "05/03/2025 07:09"}
	ts, err := r.CreatedAt()
	if err != nil {
		t.Fatalf("CreatedAt() error = %v", err)
	}
	if ts.Day() != 5 || ts.Month() != 3 || ts.Hour() != 7 || ts.Minute() != 9 {
		t.Errorf("CreatedAt() = %v", ts)
	}
	if got := DefaultTitle("05/03/2025 07:09"); got != "Tale 05/03/2025 07:09" {
		t.Errorf("DefaultTitle() = %q", got)
	}
}
