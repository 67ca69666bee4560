package portal

import (
	"encoding/json"
	"testing"
)

func decodePayload(t *testing.T, body string) *Payload {
	t.Helper()
	var p Payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	p.Status = 200
	return &p
}

func TestMonthValuesLookup(t *testing.T) {
	p := decodePayload(t, `{"success":true,"per_month":{"1":10,"02":"20.5","3":null,"4":"x","5":true}}`)

	cases := []struct {
		month  int
		want   float64
		exists bool
	}{
		{1, 10, true},
		{2, 20.5, true},
		{3, 0, false},
		{4, 0, true},
		{5, 0, true},
		{6, 0, false},
	}
	for _, tc := range cases {
		got, ok := p.PerMonth.Lookup(tc.month)
		if ok != tc.exists || got != tc.want {
			t.Errorf("month %d: expected (%v, %v), got (%v, %v)", tc.month, tc.want, tc.exists, got, ok)
		}
	}
}

func TestMonthValuesNil(t *testing.T) {
	var m MonthValues
	if _, ok := m.Lookup(1); ok {
		t.Fatal("expected nil map lookup to miss")
	}
}

func TestMonthCommentsText(t *testing.T) {
	p := decodePayload(t, `{"success":true,"comments_by_month":{"1":{"testo":"ok","stato":"chiuso"},"2":null}}`)
	if got := p.CommentsByMonth.Text(1); got != "ok" {
		t.Fatalf("expected ok, got %q", got)
	}
	if got := p.CommentsByMonth.Text(2); got != "" {
		t.Fatalf("expected empty text for null comment, got %q", got)
	}
	if got := p.CommentsByMonth.Text(3); got != "" {
		t.Fatalf("expected empty text for missing comment, got %q", got)
	}
}

func TestPUN(t *testing.T) {
	cases := []struct {
		body string
		want float64
		ok   bool
	}{
		{`{"success":true,"data":[{"timestamp":"2023-01","mean_pun":0.1745}]}`, 0.1745, true},
		{`{"success":true,"data":[0.2]}`, 0.2, true},
		{`{"success":true,"data":["0.31"]}`, 0.31, true},
		{`{"success":true,"data":[{"mean_pun":null}]}`, 0, false},
		{`{"success":true,"data":[{"other":1}]}`, 0, false},
		{`{"success":true,"data":[]}`, 0, false},
		{`{"success":false,"data":[0.2]}`, 0, false},
		{`{"success":true,"data":["abc"]}`, 0, false},
	}
	for _, tc := range cases {
		got, ok := decodePayload(t, tc.body).PUN()
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s: expected (%v, %v), got (%v, %v)", tc.body, tc.want, tc.ok, got, ok)
		}
	}
}

func TestFailedPayload(t *testing.T) {
	p := Failed()
	if p.Success || p.OK() {
		t.Fatal("fallback payload must not be successful")
	}
	if _, ok := p.PerMonth.Lookup(1); ok {
		t.Fatal("fallback payload has no months")
	}
}

func TestPaths(t *testing.T) {
	if got := PUNPath("ponte_giurino", 2023, 7); got != "/corrispettivi/api/dati-PUN/ponte_giurino/2023/7/" {
		t.Fatalf("unexpected PUN path %q", got)
	}
	if got := AnnualPath(SeriesComments, "ponte_giurino", 2023); got != "/corrispettivi/api/annuale/commenti/ponte_giurino/2023/" {
		t.Fatalf("unexpected annual path %q", got)
	}
}
