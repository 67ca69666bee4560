package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lamim/corrispettivi-report/internal/numfmt"
)

// Series names one of the annual read endpoints.
type Series string

// Annual series served under /corrispettivi/api/annuale/.
const (
	SeriesEnergy       Series = "energia-kwh"
	SeriesTFO          Series = "dati-tfo"
	SeriesCNI          Series = "dati-CNI"
	SeriesInvoicedTFO  Series = "dati-fatturazione-tfo"
	SeriesNonIncentive Series = "dati-energia-non-incentivata"
	SeriesPayments     Series = "dati-riepilogo-pagamenti"
	SeriesControl      Series = "percentuale-controllo"
	SeriesComments     Series = "commenti"
)

const (
	annualPathPattern = "/corrispettivi/api/annuale/%s/%s/%d/"
	punPathPattern    = "/corrispettivi/api/dati-PUN/%s/%d/%d/"
	// SaveCommentPath receives comment saves as JSON.
	SaveCommentPath = "/corrispettivi/api/salva-commento/"
)

// AnnualSeries lists the series requested for every plant-year table.
var AnnualSeries = []Series{
	SeriesEnergy,
	SeriesTFO,
	SeriesCNI,
	SeriesInvoicedTFO,
	SeriesNonIncentive,
	SeriesPayments,
	SeriesControl,
	SeriesComments,
}

// AnnualPath returns the request path of an annual series.
func AnnualPath(s Series, nickname string, year int) string {
	return fmt.Sprintf(annualPathPattern, s, url.PathEscape(nickname), year)
}

// PUNPath returns the request path of the monthly PUN price.
func PUNPath(nickname string, year, month int) string {
	return fmt.Sprintf(punPathPattern, url.PathEscape(nickname), year, month)
}

// Payload is the envelope returned by the read endpoints.
type Payload struct {
	Success         bool              `json:"success"`
	PerMonth        MonthValues       `json:"per_month,omitempty"`
	CommentsByMonth MonthComments     `json:"comments_by_month,omitempty"`
	Data            []json.RawMessage `json:"data,omitempty"`

	// Status is the HTTP status the payload arrived with.
	Status int `json:"-"`
}

// Failed is the fallback payload used when a read cannot be completed.
func Failed() *Payload {
	return &Payload{Success: false}
}

// OK reports whether the payload came back with a 2xx status and success set.
func (p *Payload) OK() bool {
	return p != nil && p.Success && p.Status >= 200 && p.Status < 300
}

// MonthValues maps a month key to its raw value. Keys arrive as "1".."12"
// from some endpoints and zero padded from others.
type MonthValues map[string]json.RawMessage

// Lookup returns the numeric value for month. Missing keys and JSON null
// report false. Non numeric values count as 0.
func (m MonthValues) Lookup(month int) (float64, bool) {
	raw, ok := monthKey(m, month)
	if !ok || isNull(raw) {
		return 0, false
	}
	return decodeNumber(raw), true
}

// Value returns Lookup without the presence flag.
func (m MonthValues) Value(month int) float64 {
	v, _ := m.Lookup(month)
	return v
}

// CommentState is one saved comment.
type CommentState struct {
	Text  string `json:"testo"`
	State string `json:"stato"`
}

// MonthComments maps a month key to its comment.
type MonthComments map[string]*CommentState

// Text returns the saved comment for month or "".
func (m MonthComments) Text(month int) string {
	c, ok := monthKey(m, month)
	if !ok || c == nil {
		return ""
	}
	return c.Text
}

// PUN returns the monthly average price carried by a dati-PUN payload. It
// accepts both a list of {"mean_pun": v} objects and a list of bare numbers,
// reading the first element only.
func (p *Payload) PUN() (float64, bool) {
	if p == nil || !p.Success || len(p.Data) == 0 {
		return 0, false
	}
	first := bytes.TrimSpace(p.Data[0])
	if len(first) > 0 && first[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(first, &obj); err != nil {
			return 0, false
		}
		v, ok := obj["mean_pun"]
		if !ok || isNull(v) {
			return 0, false
		}
		return decodeNumber(v), true
	}
	var n float64
	if err := json.Unmarshal(first, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(first, &s); err == nil {
		if v, ok := numfmt.ParsePrefix(s); ok {
			return v, true
		}
	}
	return 0, false
}

func monthKey[V any](m map[string]V, month int) (V, bool) {
	var zero V
	if m == nil {
		return zero, false
	}
	if v, ok := m[strconv.Itoa(month)]; ok {
		return v, true
	}
	for k, v := range m {
		if n, err := strconv.Atoi(strings.TrimSpace(k)); err == nil && n == month {
			return v, true
		}
	}
	return zero, false
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func decodeNumber(raw json.RawMessage) float64 {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, ok := numfmt.ParsePrefix(s); ok {
			return v
		}
	}
	return 0
}

// Comment is the body of a comment save request.
type Comment struct {
	Nickname string `json:"nickname"`
	Year     int    `json:"anno"`
	Month    int    `json:"mese"`
	Text     string `json:"testo"`
}
