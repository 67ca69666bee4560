package multiplant

import (
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/lamim/corrispettivi-report/internal/numfmt"
	"github.com/lamim/corrispettivi-report/internal/page"
)

// FutureMark fills the cells of months that have not happened yet.
const FutureMark = "—"

// DefaultPageSize is the number of rows per page.
const DefaultPageSize = 12

// EmptyTable is shown when there are no rows.
const EmptyTable = "Nessun dato disponibile"

// IsFuture reports whether month of year is after the current month.
func IsFuture(year, month int, now time.Time) bool {
	return year > now.Year() || (year == now.Year() && month > int(now.Month()))
}

func integer(v float64) string {
	return numfmt.Integer(v)
}

func euro(v float64) string {
	return numfmt.Integer(v) + numfmt.Euro
}

// Rows renders one row per month: number, month name, energy, TFO,
// invoiced and collected, all rounded. Future months are marked.
func Rows(sums [12]MonthlySum, year int, now time.Time) [][]string {
	rows := make([][]string, 0, len(sums))
	for i, s := range sums {
		month := i + 1
		row := []string{strconv.Itoa(month), page.MonthNames[i]}
		if IsFuture(year, month, now) {
			row = append(row, FutureMark, FutureMark, FutureMark, FutureMark)
		} else {
			row = append(row, integer(s.Energy), euro(s.TFO), euro(s.Invoiced), euro(s.Collected))
		}
		rows = append(rows, row)
	}
	return rows
}

// Footer sums the months that are shown: "X kWh" then three "Y €".
func Footer(sums [12]MonthlySum, year int, now time.Time) []string {
	var total MonthlySum
	for i, s := range sums {
		if IsFuture(year, i+1, now) {
			continue
		}
		total.Energy += s.Energy
		total.TFO += s.TFO
		total.Invoiced += s.Invoiced
		total.Collected += s.Collected
	}
	return []string{
		integer(total.Energy) + " kWh",
		euro(total.TFO),
		euro(total.Invoiced),
		euro(total.Collected),
	}
}

// Pager slices rows into pages.
type Pager struct {
	rows [][]string
	size int
}

// NewPager returns a pager of size rows per page.
func NewPager(rows [][]string, size int) *Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager{rows: rows, size: size}
}

// Pages returns the page count, at least 1.
func (p *Pager) Pages() int {
	if len(p.rows) == 0 {
		return 1
	}
	return (len(p.rows) + p.size - 1) / p.size
}

// Page returns the rows of page n, counting from 1. Out of range pages
// are clamped.
func (p *Pager) Page(n int) [][]string {
	n = max(1, min(n, p.Pages()))
	start := (n - 1) * p.size
	end := min(start+p.size, len(p.rows))
	if start >= end {
		return nil
	}
	return p.rows[start:end]
}

// BodyHTML renders rows as table rows.
func BodyHTML(rows [][]string) string {
	if len(rows) == 0 {
		return `<tr><td colspan="6" class="text-center">` + EmptyTable + `</td></tr>`
	}
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString("<tr>")
		for _, cell := range row {
			sb.WriteString("<td>")
			sb.WriteString(html.EscapeString(cell))
			sb.WriteString("</td>")
		}
		sb.WriteString("</tr>")
	}
	return sb.String()
}

// FooterHTML renders the footer row under the value columns.
func FooterHTML(footer []string) string {
	var sb strings.Builder
	sb.WriteString(`<tr class="fw-bold"><th></th><th>Totale</th>`)
	for _, cell := range footer {
		sb.WriteString("<th>")
		sb.WriteString(html.EscapeString(cell))
		sb.WriteString("</th>")
	}
	sb.WriteString("</tr>")
	return sb.String()
}

// PagerHTML renders the page links of the monthly table.
func PagerHTML(p *Pager, current, year int) string {
	if p.Pages() <= 1 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(`<ul class="pagination">`)
	for n := 1; n <= p.Pages(); n++ {
		class := "page-item"
		if n == current {
			class += " active"
		}
		sb.WriteString(`<li class="` + class + `"><a class="page-link" href="?anno=` + strconv.Itoa(year) + `&amp;pagina=` + strconv.Itoa(n) + `">` + strconv.Itoa(n) + `</a></li>`)
	}
	sb.WriteString(`</ul>`)
	return sb.String()
}

// RenderTable writes one page of rows, the footer and the page links into
// the monthly table.
func RenderTable(doc *page.Document, p *Pager, current, year int, footer []string) bool {
	if !doc.SetSectionHTML(page.MultiTableID, "tbody", BodyHTML(p.Page(current))) {
		return false
	}
	doc.SetSectionHTML(page.MultiTableID, "tfoot", FooterHTML(footer))
	doc.SetHTML(".js-pager", PagerHTML(p, current, year))
	return true
}
