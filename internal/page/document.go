// Package page holds the HTML document of one session and exposes the
// elements the corrispettivi components read and write. Every access goes
// through the document lock.
package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// Document is a parsed page shared by the goroutines of a session.
type Document struct {
	mu  sync.Mutex
	doc *goquery.Document
}

// Parse reads an HTML page.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString parses an HTML page held in memory.
func ParseString(html string) (*Document, error) {
	return Parse(strings.NewReader(html))
}

// LoadFile parses the page stored at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// LoadURL downloads and parses a page rendered by the portal.
func LoadURL(ctx context.Context, rawURL string, timeout time.Duration, headers map[string]string) (*Document, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid page URL: %s", rawURL)
	}

	var (
		body    []byte
		loadErr error
	)

	collector := colly.NewCollector(
		colly.UserAgent("corrispettivi-report/1.0"),
		colly.MaxDepth(1),
	)
	if timeout > 0 {
		collector.SetRequestTimeout(timeout)
	}

	collector.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
			loadErr = ctx.Err()
			return
		default:
		}
		for k, v := range headers {
			r.Headers.Set(k, v)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, e error) {
		if loadErr == nil {
			loadErr = fmt.Errorf("HTTP %d: %w", r.StatusCode, e)
		}
	})

	if err := collector.Visit(parsedURL.String()); err != nil && loadErr == nil {
		loadErr = fmt.Errorf("failed to visit page: %w", err)
	}
	if loadErr != nil {
		return nil, loadErr
	}
	if body == nil {
		return nil, errors.New("page returned no body")
	}
	return Parse(bytes.NewReader(body))
}

// HTML renders the whole document.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return goquery.OuterHtml(d.doc.Selection)
}

// OuterHTML renders the elements matched by selector, one after the other.
func (d *Document) OuterHTML(selector string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var sb strings.Builder
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if html, err := goquery.OuterHtml(s); err == nil {
			sb.WriteString(html)
		}
	})
	return sb.String()
}

// Tables returns the tables carrying both a plant nickname and a numeric
// year, in document order, and the number of tables that were skipped.
func (d *Document) Tables() ([]*Table, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var tables []*Table
	skipped := 0
	d.doc.Find(TableSelector).Each(func(_ int, s *goquery.Selection) {
		nickname := strings.TrimSpace(s.AttrOr(AttrNickname, ""))
		year, err := strconv.Atoi(strings.TrimSpace(s.AttrOr(AttrYear, "")))
		if nickname == "" || err != nil || year <= 0 {
			skipped++
			return
		}
		tables = append(tables, &Table{doc: d, sel: s, Nickname: nickname, Year: year, Index: len(tables)})
	})
	return tables, skipped
}

// FindTable returns the valid table for year, if any.
func (d *Document) FindTable(year int) (*Table, bool) {
	tables, _ := d.Tables()
	for _, t := range tables {
		if t.Year == year {
			return t, true
		}
	}
	return nil, false
}

// Nickname returns the first data-nickname on the page.
func (d *Document) Nickname() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find("[" + AttrNickname + "]").First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.AttrOr(AttrNickname, ""), true
}

// Attr returns attribute attr of the element with id.
func (d *Document) Attr(id, attr string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find("#" + id).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Attr(attr)
}

// Exists reports whether an element with id is on the page.
func (d *Document) Exists(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find("#"+id).Length() > 0
}

// SetInnerHTML replaces the content of the element with id.
func (d *Document) SetInnerHTML(id, html string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find("#" + id).First()
	if sel.Length() == 0 {
		return false
	}
	sel.SetHtml(html)
	return true
}

// InnerHTML returns the content of the element with id.
func (d *Document) InnerHTML(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find("#" + id).First()
	if sel.Length() == 0 {
		return "", false
	}
	html, err := sel.Html()
	if err != nil {
		return "", false
	}
	return html, true
}

// SetSectionHTML replaces the content of the first element matching
// selector inside the element with id, such as a tbody or tfoot.
func (d *Document) SetSectionHTML(id, selector, html string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find("#" + id).Find(selector).First()
	if sel.Length() == 0 {
		return false
	}
	sel.SetHtml(html)
	return true
}

// SetValue sets the value attribute of the element with id.
func (d *Document) SetValue(id, value string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find("#" + id).First()
	if sel.Length() == 0 {
		return false
	}
	sel.SetAttr("value", value)
	return true
}

// SelectedYear returns the year chosen in the year selector: the selected
// option, else the first one.
func (d *Document) SelectedYear() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	selector := d.doc.Find("#" + YearSelectorID).First()
	if selector.Length() == 0 {
		return 0, false
	}
	option := selector.Find("option[selected]").First()
	if option.Length() == 0 {
		option = selector.Find("option").First()
	}
	value, ok := option.Attr("value")
	if !ok {
		value = option.Text()
	}
	year, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return year, true
}

// SetHTML replaces the content of the first element matching selector.
func (d *Document) SetHTML(selector, html string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return false
	}
	sel.SetHtml(html)
	return true
}
