package page

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// Table is one .js-tabella-corrispettivi element of a Document.
type Table struct {
	doc *Document
	sel *goquery.Selection

	Nickname string
	Year     int
	Index    int
}

func monthSelector(class string, month int) string {
	return "." + class + "[" + AttrMonth + `="` + strconv.Itoa(month) + `"]`
}

// HasCell reports whether the table has the month cell.
func (t *Table) HasCell(class string, month int) bool {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	return t.sel.Find(monthSelector(class, month)).Length() > 0
}

// Cell returns the text of the month cell.
func (t *Table) Cell(class string, month int) (string, bool) {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	cell := t.sel.Find(monthSelector(class, month)).First()
	if cell.Length() == 0 {
		return "", false
	}
	return cell.Text(), true
}

// SetCell replaces the text of the month cell. Missing cells are ignored.
func (t *Table) SetCell(class string, month int, text string) bool {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	cell := t.sel.Find(monthSelector(class, month)).First()
	if cell.Length() == 0 {
		return false
	}
	cell.SetText(text)
	return true
}

// CellTexts returns the text of every cell with class, in document order.
func (t *Table) CellTexts(class string) []string {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	var texts []string
	t.sel.Find("." + class).Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	return texts
}

// Text returns the text of the first element with class.
func (t *Table) Text(class string) (string, bool) {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	cell := t.sel.Find("." + class).First()
	if cell.Length() == 0 {
		return "", false
	}
	return cell.Text(), true
}

// SetText replaces the text of the first element with class.
func (t *Table) SetText(class, text string) bool {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	cell := t.sel.Find("." + class).First()
	if cell.Length() == 0 {
		return false
	}
	cell.SetText(text)
	return true
}

func (t *Table) commentPart(month int, class string) *goquery.Selection {
	return t.sel.Find(monthSelector(CellComment, month)).Find("." + class).First()
}

// HasComment reports whether the month has both a comment input and its
// save button.
func (t *Table) HasComment(month int) bool {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	return t.commentPart(month, CommentInput).Length() > 0 && t.commentPart(month, CommentSave).Length() > 0
}

// CommentValue returns the value of the month's comment input.
func (t *Table) CommentValue(month int) (string, bool) {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	input := t.commentPart(month, CommentInput)
	if input.Length() == 0 {
		return "", false
	}
	return input.AttrOr("value", ""), true
}

// SetCommentValue sets the value of the month's comment input.
func (t *Table) SetCommentValue(month int, value string) bool {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	input := t.commentPart(month, CommentInput)
	if input.Length() == 0 {
		return false
	}
	input.SetAttr("value", value)
	return true
}

// CommentButton returns the inner HTML of the month's save button.
func (t *Table) CommentButton(month int) (string, bool) {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	btn := t.commentPart(month, CommentSave)
	if btn.Length() == 0 {
		return "", false
	}
	html, err := btn.Html()
	if err != nil {
		return "", false
	}
	return html, true
}

// SetCommentButton replaces the inner HTML of the month's save button.
func (t *Table) SetCommentButton(month int, html string) bool {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	btn := t.commentPart(month, CommentSave)
	if btn.Length() == 0 {
		return false
	}
	btn.SetHtml(html)
	return true
}
