package annotator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/portal"
)

// ErrNoSaver is returned by Click when the session cannot save comments.
var ErrNoSaver = errors.New("comment saving is not configured")

// SaveErrorMessage is raised through the Alerter when a comment is not saved.
const SaveErrorMessage = "Errore nel salvataggio del commento"

// DefaultConfirmDelay is how long the check icon stays after a save.
const DefaultConfirmDelay = 1200 * time.Millisecond

// Alerter shows blocking messages to the user.
type Alerter interface {
	Alert(message string)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(message string)

// Alert calls f.
func (f AlerterFunc) Alert(message string) {
	f(message)
}

// Saver persists comments.
type Saver interface {
	SaveComment(ctx context.Context, comment portal.Comment) error
}

// CommentControl is the save button of one month's comment.
type CommentControl struct {
	table   *page.Table
	month   int
	saver   Saver
	alerter Alerter
	logger  *zap.Logger
	delay   time.Duration

	mu     sync.Mutex
	revert *time.Timer
}

// Month returns the month the control belongs to.
func (c *CommentControl) Month() int {
	return c.month
}

// SetText replaces the value of the control's own comment input.
func (c *CommentControl) SetText(text string) bool {
	return c.table.SetCommentValue(c.month, text)
}

// Text returns the value of the control's comment input.
func (c *CommentControl) Text() string {
	text, _ := c.table.CommentValue(c.month)
	return text
}

// Click saves the current input value. On success the button shows the check
// icon and switches back to the save icon after the confirm delay. On failure
// the alert is raised and the input is left as typed.
func (c *CommentControl) Click(ctx context.Context) error {
	text := c.Text()
	comment := portal.Comment{
		Nickname: c.table.Nickname,
		Year:     c.table.Year,
		Month:    c.month,
		Text:     text,
	}

	err := ErrNoSaver
	if c.saver != nil {
		err = c.saver.SaveComment(ctx, comment)
	}
	if err != nil {
		c.logger.Warn("comment save failed",
			zap.String("nickname", comment.Nickname),
			zap.Int("anno", comment.Year),
			zap.Int("mese", comment.Month),
			zap.Error(err))
		if c.alerter != nil {
			c.alerter.Alert(SaveErrorMessage)
		}
		return err
	}

	c.table.SetCommentButton(c.month, page.IconCheck)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revert != nil {
		c.revert.Stop()
	}
	c.revert = time.AfterFunc(c.delay, func() {
		c.table.SetCommentButton(c.month, page.IconSave)
	})
	return nil
}

// Stop cancels a pending icon revert.
func (c *CommentControl) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
	}
}
