package annotator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamim/corrispettivi-report/internal/fetchcache"
	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/portal"
)

type fakeSaver struct {
	mu    sync.Mutex
	err   error
	saved []portal.Comment
}

func (f *fakeSaver) SaveComment(_ context.Context, c portal.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, c)
	return f.err
}

type recordingAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingAlerter) Alert(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func annotatedWithControls(t *testing.T, saver Saver, alerter Alerter) *Annotator {
	t.Helper()
	doc := newDocument(t, "ponte_giurino", 2023)
	a := New(doc, Options{
		Cache:        fetchcache.New(newFakePortal(), nil),
		Saver:        saver,
		Alerter:      alerter,
		ConfirmDelay: 20 * time.Millisecond,
	})
	require.NoError(t, a.Run(context.Background()))
	return a
}

func TestCommentClickSavesAndShowsCheck(t *testing.T) {
	saver := &fakeSaver{}
	alerter := &recordingAlerter{}
	a := annotatedWithControls(t, saver, alerter)
	defer a.Stop()

	table, _ := a.Table(2023)
	table.SetCommentValue(4, "inverter sostituito")

	control, ok := a.Control(2023, 4)
	require.True(t, ok)
	require.NoError(t, control.Click(context.Background()))

	require.Len(t, saver.saved, 1)
	assert.Equal(t, portal.Comment{Nickname: "ponte_giurino", Year: 2023, Month: 4, Text: "inverter sostituito"}, saver.saved[0])

	button, _ := table.CommentButton(4)
	assert.Equal(t, page.IconCheck, button)

	require.Eventually(t, func() bool {
		button, _ := table.CommentButton(4)
		return button == page.IconSave
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, alerter.messages)
}

func TestCommentClickFailureAlerts(t *testing.T) {
	saver := &fakeSaver{err: portal.ErrCommentRejected}
	alerter := &recordingAlerter{}
	a := annotatedWithControls(t, saver, alerter)

	table, _ := a.Table(2023)
	table.SetCommentValue(7, "da verificare")
	before, _ := table.CommentButton(7)

	control, _ := a.Control(2023, 7)
	err := control.Click(context.Background())
	require.True(t, errors.Is(err, portal.ErrCommentRejected))

	assert.Equal(t, []string{SaveErrorMessage}, alerter.messages)
	value, _ := table.CommentValue(7)
	assert.Equal(t, "da verificare", value)
	after, _ := table.CommentButton(7)
	assert.Equal(t, before, after)
}

func TestEveryMonthHasAControl(t *testing.T) {
	a := annotatedWithControls(t, &fakeSaver{}, nil)
	for month := 1; month <= Months; month++ {
		c, ok := a.Control(2023, month)
		require.True(t, ok, "month %d", month)
		assert.Equal(t, month, c.Month())
	}
	_, ok := a.Control(2024, 1)
	assert.False(t, ok)
}

func TestCommentControlWithDuplicateYears(t *testing.T) {
	saver := &fakeSaver{}
	doc := newDocument(t, "ponte_giurino", 2023, 2023)
	a := New(doc, Options{
		Cache:        fetchcache.New(newFakePortal(), nil),
		Saver:        saver,
		ConfirmDelay: 20 * time.Millisecond,
	})
	require.NoError(t, a.Run(context.Background()))
	defer a.Stop()

	control, ok := a.Control(2023, 4)
	require.True(t, ok)
	require.True(t, control.SetText("pulizia pannelli"))
	assert.Equal(t, "pulizia pannelli", control.Text())

	require.NoError(t, control.Click(context.Background()))
	require.Len(t, saver.saved, 1)
	assert.Equal(t, "pulizia pannelli", saver.saved[0].Text)
	assert.Equal(t, 4, saver.saved[0].Month)
}
