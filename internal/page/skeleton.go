package page

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"sort"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

// MonthNames are the Italian month names, January first.
var MonthNames = [12]string{
	"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
	"Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre",
}

// ErrNoYears is returned when an annual page is requested without years.
var ErrNoYears = errors.New("at least one year is required")

type month struct {
	Number int
	Name   string
}

func months() []month {
	out := make([]month, 0, len(MonthNames))
	for i, name := range MonthNames {
		out = append(out, month{Number: i + 1, Name: name})
	}
	return out
}

// AnnualPage renders the page of one plant with one table per year,
// sorted ascending.
func AnnualPage(nickname string, years []int) (string, error) {
	if nickname == "" {
		return "", errors.New("nickname is required")
	}
	if len(years) == 0 {
		return "", ErrNoYears
	}
	sorted := append([]int(nil), years...)
	sort.Ints(sorted)

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "annual.html.tmpl", struct {
		Nickname string
		Years    []int
		Months   []month
	}{nickname, sorted, months()})
	if err != nil {
		return "", fmt.Errorf("failed to render annual page: %w", err)
	}
	return buf.String(), nil
}

// MultiPage describes the page summing several plants.
type MultiPage struct {
	// Plants is written as the JSON array of data-impianti when not empty.
	Plants []string
	// Nickname is written as data-nickname when Plants is empty.
	Nickname string
	Years    []int
	Selected int
	// Action is the target of the year selector form.
	Action string
}

type yearOption struct {
	Value    int
	Selected bool
}

// Render renders the multi-plant page.
func (m MultiPage) Render() (string, error) {
	var plants string
	if len(m.Plants) > 0 {
		raw, err := json.Marshal(m.Plants)
		if err != nil {
			return "", fmt.Errorf("failed to encode plants: %w", err)
		}
		plants = string(raw)
	}

	years := append([]int(nil), m.Years...)
	if len(years) == 0 && m.Selected != 0 {
		years = []int{m.Selected}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	options := make([]yearOption, 0, len(years))
	for _, y := range years {
		options = append(options, yearOption{Value: y, Selected: y == m.Selected})
	}

	action := m.Action
	if action == "" {
		action = "/totale"
	}

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "multi.html.tmpl", struct {
		Plants   string
		Nickname string
		Years    []yearOption
		Action   string
	}{plants, m.Nickname, options, action})
	if err != nil {
		return "", fmt.Errorf("failed to render multi page: %w", err)
	}
	return buf.String(), nil
}
