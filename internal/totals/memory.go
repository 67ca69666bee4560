package totals

import "sync"

// Memory is a Surface held in memory.
type Memory struct {
	mu     sync.Mutex
	cells  map[string][]string
	totals map[string]string
}

// NewMemory returns a surface with the given total cells, all empty.
func NewMemory(totalClasses ...string) *Memory {
	m := &Memory{
		cells:  make(map[string][]string),
		totals: make(map[string]string),
	}
	for _, class := range totalClasses {
		m.totals[class] = ""
	}
	return m
}

// SetCells replaces the month cells of class.
func (m *Memory) SetCells(class string, texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[class] = append([]string(nil), texts...)
}

func (m *Memory) CellTexts(class string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cells[class]...)
}

func (m *Memory) Text(class string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.totals[class]
	return t, ok
}

func (m *Memory) SetText(class, text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.totals[class]; !ok {
		return false
	}
	m.totals[class] = text
	return true
}
