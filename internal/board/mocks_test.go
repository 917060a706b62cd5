package board

// MockViewer is a test mock for Viewer
type MockViewer struct {
	ViewFunc   func() View
	HealthFunc func() Health
	view       View
	health     Health
}

func NewMockViewer(view View, health Health) *MockViewer {
	return &MockViewer{view: view, health: health}
}

func (m *MockViewer) View() View {
	if m.ViewFunc != nil {
		return m.ViewFunc()
	}
	return m.view
}

func (m *MockViewer) Health() Health {
	if m.HealthFunc != nil {
		return m.HealthFunc()
	}
	return m.health
}
