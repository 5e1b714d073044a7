package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/omd/internal/camera"
)

// watchLogSize is the number of event lines kept on screen
const watchLogSize = 12

type watchKeyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings for the short help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Quit}
}

// FullHelp returns keybindings for the full help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Refresh, k.Quit}}
}

// eventMsg carries one camera notification into the model
type eventMsg camera.Event

// errMsg carries one asynchronous camera error into the model
type errMsg struct{ err error }

// feedClosedMsg is sent once the event channel is closed
type feedClosedMsg struct{}

// WatchModel is a live view of camera notifications. Events arrive on a
// channel fed by an observer on the goroutine that owns the camera.
type WatchModel struct {
	Title   string
	State   camera.DeviceState
	Log     []string
	LastErr error
	Closed  bool

	events  <-chan camera.Event
	errs    <-chan error
	refresh chan<- struct{}

	width   int
	spinner spinner.Model
	help    help.Model
	keys    watchKeyMap
}

// NewWatchModel creates the watch view. refresh may be nil; when set, the
// refresh key sends on it without blocking.
func NewWatchModel(title string, events <-chan camera.Event, errs <-chan error, refresh chan<- struct{}) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return WatchModel{
		Title:   title,
		State:   camera.DeviceState{Images: map[string]camera.ImageDescriptor{}},
		events:  events,
		errs:    errs,
		refresh: refresh,
		width:   GetTerminalWidth(),
		spinner: s,
		help:    help.New(),
		keys: watchKeyMap{
			Refresh: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "refresh"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "ctrl+c", "esc"),
				key.WithHelp("q", "quit"),
			),
		},
	}
}

// Init starts the spinner and the channel readers
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events), waitForError(m.errs))
}

func waitForEvent(ch <-chan camera.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return eventMsg(e)
	}
}

func waitForError(ch <-chan error) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-ch
		if !ok {
			return nil
		}
		return errMsg{err: err}
	}
}

// Update handles messages and updates the model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			if m.refresh != nil {
				select {
				case m.refresh <- struct{}{}:
				default:
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = max(MinTerminalWidth, min(msg.Width, MaxContentWidth))
		m.help.Width = msg.Width

	case eventMsg:
		m.apply(camera.Event(msg))
		if msg.Kind == camera.EventPoweredOff {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)

	case errMsg:
		m.LastErr = msg.err
		m.appendLog(time.Now(), "error", camera.GetShortErrorMessage(msg.err))
		return m, waitForError(m.errs)

	case feedClosedMsg:
		m.Closed = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// apply folds an event into the displayed state and log
func (m *WatchModel) apply(e camera.Event) {
	detail := ""
	switch e.Kind {
	case camera.EventModelUpdated:
		m.State.Model = e.Model
		detail = e.Model
	case camera.EventCapacityUpdated:
		m.State.UnusedCapacity = e.Capacity
		detail = camera.FormatBytes(e.Capacity) + " free"
	case camera.EventConnectModeChanged:
		m.State.ConnectMode = e.ConnectMode
		detail = e.ConnectMode.String()
	case camera.EventCamModeChanged:
		m.State.CamMode = e.CamMode
		detail = e.CamMode.String()
	case camera.EventPropertiesUpdated:
		m.State.Properties = e.Properties
		if e.Properties != nil {
			detail = fmt.Sprintf("%d properties", e.Properties.Len())
		}
	case camera.EventImagesUpdated:
		m.State.Images = e.Images
		detail = fmt.Sprintf("%d images", len(e.Images))
	case camera.EventImageReceived:
		detail = e.ImageName
		if e.Image != nil {
			b := e.Image.Bounds()
			detail += fmt.Sprintf(" %dx%d", b.Dx(), b.Dy())
		}
	}
	m.appendLog(e.Time, e.Kind.String(), detail)
}

func (m *WatchModel) appendLog(at time.Time, kind, detail string) {
	if at.IsZero() {
		at = time.Now()
	}
	line := EventTimeStyle.Render(at.Format("15:04:05")) + "  " + EventKindStyle.Render(kind) + " " + detail
	m.Log = append(m.Log, line)
	if len(m.Log) > watchLogSize {
		m.Log = m.Log[len(m.Log)-watchLogSize:]
	}
}

// View renders the watch screen
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(RenderHeader(m.Title, "omd-ctl watch", nil, m.width))
	b.WriteString("\n")
	b.WriteString(RenderStatus(m.State, m.width))
	b.WriteString("\n\n")

	if len(m.Log) == 0 {
		b.WriteString("  " + m.spinner.View() + " Waiting for camera events...")
	} else {
		b.WriteString(strings.Join(m.Log, "\n"))
	}
	b.WriteString("\n\n")

	if m.LastErr != nil {
		if hint := camera.GetTroubleshootingHint(m.LastErr); hint != "" {
			b.WriteString(TroubleshootingItemStyle.Render(hint))
			b.WriteString("\n\n")
		}
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}
