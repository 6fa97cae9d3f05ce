// Package tui is the terminal host of a chat session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/iamvkosarev/ai-chat-client/internal/usecase"
	"github.com/iamvkosarev/ai-chat-client/pkg/local"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	headerHeight = 1
	footerHeight = 2
	inputHeight  = 3
)

var (
	TextThinking = local.NewSet(
		"Thinking...",
		local.NewTrans(local.Rus, "Думаю..."),
	)
	TextPlaceholder = local.NewSet(
		"Type a message...",
		local.NewTrans(local.Rus, "Введите сообщение..."),
	)
	TextYou = local.NewSet(
		"You",
		local.NewTrans(local.Rus, "Вы"),
	)
	TextAssistant = local.NewSet(
		"Assistant",
		local.NewTrans(local.Rus, "Ассистент"),
	)
)

// stateChangedMsg asks the model to re-read the presenter view.
type stateChangedMsg struct{}

type Model struct {
	presenter *usecase.PresenterUsecase
	user      model.User
	language  local.Language
	keyMap    KeyMap
	style     *Style

	textArea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	markdown bool

	view   usecase.PresenterView
	width  int
	height int
}

func NewModel(presenter *usecase.PresenterUsecase, user model.User, language local.Language) Model {
	ta := textarea.New()
	ta.Placeholder = TextPlaceholder.Text(language)
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	vp := viewport.New(80, 20)
	vp.KeyMap = viewport.KeyMap{
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}

	m := Model{
		presenter: presenter,
		user:      user,
		language:  language,
		keyMap:    DefaultKeyMap,
		style:     DefaultStyles(),
		textArea:  ta,
		viewport:  vp,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		markdown:  true,
		view:      presenter.View(),
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keyMap.Clear):
			if !m.view.Awaiting {
				m.presenter.Clear()
			}
			return m, nil
		case key.Matches(msg, m.keyMap.Submit):
			if m.presenter.Send(m.textArea.Value()) {
				m.textArea.Reset()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textArea.SetWidth(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight-inputHeight, 1)
		if m.markdown {
			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(max(msg.Width-4, 20)),
			)
			if err != nil {
				log.Warn().Err(err).Msg("markdown rendering disabled")
			}
			m.renderer = renderer
		}
		m.refresh()

	case stateChangedMsg:
		m.view = m.presenter.View()
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textArea, cmd = m.textArea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	header := m.style.Header.Render(fmt.Sprintf("ai-chat · %s", m.user.DisplayName()))

	var status string
	switch {
	case m.view.Awaiting:
		status = m.style.Status.Render(m.spinner.View() + " " + TextThinking.Text(m.language))
	case m.view.Notice != nil:
		status = m.style.Notice.Render(m.view.Notice.Text)
	}

	help := m.style.Help.Render(
		fmt.Sprintf(
			"%s %s · %s %s · %s %s",
			m.keyMap.Submit.Help().Key, m.keyMap.Submit.Help().Desc,
			m.keyMap.Clear.Help().Key, m.keyMap.Clear.Help().Desc,
			m.keyMap.Quit.Help().Key, m.keyMap.Quit.Help().Desc,
		),
	)

	return strings.Join([]string{header, m.viewport.View(), status, m.textArea.View(), help}, "\n")
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m *Model) renderHistory() string {
	if len(m.view.Messages) == 0 {
		return m.style.Welcome.Render(usecase.TextWelcome.Format(m.language, m.user.DisplayName()))
	}

	var b strings.Builder
	for i, msg := range m.view.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case model.MessageRoleUser:
			b.WriteString(m.style.UserLabel.Render(TextYou.Text(m.language)))
			b.WriteString("\n")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		default:
			b.WriteString(m.style.AssistantLabel.Render(TextAssistant.Text(m.language)))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(msg.Content))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}

// Run blocks until the user quits or ctx is done.
func Run(ctx context.Context, presenter *usecase.PresenterUsecase, user model.User, language local.Language) error {
	program := tea.NewProgram(
		NewModel(presenter, user, language),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	// Send is called from Update, so the redraw request must not wait for
	// the event loop.
	cancel := presenter.OnChange(
		func() {
			go program.Send(stateChangedMsg{})
		},
	)
	defer cancel()

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, "failed to run terminal ui")
	}
	return nil
}
