// Package tui provides the Bubble Tea swipe interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/nirdswipe/internal/badge"
	"github.com/verte-zerg/nirdswipe/internal/model"
	"github.com/verte-zerg/nirdswipe/internal/remote"
	"github.com/verte-zerg/nirdswipe/internal/scoring"
	"github.com/verte-zerg/nirdswipe/internal/session"
)

// DefaultSubmitTimeout bounds the background result submission.
const DefaultSubmitTimeout = 10 * time.Second

// History stores completed sessions locally.
type History interface {
	InsertResult(ctx context.Context, id, user string, report model.ResultsReport, choices []model.Choice) error
}

// Submitter sends completed sessions to the results backend.
type Submitter interface {
	Submit(ctx context.Context, report model.ResultsReport, choices []model.Choice, startedAt time.Time, authenticated bool) (remote.ResultRecord, error)
	Authenticated() bool
}

// Options wires the model to its collaborators. Every field is optional.
type Options struct {
	User          string
	History       History
	Submitter     Submitter
	SubmitTimeout time.Duration
	Logger        *zap.Logger
	// Deal returns a fresh hand for a new game; nil disables replay.
	Deal func() []model.TechnologyItem
	Now  func() time.Time
}

type phase int

const (
	phasePlay phase = iota
	phaseResults
)

type saveState int

const (
	saveNone saveState = iota
	savePending
	saveDone
	saveFailed
)

type recordedMsg struct {
	id  string
	err error
}

type submittedMsg struct {
	id       string
	remoteID string
	err      error
}

// Model implements the Bubble Tea swipe UI.
type Model struct {
	sess   *session.Session
	keeper *session.Keeper
	engine *scoring.Engine
	opts   Options
	logger *zap.Logger

	width  int
	height int

	phase    phase
	feedback string
	correct  bool

	report  model.ResultsReport
	earned  string
	bonuses []string
	results viewport.Model

	recordState saveState
	submitState saveState
	remoteID    string
}

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	cardBoxStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
)

// NewModel constructs a swipe TUI over sess.
func NewModel(sess *session.Session, keeper *session.Keeper, engine *scoring.Engine, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}
	m := &Model{
		keeper:  keeper,
		engine:  engine,
		opts:    opts,
		logger:  opts.Logger,
		results: viewport.New(0, 0),
	}
	m.begin(sess)
	return m
}

// Report returns the last computed report, if any.
func (m *Model) Report() (model.ResultsReport, bool) {
	return m.report, m.phase == phaseResults
}

func (m *Model) begin(sess *session.Session) {
	m.sess = sess
	m.phase = phasePlay
	m.feedback = ""
	m.report = model.ResultsReport{}
	m.earned = ""
	m.bonuses = nil
	m.recordState = saveNone
	m.submitState = saveNone
	m.remoteID = ""
}

// Init implements tea.Model. A resumed session that is already complete
// goes straight to the results.
func (m *Model) Init() tea.Cmd {
	if m.sess.IsComplete() {
		return m.finish()
	}
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutResults()
		return m, nil
	case recordedMsg:
		m.recordState = saveDone
		if msg.err != nil {
			m.recordState = saveFailed
		}
		m.refreshResults()
		return m, nil
	case submittedMsg:
		m.submitState = saveDone
		m.remoteID = msg.remoteID
		if msg.err != nil {
			m.submitState = saveFailed
		}
		m.refreshResults()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		if m.phase == phaseResults {
			return m.updateResults(msg)
		}
		return m.updatePlay(msg)
	default:
		return m, nil
	}
}

func (m *Model) updatePlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h", "n":
		return m, m.choose(false)
	case "right", "l", "y", "o":
		return m, m.choose(true)
	default:
		return m, nil
	}
}

func (m *Model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "r" && m.opts.Deal != nil {
		hand := m.opts.Deal()
		if len(hand) == 0 {
			return m, nil
		}
		m.begin(session.Start(hand, m.opts.Now))
		return m, nil
	}
	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) choose(accepted bool) tea.Cmd {
	item, ok := m.sess.Current()
	if !ok {
		return nil
	}
	choice, err := m.sess.Choose(accepted)
	if err != nil {
		m.logger.Debug("choice ignored", zap.Error(err))
		return nil
	}
	m.keeper.Sync(context.Background(), m.sess)
	m.correct = isCorrect(item.Classification, accepted)
	m.feedback = feedbackFor(item, choice)
	if m.sess.IsComplete() {
		return m.finish()
	}
	return nil
}

func isCorrect(cl model.Classification, accepted bool) bool {
	return (cl == model.BigTech) != accepted
}

func feedbackFor(item model.TechnologyItem, choice model.Choice) string {
	points := fmt.Sprintf("%+d pts", choice.PointsEarned)
	if isCorrect(item.Classification, choice.Accepted) {
		return fmt.Sprintf("✓ Bon choix pour %s (%s)", item.Name, points)
	}
	if item.Classification == model.BigTech {
		return fmt.Sprintf("✗ %s est une solution Big Tech (%s)", item.Name, points)
	}
	return fmt.Sprintf("✗ %s est une alternative NIRD (%s)", item.Name, points)
}

func (m *Model) finish() tea.Cmd {
	completedAt, ok := m.sess.CompletedAt()
	if !ok {
		return nil
	}
	items := m.sess.Items()
	choices := m.sess.Choices()
	startedAt := m.sess.StartedAt()
	m.report = m.engine.Score(items, choices, startedAt, completedAt)
	m.earned = badge.Classify(m.report)
	m.bonuses = badge.ClassifyBonus(m.report)
	m.phase = phaseResults

	var cmds []tea.Cmd
	if m.opts.History != nil {
		m.recordState = savePending
		cmds = append(cmds, recordCmd(m.opts.History, m.sess.ID(), m.opts.User, m.report, choices, m.logger))
	}
	if m.opts.Submitter != nil {
		m.submitState = savePending
		cmds = append(cmds, submitCmd(m.opts.Submitter, m.sess.ID(), m.report, choices, startedAt, m.opts.SubmitTimeout, m.logger))
	}
	m.layoutResults()
	return tea.Batch(cmds...)
}

func recordCmd(h History, id, user string, report model.ResultsReport, choices []model.Choice, logger *zap.Logger) tea.Cmd {
	return func() tea.Msg {
		err := h.InsertResult(context.Background(), id, user, report, choices)
		if err != nil {
			logger.Warn("failed to save result", zap.String("session", id), zap.Error(err))
		}
		return recordedMsg{id: id, err: err}
	}
}

func submitCmd(s Submitter, id string, report model.ResultsReport, choices []model.Choice, startedAt time.Time, timeout time.Duration, logger *zap.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		rec, err := s.Submit(ctx, report, choices, startedAt, s.Authenticated())
		if err != nil {
			logger.Warn("failed to submit result", zap.String("session", id), zap.Error(err))
			return submittedMsg{id: id, err: err}
		}
		logger.Info("result submitted", zap.String("session", id), zap.String("remote_id", rec.ID))
		return submittedMsg{id: id, remoteID: rec.ID}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.phase == phaseResults {
		return m.viewResults()
	}
	item, ok := m.sess.Current()
	if !ok {
		return mutedStyle.Render("Aucune carte à jouer.") + "\n"
	}
	contentWidth := cardWidth(m.width)
	parts := []string{renderCard(item, contentWidth)}
	if m.feedback != "" {
		style := badStyle
		if m.correct {
			style = goodStyle
		}
		parts = append(parts, style.Render(m.feedback))
	}
	parts = append(parts, mutedStyle.Render("← n Remplacer    Garder o →    q Quitter"))
	content := lipgloss.JoinVertical(lipgloss.Center, parts...)
	footer := m.renderFooter()
	if m.width == 0 || m.height < 3 {
		return content + "\n" + footer
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func cardWidth(width int) int {
	if width <= 0 {
		return 60
	}
	w := int(float64(width) * 0.6)
	return max(20, min(w, 72))
}

func (m *Model) renderFooter() string {
	total := m.sess.Len()
	if total == 0 {
		return ""
	}
	current := min(m.sess.Index()+1, total)
	segments := []string{
		fmt.Sprintf("Carte %d/%d", current, total),
		fmt.Sprintf("Progression %d%%", int(m.sess.Progress())),
		fmt.Sprintf("%d pts", m.sess.RunningPoints()),
	}
	return footerStyle.Render(strings.Join(segments, "  ·  "))
}

func (m *Model) layoutResults() {
	if m.phase != phaseResults {
		return
	}
	w := m.width
	if w <= 0 {
		w = 80
	}
	h := m.height - 1
	if h <= 0 {
		h = 24
	}
	m.results.Width = w
	m.results.Height = h
	m.refreshResults()
}

func (m *Model) refreshResults() {
	if m.phase != phaseResults {
		return
	}
	m.results.SetContent(renderResults(m.report, m.earned, m.bonuses, resultsWidth(m.results.Width)))
}

func resultsWidth(w int) int {
	if w <= 0 {
		return 76
	}
	return min(w-2, 96)
}

func (m *Model) viewResults() string {
	help := "↑/↓ défiler  ·  q quitter"
	if m.opts.Deal != nil {
		help = "↑/↓ défiler  ·  r rejouer  ·  q quitter"
	}
	status := m.saveStatus()
	if status != "" {
		help = status + "  ·  " + help
	}
	return m.results.View() + "\n" + footerStyle.Render(help)
}

func (m *Model) saveStatus() string {
	var parts []string
	switch m.recordState {
	case savePending:
		parts = append(parts, "Enregistrement…")
	case saveDone:
		parts = append(parts, "Enregistré")
	case saveFailed:
		parts = append(parts, "Enregistrement impossible")
	}
	switch m.submitState {
	case savePending:
		parts = append(parts, "Envoi…")
	case saveDone:
		parts = append(parts, "Envoyé")
	case saveFailed:
		parts = append(parts, "Envoi impossible")
	}
	return strings.Join(parts, " · ")
}
