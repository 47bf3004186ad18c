package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/artic-network/peartree/pkg/phylo"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// viewCommand creates the view command, an interactive terminal tree
// browser. Edits made in the browser (rerooting, ordering, rotation,
// collapsing) can be saved on exit.
func (c *CLI) viewCommand() *cobra.Command {
	var opts editOpts

	cmd := &cobra.Command{
		Use:   "view [file|url]",
		Short: "Browse and edit a tree interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			g, err := loadGraph(ctx, args[0], opts.treeIndex)
			if err != nil {
				return err
			}

			model := newTreeModel(g, args[0])
			final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}

			m := final.(treeModel)
			if !m.save {
				return nil
			}
			return writeTree(g, &opts)
		},
	}

	opts.register(cmd)
	return cmd
}

// =============================================================================
// treeModel - Interactive tree browser
// =============================================================================

// treeRow is one line of the rendered tree: a visible node, its indentation
// depth within the current view and the visible tip count beneath it.
type treeRow struct {
	id        int
	depth     int
	name      string
	length    float64
	tips      int
	tip       bool
	collapsed bool
}

// treeModel is the bubbletea model for the tree browser. Every edit mutates
// the underlying graph in place and rebuilds the row list.
type treeModel struct {
	g      *phylo.Graph
	source string

	rows   []treeRow
	cursor int
	offset int
	height int

	viewRoot int // drill-in subtree id, or phylo.EntireTree
	status   string
	save     bool
}

func newTreeModel(g *phylo.Graph, source string) treeModel {
	m := treeModel{
		g:        g,
		source:   source,
		height:   20,
		viewRoot: phylo.EntireTree,
	}
	m.rebuild()
	return m
}

func (m treeModel) Init() tea.Cmd {
	return nil
}

func (m treeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.status = ""
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			m.save = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "g":
			m.cursor, m.offset = 0, 0
		case "G":
			m.cursor = len(m.rows) - 1
			if m.cursor >= m.offset+m.height {
				m.offset = m.cursor - m.height + 1
			}
		case " ", "h":
			m.toggleHidden()
		case "r":
			m.rotate(false)
		case "R":
			m.rotate(true)
		case "t":
			m.reroot()
		case "m":
			m.midpoint()
		case "o":
			m.g.Reorder(true)
			m.rebuild()
			m.status = "ordered clades by increasing size"
		case "O":
			m.g.Reorder(false)
			m.rebuild()
			m.status = "ordered clades by decreasing size"
		case "enter":
			row := m.current()
			if row != nil && !row.tip {
				m.viewRoot = row.id
				m.cursor, m.offset = 0, 0
				m.rebuild()
			}
		case "esc":
			if m.viewRoot != phylo.EntireTree {
				m.viewRoot = phylo.EntireTree
				m.cursor, m.offset = 0, 0
				m.rebuild()
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 6
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m *treeModel) current() *treeRow {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return &m.rows[m.cursor]
}

func (m *treeModel) toggleHidden() {
	row := m.current()
	if row == nil {
		return
	}
	if row.collapsed {
		m.g.Show(row.id)
		m.status = fmt.Sprintf("expanded node %d", row.id)
	} else {
		if !m.g.CanHide(row.id) {
			m.status = "cannot collapse: no visible tips would remain on one side"
			return
		}
		m.g.Hide(row.id)
		m.status = fmt.Sprintf("collapsed node %d", row.id)
	}
	m.rebuild()
}

func (m *treeModel) rotate(recursive bool) {
	row := m.current()
	if row == nil || row.tip {
		return
	}
	m.g.Rotate(row.id, recursive)
	m.rebuild()
	if recursive {
		m.status = fmt.Sprintf("rotated subtree below node %d", row.id)
	} else {
		m.status = fmt.Sprintf("rotated node %d", row.id)
	}
}

func (m *treeModel) reroot() {
	row := m.current()
	if row == nil {
		return
	}
	m.g.Reroot(row.id, row.length/2)
	m.viewRoot = phylo.EntireTree
	m.cursor, m.offset = 0, 0
	m.rebuild()
	m.status = fmt.Sprintf("rerooted below node %d", row.id)
}

func (m *treeModel) midpoint() {
	id, dist, err := m.g.Midpoint()
	if err != nil {
		m.status = err.Error()
		return
	}
	m.g.Reroot(id, dist)
	m.viewRoot = phylo.EntireTree
	m.cursor, m.offset = 0, 0
	m.rebuild()
	m.status = fmt.Sprintf("midpoint rerooted below node %d", id)
}

// rebuild regenerates the row list from the graph, keeping the cursor in
// range. Collapsed nodes appear as a single row; their subtrees do not.
func (m *treeModel) rebuild() {
	m.rows = m.rows[:0]

	if m.viewRoot != phylo.EntireTree {
		if n, ok := m.g.NodeByID(m.viewRoot); ok {
			parent := -1
			if n.Degree() > 0 && !(m.g.Root.Kind == phylo.RootReal && n.Index == m.g.Root.SideA) {
				parent = n.Neighbours[0]
			}
			m.addRows(n.Index, parent, 0, 0)
		}
	} else if m.g.Root.Kind == phylo.RootReal {
		m.addRows(m.g.Root.SideA, -1, 0, 0)
	} else {
		m.addRows(m.g.Root.SideA, m.g.Root.SideB, m.g.Root.LenA, 0)
		m.addRows(m.g.Root.SideB, m.g.Root.SideA, m.g.Root.LenB, 0)
	}

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.offset > m.cursor {
		m.offset = m.cursor
	}
}

// addRows appends the row for the node at arena index idx and recurses into
// its children, returning the number of visible tips beneath it.
func (m *treeModel) addRows(idx, cameFrom int, length float64, depth int) int {
	n := m.g.Nodes[idx]

	row := treeRow{
		id:        n.OriginalID,
		depth:     depth,
		name:      n.Name,
		length:    length,
		collapsed: m.g.IsHidden(n.OriginalID),
	}
	if row.name == "" {
		row.name = n.Label
	}
	pos := len(m.rows)
	m.rows = append(m.rows, row)

	if row.collapsed {
		return 0
	}

	tips := 0
	for i, nb := range n.Neighbours {
		if nb == cameFrom {
			continue
		}
		tips += m.addRows(nb, idx, n.EdgeLengths[i], depth+1)
	}

	if tips == 0 {
		m.rows[pos].tip = true
		tips = 1
	}
	m.rows[pos].tips = tips
	return tips
}

func (m treeModel) View() string {
	var b strings.Builder

	title := m.source
	if m.viewRoot != phylo.EntireTree {
		title = fmt.Sprintf("%s (subtree %d)", m.source, m.viewRoot)
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ move  ⏎ drill in  esc back  space collapse  r/R rotate  t reroot  m midpoint  o/O order  s save  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.rows) {
		end = len(m.rows)
	}

	for i := m.offset; i < end; i++ {
		row := m.rows[i]

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		name := row.name
		if name == "" {
			name = fmt.Sprintf("node %d", row.id)
		}

		marker := ""
		switch {
		case row.collapsed:
			marker = " " + StyleWarning.Render("[+]")
		case !row.tip:
			marker = listDimStyle.Render(fmt.Sprintf(" (%d tips)", row.tips))
		}

		line := cursor + strings.Repeat("  ", row.depth) + name
		if i == m.cursor {
			line = listSelectedStyle.Render(line)
		} else if row.tip {
			line = listNormalStyle.Render(line)
		} else {
			line = listDimStyle.Render(line)
		}

		b.WriteString(line)
		b.WriteString(marker)
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  :%.4g", row.length)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(listDimStyle.Render("  " + m.status))
	} else {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.rows))))
	}

	return b.String()
}
