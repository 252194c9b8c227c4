package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"

	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	negativeStyle = cellStyle.Foreground(lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F87"})
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// ErrConfirmationRequired is returned when a destructive command cannot ask.
var ErrConfirmationRequired = errors.New("stdin is not a terminal, pass --yes to confirm")

// ErrAborted is returned when the user declines a confirmation.
var ErrAborted = errors.New("aborted")

func printSuccess(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", successStyle.Render(successSymbol), fmt.Sprintf(format, args...))
}

func printInfo(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", infoStyle.Render(infoSymbol), fmt.Sprintf(format, args...))
}

// PrintError writes a styled error line.
func PrintError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "%s %s\n", errorStyle.Render(errorSymbol), errorStyle.Render(err.Error()))
}

// money renders an amount with two decimals.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// renderTable draws rows under headers. Columns listed in numeric are right
// aligned and turn red when negative.
func renderTable(w io.Writer, headers []string, rows [][]string, numeric ...int) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("(none)"))
		return
	}
	isNumeric := map[int]bool{}
	for _, c := range numeric {
		isNumeric[c] = true
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			style := cellStyle
			if isNumeric[col] {
				style = style.Align(lipgloss.Right)
				if row >= 0 && row < len(rows) && len(rows[row][col]) > 0 && rows[row][col][0] == '-' {
					style = negativeStyle.Align(lipgloss.Right)
				}
			}
			return style
		})
	_, _ = fmt.Fprintln(w, t.Render())
}

// terminalConfirm asks with a huh form when stdin is a terminal.
func terminalConfirm(question string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, ErrConfirmationRequired
	}

	var confirm bool
	form := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		WithButtonAlignment(lipgloss.Left).
		Value(&confirm)

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	return confirm, nil
}
