package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	taglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 2)
)

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render("📈 StockAgent "+Version))
	fmt.Fprintln(w, taglineStyle.Render("Ask about a ticker (AAPL, $TSLA) or ask any question."))
	fmt.Fprintln(w, taglineStyle.Render("Type /help for commands."))
	fmt.Fprintln(w)
}

const sessionHelp = `/history   show saved queries
/save      save the last query
/clear     clear saved queries
/help      show this help
/exit      leave the session

Anything else is a query. Tickers may be written as AAPL or $aapl.`

func displayHelp(w io.Writer) {
	fmt.Fprintln(w, helpStyle.Render(sessionHelp))
}
