package logger

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
)

func getDefaultStyles() *charmlog.Styles {
	styles := charmlog.DefaultStyles()
	levelStyle := func(level charmlog.Level, color string) lipgloss.Style {
		return lipgloss.NewStyle().
			SetString(strings.ToUpper(level.String())).
			Bold(true).
			MaxWidth(5).
			Foreground(lipgloss.Color(color))
	}
	styles.Levels[charmlog.DebugLevel] = levelStyle(charmlog.DebugLevel, "63")
	styles.Levels[charmlog.InfoLevel] = levelStyle(charmlog.InfoLevel, "86")
	styles.Levels[charmlog.WarnLevel] = levelStyle(charmlog.WarnLevel, "192")
	styles.Levels[charmlog.ErrorLevel] = levelStyle(charmlog.ErrorLevel, "204")
	styles.Keys["error"] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	styles.Values["error"] = lipgloss.NewStyle().Bold(true)
	return styles
}
