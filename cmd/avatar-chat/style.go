package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-avatar/core/screenplay"
)

var (
	fuchsia = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}
	grey    = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	red     = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}

	keyword = lipgloss.NewStyle().Foreground(fuchsia).Render

	paragraph = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render

	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6C91BF")).Render
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(fuchsia).Render
	statusStyle    = lipgloss.NewStyle().Foreground(grey).Render
	errorStyle     = lipgloss.NewStyle().Foreground(red).Render

	expressionColors = map[screenplay.EmotionTag]lipgloss.Color{
		screenplay.EmotionNeutral: lipgloss.Color("#A0A0A0"),
		screenplay.EmotionHappy:   lipgloss.Color("#F2C94C"),
		screenplay.EmotionAngry:   lipgloss.Color("#EB5757"),
		screenplay.EmotionSad:     lipgloss.Color("#56CCF2"),
		screenplay.EmotionRelaxed: lipgloss.Color("#6FCF97"),
	}

	expressionFaces = map[screenplay.EmotionTag]string{
		screenplay.EmotionNeutral: "(-_-)",
		screenplay.EmotionHappy:   "(^_^)",
		screenplay.EmotionAngry:   "(>_<)",
		screenplay.EmotionSad:     "(;_;)",
		screenplay.EmotionRelaxed: "(~_~)",
	}
)

func renderExpression(tag screenplay.EmotionTag) string {
	face, ok := expressionFaces[tag]
	if !ok {
		face = expressionFaces[screenplay.EmotionNeutral]
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(expressionColors[tag]).
		Render(face + " " + string(tag))
}
