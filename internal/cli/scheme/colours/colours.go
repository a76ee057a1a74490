package colours

import "github.com/fatih/color"

// Color scheme for the CLI
var (
	Title   = color.New(color.FgCyan, color.Bold)
	Meta    = color.New(color.FgMagenta)
	Keyword = color.New(color.FgHiYellow, color.Italic)
	Prompt  = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Success = color.New(color.FgGreen)
	Info    = color.New(color.FgBlue)
	Warning = color.New(color.FgYellow)
	Notice  = color.New(color.FgBlack, color.BgYellow)
	Faint   = color.New(color.Faint)
)
