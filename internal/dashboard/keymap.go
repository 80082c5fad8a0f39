package dashboard

const (
	keyQuit        = "q"
	keyCtrlC       = "ctrl+c"
	keyClockIn     = "i"
	keyClockOut    = "o"
	keyNormalBreak = "b"
	keyOfficeBreak = "B"
	keyEndBreak    = "e"
	keyResume      = "r"
)
