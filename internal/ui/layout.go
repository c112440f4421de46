package ui

// DetermineLayoutMode picks the layout for a terminal size. Wide layouts get
// the side panel with stats next to the journey path.
func DetermineLayoutMode(cols, rows int) LayoutMode {
	if cols < 60 || rows < 20 {
		return LayoutTooSmall
	}
	if cols >= 110 && rows >= 28 {
		return LayoutWide
	}
	return LayoutMedium
}
