package asset

// SetDraw replaces the asset number source.
func (a *Assets) SetDraw(draw func() int) {
	a.draw = draw
}
