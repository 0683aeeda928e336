package engine

// HasAnyLegalMove reports whether color has at least one legal move
// anywhere on the board. It is the basis of checkmate and stalemate
// detection and short-circuits on the first hit; the exhaustive 64x64
// probe is fine at board-game scale.
func HasAnyLegalMove(board *Board, color Color) bool {
	for _, from := range board.Squares(color) {
		p := board.At(from)
		if p == nil {
			continue
		}
		for r := 0; r < 8; r++ {
			for f := 0; f < 8; f++ {
				if IsLegalMove(*p, from, Square{Row: r, Col: f}, board, true) {
					return true
				}
			}
		}
	}
	return false
}
