package engine

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// IsLegalMove reports whether piece, presumed standing on from, may move
// to to on board. With enforceKingSafety the move is additionally
// simulated on a clone and rejected when it would leave the mover's own
// king in check. Attack-set scans call this with enforceKingSafety
// false, which also disables castling; castling legality itself depends
// on attack sets and would otherwise recurse without bound.
func IsLegalMove(piece Piece, from, to Square, board *Board, enforceKingSafety bool) bool {
	if board == nil || !from.InBounds() || !to.InBounds() || from == to {
		return false
	}
	if dst := board.At(to); dst != nil && dst.Color == piece.Color {
		return false
	}

	if !shapeLegal(piece, from, to, board, enforceKingSafety) {
		return false
	}

	if enforceKingSafety {
		sim := board.Clone()
		sim.apply(from, to)
		if IsKingInCheck(sim, piece.Color) {
			return false
		}
	}
	return true
}

func shapeLegal(piece Piece, from, to Square, board *Board, allowCastle bool) bool {
	dr := abs(to.Row - from.Row)
	dc := abs(to.Col - from.Col)

	switch piece.Kind {
	case Pawn:
		return pawnShapeLegal(piece, from, to, board)
	case Knight:
		return (dr == 1 && dc == 2) || (dr == 2 && dc == 1)
	case Bishop:
		return dr == dc && pathClear(board, from, to)
	case Rook:
		return (dr == 0) != (dc == 0) && pathClear(board, from, to)
	case Queen:
		if dr == dc || (dr == 0) != (dc == 0) {
			return pathClear(board, from, to)
		}
		return false
	case King:
		if dr <= 1 && dc <= 1 {
			return true
		}
		if allowCastle && dr == 0 && dc == 2 {
			return castleLegal(piece, from, to, board)
		}
		return false
	default:
		return false
	}
}

func pawnShapeLegal(piece Piece, from, to Square, board *Board) bool {
	dir := 1 // black advances toward row 7
	if piece.Color == White {
		dir = -1
	}
	dc := abs(to.Col - from.Col)
	dst := board.At(to)

	// single step forward onto an empty square
	if dc == 0 && to.Row == from.Row+dir {
		return dst == nil
	}
	// double step: only from the start square, both squares empty
	if dc == 0 && to.Row == from.Row+2*dir && !piece.HasMoved {
		mid := Square{Row: from.Row + dir, Col: from.Col}
		return board.At(mid) == nil && dst == nil
	}
	// diagonal capture requires an enemy on the destination
	if dc == 1 && to.Row == from.Row+dir {
		return dst != nil && dst.Color != piece.Color
	}
	return false
}

// pathClear reports whether every square strictly between from and to
// is empty. from and to must share a rank, file or diagonal.
func pathClear(board *Board, from, to Square) bool {
	stepR := sign(to.Row - from.Row)
	stepC := sign(to.Col - from.Col)
	cur := Square{Row: from.Row + stepR, Col: from.Col + stepC}
	for cur != to {
		if board.At(cur) != nil {
			return false
		}
		cur.Row += stepR
		cur.Col += stepC
	}
	return true
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

// castleLegal checks the compound two-column king move: king and rook
// unmoved, the squares between them empty, and the king neither in
// check now nor crossing or landing on an attacked square.
func castleLegal(king Piece, from, to Square, board *Board) bool {
	if king.HasMoved || to.Row != from.Row {
		return false
	}

	rookCol := 7 // kingside
	if to.Col < from.Col {
		rookCol = 0
	}
	rookSq := Square{Row: from.Row, Col: rookCol}
	rook := board.At(rookSq)
	if rook == nil || rook.Kind != Rook || rook.Color != king.Color || rook.HasMoved {
		return false
	}

	step := sign(rookCol - from.Col)
	for c := from.Col + step; c != rookCol; c += step {
		if board.At(Square{Row: from.Row, Col: c}) != nil {
			return false
		}
	}

	enemy := king.Color.Opponent()
	if IsSquareAttacked(from, board, enemy) {
		return false
	}
	kingStep := sign(to.Col - from.Col)
	for c := from.Col + kingStep; ; c += kingStep {
		if IsSquareAttacked(Square{Row: from.Row, Col: c}, board, enemy) {
			return false
		}
		if c == to.Col {
			break
		}
	}
	return true
}

// IsSquareAttacked reports whether any piece of byColor can reach sq.
// King safety is deliberately not enforced here: a pinned piece still
// gives check.
func IsSquareAttacked(sq Square, board *Board, byColor Color) bool {
	for _, from := range board.Squares(byColor) {
		p := board.At(from)
		if p == nil {
			continue
		}
		if IsLegalMove(*p, from, sq, board, false) {
			return true
		}
	}
	return false
}

// IsKingInCheck reports whether color's king square is attacked. A
// missing king never occurs in play (kings are never captured); the
// scan degrades to "no check" rather than guessing.
func IsKingInCheck(board *Board, color Color) bool {
	kingSq, ok := board.FindKing(color)
	if !ok {
		return false
	}
	return IsSquareAttacked(kingSq, board, color.Opponent())
}

// LegalDestinations lists every square the piece on from may legally
// move to, king safety enforced. Empty when from is empty.
func LegalDestinations(board *Board, from Square) []Square {
	p := board.At(from)
	if p == nil {
		return nil
	}
	var out []Square
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			to := Square{Row: r, Col: f}
			if IsLegalMove(*p, from, to, board, true) {
				out = append(out, to)
			}
		}
	}
	return out
}
