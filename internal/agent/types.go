// Package agent coordinates the external opponent: it serializes the
// position, requests a move proposal over HTTP and renegotiates until a
// legal move is obtained, within a bounded number of attempts.
package agent

// ProposalRequest is the wire payload sent to the opponent service.
// BoardJSON maps every one of the 64 algebraic squares to a piece code
// ("wP", "bK", ...) or "empty"; History holds "from-to" pairs in play
// order.
type ProposalRequest struct {
	BoardJSON          map[string]string `json:"boardJson"`
	History            []string          `json:"history"`
	IllegalMoveAttempt *IllegalAttempt   `json:"illegalMoveAttempt,omitempty"`
}

// IllegalAttempt is attached on retries after a rejected proposal. Error
// carries the human-readable reason; ValidMoves lists the legal
// destinations for the piece standing on From, empty when there are
// none.
type IllegalAttempt struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Error      string   `json:"error"`
	ValidMoves []string `json:"validMoves"`
}

// ProposalResponse is the opponent's answer.
type ProposalResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
}
