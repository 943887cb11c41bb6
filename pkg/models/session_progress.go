package models

// SessionProgress is a resumable snapshot of a study session: the card
// identities that made up the queue, the current position, and the shuffle
// flag. It is persisted on every queue or position change and validated on
// load rather than trusted — referenced cards may have been deleted and the
// snapshot may come from an older revision.
type SessionProgress struct {
	CardIDs  []int64 `json:"card_ids"`
	Position int     `json:"position"`
	Shuffled bool    `json:"shuffled"`
}
