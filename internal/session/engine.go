// Package session implements the review-session engine: it builds a queue
// of cards for a study pass, tracks the current position and reveal state,
// grades cards through the SM-2 scheduler, and persists a resumable
// progress snapshot after every queue- or position-affecting operation.
//
// The engine owns only transient session state. Cards belong to the
// external store and are modified exclusively through the CardStore
// callbacks; progress snapshots belong to the ProgressStore and are keyed
// by an opaque session key derived by the caller.
package session

import (
	"log"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/SahilKashid/FlashcardLM/internal/spaced_repetition"
	"github.com/SahilKashid/FlashcardLM/pkg/models"
)

// Mode selects which cards a fresh queue is built from
type Mode string

const (
	// ModeStandard reviews only cards that are due
	ModeStandard Mode = "standard"
	// ModeCram reviews every card in the deck regardless of due date
	ModeCram Mode = "cram"
)

// Direction of an Advance call
type Direction int

const (
	// Next moves one card forward
	Next Direction = 1
	// Previous moves one card back
	Previous Direction = -1
)

// CardStore is the engine's one-way channel for requesting card mutations.
// Delivery is the collaborator's responsibility; the engine logs and
// otherwise ignores errors.
type CardStore interface {
	RequestCardUpdate(card models.Card) error
	RequestCardDeletion(cardID int64) error
}

// ProgressStore persists resumable session snapshots keyed by an opaque
// session key.
type ProgressStore interface {
	LoadProgress(key string) (models.SessionProgress, bool)
	SaveProgress(key string, progress models.SessionProgress) error
	ClearProgress(key string) error
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the engine's notion of "now"; tests use this to make
// due-filtering and grading deterministic.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand replaces the shuffle source so tests can supply a fixed seed.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// Engine is the stateful session controller. All operations are serialized
// by an internal mutex; none of them block.
type Engine struct {
	mu       sync.Mutex
	key      string
	store    CardStore
	progress ProgressStore
	now      func() time.Time
	rng      *rand.Rand

	initialized bool
	mode        Mode
	deckSize    int // cards handed to Initialize, before due-filtering
	queue       []models.Card
	position    int
	shuffled    bool
	exhausted   bool

	revealed   bool
	shownRects map[int64]bool // revealed occlusion rects on the current card
}

// New creates an engine bound to a session key and its collaborators.
// The engine is uninitialized until Initialize is called.
func New(key string, store CardStore, progress ProgressStore, opts ...Option) *Engine {
	e := &Engine{
		key:      key,
		store:    store,
		progress: progress,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize builds the review queue from the deck's cards. If a stored
// progress snapshot exists, every referenced card still resolves, and the
// stored position is within bounds, the previous queue order, position and
// shuffle flag are restored. Anything less is treated as stale and
// discarded in favor of a fresh build — never surfaced as an error, since
// it is the expected result of editing between sessions.
//
// A fresh standard-mode queue contains only due cards sorted by creation
// time ascending; cram mode takes the whole deck. An empty queue is a valid
// terminal state, not an error.
func (e *Engine) Initialize(cards []models.Card, mode Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.initialized = true
	e.mode = mode
	e.deckSize = len(cards)
	e.resetReveal()

	if e.resume(cards) {
		e.exhausted = len(e.queue) == 0
		return
	}

	e.queue = freshQueue(cards, mode, e.now())
	e.position = 0
	e.shuffled = false
	e.exhausted = len(e.queue) == 0
	if !e.exhausted {
		e.persist()
	}
}

// resume attempts to restore the queue from a stored snapshot. Returns
// false if no snapshot exists or it no longer matches the card set.
func (e *Engine) resume(cards []models.Card) bool {
	snapshot, ok := e.progress.LoadProgress(e.key)
	if !ok {
		return false
	}
	if len(snapshot.CardIDs) == 0 || snapshot.Position < 0 || snapshot.Position >= len(snapshot.CardIDs) {
		e.clearProgress()
		return false
	}

	byID := make(map[int64]models.Card, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	queue := make([]models.Card, 0, len(snapshot.CardIDs))
	for _, id := range snapshot.CardIDs {
		card, found := byID[id]
		if !found {
			// A referenced card was deleted since the snapshot was taken;
			// a stale resume point after deletions is ambiguous, so the
			// whole snapshot is discarded.
			e.clearProgress()
			return false
		}
		queue = append(queue, card)
	}

	e.queue = queue
	e.position = snapshot.Position
	e.shuffled = snapshot.Shuffled
	return true
}

// freshQueue selects and orders cards for a new session.
func freshQueue(cards []models.Card, mode Mode, now time.Time) []models.Card {
	queue := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		if mode == ModeStandard && !c.IsDue(now) {
			continue
		}
		queue = append(queue, c)
	}
	sortByCreation(queue)
	return queue
}

func sortByCreation(cards []models.Card) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].ID < cards[j].ID
		}
		return cards[i].CreatedAt.Before(cards[j].CreatedAt)
	})
}

// Reconcile refreshes the content of queued cards after the external store
// changed. Matching is by identity; queue order, position and membership
// are untouched. Cards that disappeared from the store stay queued — only
// an explicit Delete removes a queue entry.
func (e *Engine) Reconcile(cards []models.Card) {
	e.mu.Lock()
	defer e.mu.Unlock()

	byID := make(map[int64]models.Card, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}
	for i := range e.queue {
		if updated, ok := byID[e.queue[i].ID]; ok {
			e.queue[i] = updated
		}
	}
}

// SetShuffle toggles queue ordering. Enabling applies a Fisher-Yates
// permutation from the injected random source; disabling restores creation
// order. Whichever card was current stays current — its index is recomputed
// after reordering, falling back to 0 if it cannot be found. No-op once the
// session is exhausted: completion already cleared the stored snapshot and
// nothing may write a new one.
func (e *Engine) SetShuffle(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return
	}
	e.shuffled = enabled

	currentID := e.queue[e.position].ID
	if enabled {
		e.rng.Shuffle(len(e.queue), func(i, j int) {
			e.queue[i], e.queue[j] = e.queue[j], e.queue[i]
		})
	} else {
		sortByCreation(e.queue)
	}

	e.position = 0
	for i := range e.queue {
		if e.queue[i].ID == currentID {
			e.position = i
			break
		}
	}
	e.persist()
}

// Advance moves the position by one card, clamped to the queue bounds.
// Hitting either boundary is a no-op. An actual move resets the reveal
// sub-state.
func (e *Engine) Advance(dir Direction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return
	}
	next := clamp(e.position+int(dir), 0, len(e.queue)-1)
	if next == e.position {
		return
	}
	e.position = next
	e.resetReveal()
	e.persist()
}

// JumpTo seeks directly to a queue index from a fractional position in
// [0, 1], mapped as floor(fraction * (len-1)). Out-of-range fractions are
// clamped. Same reveal-reset behavior as Advance.
func (e *Engine) JumpTo(fraction float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	next := int(math.Floor(fraction * float64(len(e.queue)-1)))
	if next == e.position {
		return
	}
	e.position = next
	e.resetReveal()
	e.persist()
}

// Reveal shows the answer side of the current card. For image-occlusion
// cards a single reveal discloses every masked rectangle at once. No-op on
// an empty or exhausted session.
func (e *Engine) Reveal() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return
	}
	e.revealed = true
	card := e.queue[e.position]
	if card.Type == models.CardTypeImageOcclusion {
		for _, rect := range card.Occlusions {
			e.markRect(rect.ID)
		}
	}
}

// RevealRegion discloses a single masked rectangle on an image-occlusion
// card without revealing the rest. The card does not need to be revealed
// first.
func (e *Engine) RevealRegion(rectID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return
	}
	card := e.queue[e.position]
	if card.Type != models.CardTypeImageOcclusion {
		return
	}
	for _, rect := range card.Occlusions {
		if rect.ID == rectID {
			e.markRect(rectID)
			return
		}
	}
}

// Grade records a recall quality for the current card: the scheduler
// computes the new schedule, the update is emitted through the card store,
// and the session either advances or — when this was the last card —
// clears its persisted progress and reports completion. Grade is only
// valid on a revealed card; anywhere else it is a no-op, since rapid input
// can reach it.
func (e *Engine) Grade(quality spaced_repetition.Quality) (completed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() || !e.revealed {
		return false
	}

	card := &e.queue[e.position]
	card.ScheduleState = spaced_repetition.ComputeNextSchedule(card.ScheduleState, quality, e.now())
	if err := e.store.RequestCardUpdate(*card); err != nil {
		log.Printf("session %s: card update for %d failed: %v", e.key, card.ID, err)
	}

	if e.position == len(e.queue)-1 {
		e.exhausted = true
		e.resetReveal()
		e.clearProgress()
		return true
	}

	e.position++
	e.resetReveal()
	e.persist()
	return false
}

// Delete removes the current card from the session and requests its
// deletion from the external store. The position is clamped into the
// remaining bounds; deleting the only remaining card leaves the queue
// empty, which is normal completion.
func (e *Engine) Delete() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return
	}

	id := e.queue[e.position].ID
	if err := e.store.RequestCardDeletion(id); err != nil {
		log.Printf("session %s: card deletion for %d failed: %v", e.key, id, err)
	}

	e.queue = append(e.queue[:e.position], e.queue[e.position+1:]...)
	e.resetReveal()

	if len(e.queue) == 0 {
		e.position = 0
		e.exhausted = true
		e.clearProgress()
		return
	}
	if e.position >= len(e.queue) {
		e.position = len(e.queue) - 1
	}
	e.persist()
}

// Restart discards persisted progress and returns the engine to the
// uninitialized state, so the next Initialize performs a fresh build.
func (e *Engine) Restart() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.clearProgress()
	e.initialized = false
	e.mode = ""
	e.deckSize = 0
	e.queue = nil
	e.position = 0
	e.shuffled = false
	e.exhausted = false
	e.resetReveal()
}

// Current returns the card under review, or false when the queue is empty
// or the session is exhausted.
func (e *Engine) Current() (models.Card, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return models.Card{}, false
	}
	return e.queue[e.position], true
}

// Position returns the zero-based queue index.
func (e *Engine) Position() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// Len returns the number of cards remaining in the queue.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Shuffled reports whether shuffle ordering is enabled.
func (e *Engine) Shuffled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shuffled
}

// Revealed reports whether the current card's answer is shown.
func (e *Engine) Revealed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revealed
}

// RegionShown reports whether a specific occlusion rectangle on the
// current card has been disclosed.
func (e *Engine) RegionShown(rectID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shownRects[rectID]
}

// Exhausted reports whether the session has been completed.
func (e *Engine) Exhausted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exhausted
}

// DeckEmpty reports whether Initialize was given no cards at all — the
// "create your first card" case, as opposed to NothingDue.
func (e *Engine) DeckEmpty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized && e.deckSize == 0
}

// NothingDue reports whether the deck has cards but none were due when the
// standard-mode queue was built — the "you're caught up" case.
func (e *Engine) NothingDue() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized && e.mode == ModeStandard && e.deckSize > 0 && len(e.queue) == 0
}

// active reports whether there is a current card to operate on.
// Callers must hold the mutex.
func (e *Engine) active() bool {
	return e.initialized && !e.exhausted && len(e.queue) > 0
}

func (e *Engine) resetReveal() {
	e.revealed = false
	e.shownRects = nil
}

func (e *Engine) markRect(rectID int64) {
	if e.shownRects == nil {
		e.shownRects = make(map[int64]bool)
	}
	e.shownRects[rectID] = true
}

// persist emits the current snapshot to the progress store. Fire and
// forget: failures are logged, never propagated.
func (e *Engine) persist() {
	ids := make([]int64, len(e.queue))
	for i, c := range e.queue {
		ids[i] = c.ID
	}
	snapshot := models.SessionProgress{
		CardIDs:  ids,
		Position: e.position,
		Shuffled: e.shuffled,
	}
	if err := e.progress.SaveProgress(e.key, snapshot); err != nil {
		log.Printf("session %s: failed to save progress: %v", e.key, err)
	}
}

func (e *Engine) clearProgress() {
	if err := e.progress.ClearProgress(e.key); err != nil {
		log.Printf("session %s: failed to clear progress: %v", e.key, err)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
