package session

import (
	"math/rand"
	"testing"
	"time"

	"github.com/SahilKashid/FlashcardLM/internal/spaced_repetition"
	"github.com/SahilKashid/FlashcardLM/pkg/models"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

type fakeCardStore struct {
	updates   []models.Card
	deletions []int64
}

func (s *fakeCardStore) RequestCardUpdate(card models.Card) error {
	s.updates = append(s.updates, card)
	return nil
}

func (s *fakeCardStore) RequestCardDeletion(cardID int64) error {
	s.deletions = append(s.deletions, cardID)
	return nil
}

type fakeProgressStore struct {
	saved  map[string]models.SessionProgress
	clears int
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{saved: make(map[string]models.SessionProgress)}
}

func (s *fakeProgressStore) LoadProgress(key string) (models.SessionProgress, bool) {
	p, ok := s.saved[key]
	return p, ok
}

func (s *fakeProgressStore) SaveProgress(key string, p models.SessionProgress) error {
	s.saved[key] = p
	return nil
}

func (s *fakeProgressStore) ClearProgress(key string) error {
	delete(s.saved, key)
	s.clears++
	return nil
}

// card builds a test card due `dueOffset` days from now, created `id`
// minutes after a base time so creation order follows IDs.
func card(id int64, dueOffsetDays int) models.Card {
	return models.Card{
		ID:     id,
		DeckID: 1,
		Type:   models.CardTypeBasic,
		Front:  "front",
		Back:   "back",
		ScheduleState: models.ScheduleState{
			Interval:       1,
			Repetitions:    1,
			EasinessFactor: 2.5,
			DueAt:          now.AddDate(0, 0, dueOffsetDays),
		},
		CreatedAt: now.Add(time.Duration(id) * time.Minute).AddDate(0, -1, 0),
	}
}

func occlusionCard(id int64, rects ...int64) models.Card {
	c := card(id, 0)
	c.Type = models.CardTypeImageOcclusion
	c.ImagePath = "anatomy.png"
	for _, r := range rects {
		c.Occlusions = append(c.Occlusions, models.OcclusionRect{ID: r, X: 1, Y: 1, Width: 10, Height: 10})
	}
	return c
}

func newEngine(t *testing.T) (*Engine, *fakeCardStore, *fakeProgressStore) {
	t.Helper()
	store := &fakeCardStore{}
	progress := newFakeProgressStore()
	e := New("1:standard", store, progress, WithClock(fixedClock), WithRand(rand.New(rand.NewSource(42))))
	return e, store, progress
}

func queueIDs(e *Engine) []int64 {
	ids := make([]int64, 0, e.Len())
	for i := range e.queue {
		ids = append(ids, e.queue[i].ID)
	}
	return ids
}

func TestStandardModeFiltersDueCards(t *testing.T) {
	cards := []models.Card{card(1, -3), card(2, 5), card(3, 0), card(4, 2), card(5, 9)}

	e, _, _ := newEngine(t)
	e.Initialize(cards, ModeStandard)
	if e.Len() != 2 {
		t.Fatalf("standard queue len = %d, want 2", e.Len())
	}

	e2, _, _ := newEngine(t)
	e2.Initialize(cards, ModeCram)
	if e2.Len() != 5 {
		t.Fatalf("cram queue len = %d, want 5", e2.Len())
	}
}

func TestFreshQueueSortedByCreation(t *testing.T) {
	// Shuffled input order; the queue must come out creation-ascending.
	cards := []models.Card{card(3, 0), card(1, 0), card(5, 0), card(2, 0), card(4, 0)}

	e, _, _ := newEngine(t)
	e.Initialize(cards, ModeCram)

	ids := queueIDs(e)
	for i, want := range []int64{1, 2, 3, 4, 5} {
		if ids[i] != want {
			t.Fatalf("queue order = %v, want ascending by creation", ids)
		}
	}
}

func TestDeckEmptyVersusNothingDue(t *testing.T) {
	e, _, _ := newEngine(t)
	e.Initialize(nil, ModeStandard)
	if !e.DeckEmpty() {
		t.Fatal("empty deck not reported as DeckEmpty")
	}
	if e.NothingDue() {
		t.Fatal("empty deck misreported as NothingDue")
	}

	e2, _, _ := newEngine(t)
	e2.Initialize([]models.Card{card(1, 4)}, ModeStandard)
	if e2.DeckEmpty() {
		t.Fatal("deck with cards misreported as DeckEmpty")
	}
	if !e2.NothingDue() {
		t.Fatal("no due cards not reported as NothingDue")
	}
}

func TestResumeRoundTrip(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0), card(3, 0), card(4, 0)}
	store := &fakeCardStore{}
	progress := newFakeProgressStore()

	e := New("1:cram", store, progress, WithClock(fixedClock), WithRand(rand.New(rand.NewSource(7))))
	e.Initialize(cards, ModeCram)
	e.Advance(Next)
	e.Advance(Next)
	wantOrder := queueIDs(e)

	restored := New("1:cram", store, progress, WithClock(fixedClock))
	restored.Initialize(cards, ModeCram)
	if restored.Position() != 2 {
		t.Fatalf("restored position = %d, want 2", restored.Position())
	}
	gotOrder := queueIDs(restored)
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("restored order = %v, want %v", gotOrder, wantOrder)
		}
	}
}

func TestResumeRestoresShuffleFlag(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0), card(3, 0), card(4, 0), card(5, 0)}
	store := &fakeCardStore{}
	progress := newFakeProgressStore()

	e := New("1:cram", store, progress, WithClock(fixedClock), WithRand(rand.New(rand.NewSource(3))))
	e.Initialize(cards, ModeCram)
	e.SetShuffle(true)
	wantOrder := queueIDs(e)

	restored := New("1:cram", store, progress, WithClock(fixedClock))
	restored.Initialize(cards, ModeCram)
	if !restored.Shuffled() {
		t.Fatal("shuffle flag not restored")
	}
	gotOrder := queueIDs(restored)
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("restored order = %v, want %v", gotOrder, wantOrder)
		}
	}
}

func TestResumeDiscardedWhenCardMissing(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0), card(3, 0)}
	store := &fakeCardStore{}
	progress := newFakeProgressStore()
	progress.saved["1:cram"] = models.SessionProgress{CardIDs: []int64{1, 99, 3}, Position: 1}

	e := New("1:cram", store, progress, WithClock(fixedClock))
	e.Initialize(cards, ModeCram)

	if e.Len() != 3 || e.Position() != 0 {
		t.Fatalf("expected fresh build, got len=%d position=%d", e.Len(), e.Position())
	}
	ids := queueIDs(e)
	if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("fresh order = %v", ids)
	}
}

func TestResumeDiscardedWhenPositionOutOfRange(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0)}
	store := &fakeCardStore{}
	progress := newFakeProgressStore()
	// Position equal to the queue length is out of range, not clamped.
	progress.saved["1:cram"] = models.SessionProgress{CardIDs: []int64{1, 2}, Position: 2}

	e := New("1:cram", store, progress, WithClock(fixedClock))
	e.Initialize(cards, ModeCram)
	if e.Position() != 0 {
		t.Fatalf("expected fresh build at position 0, got %d", e.Position())
	}
}

func TestSetShuffleKeepsCurrentCard(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0), card(3, 0), card(4, 0), card(5, 0)}
	e, _, _ := newEngine(t)
	e.Initialize(cards, ModeCram)
	e.Advance(Next)
	e.Advance(Next)
	current, _ := e.Current()

	e.SetShuffle(true)
	after, ok := e.Current()
	if !ok || after.ID != current.ID {
		t.Fatalf("current card changed across shuffle: had %d, got %d", current.ID, after.ID)
	}

	e.SetShuffle(false)
	after, ok = e.Current()
	if !ok || after.ID != current.ID {
		t.Fatalf("current card changed across unshuffle: had %d, got %d", current.ID, after.ID)
	}
}

func TestUnshuffleIsIdempotent(t *testing.T) {
	cards := []models.Card{card(2, 0), card(4, 0), card(1, 0), card(3, 0)}
	e, _, _ := newEngine(t)
	e.Initialize(cards, ModeCram)
	freshOrder := queueIDs(e)

	e.SetShuffle(true)
	e.SetShuffle(false)
	first := queueIDs(e)
	e.SetShuffle(false)
	second := queueIDs(e)

	for i := range freshOrder {
		if first[i] != freshOrder[i] || second[i] != freshOrder[i] {
			t.Fatalf("unshuffle order drifted: fresh=%v first=%v second=%v", freshOrder, first, second)
		}
	}
}

func TestAdvanceClampsAtBounds(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0)}
	e, _, _ := newEngine(t)
	e.Initialize(cards, ModeCram)

	e.Advance(Previous)
	if e.Position() != 0 {
		t.Fatalf("position after Previous at start = %d, want 0", e.Position())
	}
	e.Advance(Next)
	e.Advance(Next)
	e.Advance(Next)
	if e.Position() != 1 {
		t.Fatalf("position after Next past end = %d, want 1", e.Position())
	}
}

func TestAdvanceResetsReveal(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0)}
	e, _, _ := newEngine(t)
	e.Initialize(cards, ModeCram)

	e.Reveal()
	if !e.Revealed() {
		t.Fatal("card not revealed")
	}
	e.Advance(Next)
	if e.Revealed() {
		t.Fatal("reveal state survived an advance")
	}

	// Boundary no-op must not clear reveal state.
	e.Reveal()
	e.Advance(Next)
	if !e.Revealed() {
		t.Fatal("boundary no-op cleared reveal state")
	}
}

func TestJumpToMapsFractionToIndex(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0), card(3, 0), card(4, 0), card(5, 0)}
	tests := []struct {
		fraction float64
		want     int
	}{
		{0, 0},
		{0.24, 0},
		{0.25, 1},
		{0.5, 2},
		{0.99, 3},
		{1, 4},
		{-0.5, 0}, // clamped
		{1.7, 4},  // clamped
	}
	for _, tt := range tests {
		e, _, _ := newEngine(t)
		e.Initialize(cards, ModeCram)
		e.JumpTo(tt.fraction)
		if e.Position() != tt.want {
			t.Errorf("JumpTo(%v) position = %d, want %d", tt.fraction, e.Position(), tt.want)
		}
	}
}

func TestRevealShowsAllOcclusionRects(t *testing.T) {
	e, _, _ := newEngine(t)
	e.Initialize([]models.Card{occlusionCard(1, 10, 11, 12)}, ModeCram)

	e.Reveal()
	for _, rect := range []int64{10, 11, 12} {
		if !e.RegionShown(rect) {
			t.Fatalf("rect %d not shown after Reveal", rect)
		}
	}
}

func TestRevealRegionShowsSingleRect(t *testing.T) {
	e, _, _ := newEngine(t)
	e.Initialize([]models.Card{occlusionCard(1, 10, 11)}, ModeCram)

	e.RevealRegion(10)
	if !e.RegionShown(10) {
		t.Fatal("rect 10 not shown")
	}
	if e.RegionShown(11) {
		t.Fatal("rect 11 shown without being revealed")
	}
	if e.Revealed() {
		t.Fatal("revealing one region must not reveal the card")
	}

	// Unknown rect and non-occlusion cards are ignored.
	e.RevealRegion(99)
	if e.RegionShown(99) {
		t.Fatal("unknown rect marked shown")
	}
}

func TestGradeRequiresReveal(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0)}
	e, store, _ := newEngine(t)
	e.Initialize(cards, ModeCram)

	if completed := e.Grade(spaced_repetition.QualityGood); completed {
		t.Fatal("grading an unrevealed card reported completion")
	}
	if len(store.updates) != 0 {
		t.Fatal("grading an unrevealed card emitted an update")
	}
	if e.Position() != 0 {
		t.Fatal("grading an unrevealed card moved the position")
	}
}

func TestGradeUpdatesScheduleAndAdvances(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0)}
	e, store, _ := newEngine(t)
	e.Initialize(cards, ModeCram)

	e.Reveal()
	completed := e.Grade(spaced_repetition.QualityGood)
	if completed {
		t.Fatal("mid-queue grade reported completion")
	}
	if e.Position() != 1 {
		t.Fatalf("position after grade = %d, want 1", e.Position())
	}
	if e.Revealed() {
		t.Fatal("reveal state survived a grade")
	}
	if len(store.updates) != 1 {
		t.Fatalf("updates emitted = %d, want 1", len(store.updates))
	}
	updated := store.updates[0]
	want := spaced_repetition.ComputeNextSchedule(cards[0].ScheduleState, spaced_repetition.QualityGood, now)
	if updated.ScheduleState != want {
		t.Fatalf("emitted schedule = %+v, want %+v", updated.ScheduleState, want)
	}
}

func TestGradeLastCardCompletesOnce(t *testing.T) {
	e, store, progress := newEngine(t)
	e.Initialize([]models.Card{card(1, 0)}, ModeCram)

	e.Reveal()
	if completed := e.Grade(spaced_repetition.QualityEasy); !completed {
		t.Fatal("grading the last card did not report completion")
	}
	if _, ok := progress.saved["1:standard"]; ok {
		t.Fatal("persisted progress not cleared on completion")
	}
	if progress.clears != 1 {
		t.Fatalf("progress cleared %d times, want 1", progress.clears)
	}
	if !e.Exhausted() {
		t.Fatal("session not exhausted after completing the queue")
	}

	// Completion is signaled exactly once; further input is a no-op.
	e.Reveal()
	if completed := e.Grade(spaced_repetition.QualityEasy); completed {
		t.Fatal("completion signaled twice")
	}
	if len(store.updates) != 1 {
		t.Fatalf("updates after exhausted grade = %d, want 1", len(store.updates))
	}
}

func TestExhaustedSessionStaysCleared(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0)}
	e, store, progress := newEngine(t)
	e.Initialize(cards, ModeCram)

	e.Reveal()
	e.Grade(spaced_repetition.QualityGood)
	e.Reveal()
	if completed := e.Grade(spaced_repetition.QualityGood); !completed {
		t.Fatal("grading the last card did not report completion")
	}
	if _, ok := progress.saved["1:standard"]; ok {
		t.Fatal("progress not cleared on completion")
	}

	// Stale keyboard taps can still reach every mutator after completion;
	// none of them may move the position or write a new snapshot.
	e.Advance(Previous)
	e.JumpTo(0)
	e.SetShuffle(true)
	e.Delete()

	if snap, ok := progress.saved["1:standard"]; ok {
		t.Fatalf("cleared progress resurrected after completion: %+v", snap)
	}
	if e.Position() != 1 {
		t.Fatalf("position moved on exhausted session: %d", e.Position())
	}
	if e.Shuffled() {
		t.Fatal("shuffle flag changed on exhausted session")
	}
	if len(store.deletions) != 0 {
		t.Fatalf("deletions emitted on exhausted session: %v", store.deletions)
	}
}

func TestDeleteMiddleCard(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0), card(3, 0)}
	e, store, _ := newEngine(t)
	e.Initialize(cards, ModeCram)
	e.Advance(Next)

	e.Delete()
	if len(store.deletions) != 1 || store.deletions[0] != 2 {
		t.Fatalf("deletions = %v, want [2]", store.deletions)
	}
	if e.Len() != 2 {
		t.Fatalf("queue len after delete = %d, want 2", e.Len())
	}
	current, ok := e.Current()
	if !ok || current.ID != 3 {
		t.Fatalf("current after middle delete = %d, want the previously-next card 3", current.ID)
	}
}

func TestDeleteLastPositionClamps(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0)}
	e, _, _ := newEngine(t)
	e.Initialize(cards, ModeCram)
	e.Advance(Next)

	e.Delete()
	if e.Position() != 0 {
		t.Fatalf("position after deleting the tail = %d, want 0", e.Position())
	}
	current, ok := e.Current()
	if !ok || current.ID != 1 {
		t.Fatalf("current after tail delete = %d, want 1", current.ID)
	}
}

func TestDeleteOnlyCardIsTerminal(t *testing.T) {
	e, _, progress := newEngine(t)
	e.Initialize([]models.Card{card(1, 0)}, ModeCram)

	e.Delete()
	if e.Len() != 0 {
		t.Fatalf("queue len = %d, want 0", e.Len())
	}
	if !e.Exhausted() {
		t.Fatal("empty queue after delete not terminal")
	}
	if _, ok := progress.saved["1:standard"]; ok {
		t.Fatal("progress not cleared when the queue emptied")
	}

	// Terminal state: everything is a no-op, nothing panics.
	e.Reveal()
	e.Advance(Next)
	e.Delete()
	e.Grade(spaced_repetition.QualityGood)
}

func TestReconcileRefreshesContentInPlace(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0), card(3, 0)}
	e, _, _ := newEngine(t)
	e.Initialize(cards, ModeCram)
	e.Advance(Next)

	edited := card(2, 0)
	edited.Front = "edited front"
	// Card 1 removed externally, card 9 added externally.
	e.Reconcile([]models.Card{edited, card(3, 0), card(9, 0)})

	if e.Len() != 3 {
		t.Fatalf("reconcile changed membership: len = %d, want 3", e.Len())
	}
	if e.Position() != 1 {
		t.Fatalf("reconcile moved position to %d", e.Position())
	}
	current, _ := e.Current()
	if current.Front != "edited front" {
		t.Fatalf("queued card content not refreshed: %q", current.Front)
	}
	ids := queueIDs(e)
	if ids[0] != 1 {
		t.Fatal("externally removed card was purged from the queue")
	}
	for _, id := range ids {
		if id == 9 {
			t.Fatal("externally added card was spliced into the queue")
		}
	}
}

func TestRestartForcesFreshBuild(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0), card(3, 0)}
	store := &fakeCardStore{}
	progress := newFakeProgressStore()

	e := New("1:cram", store, progress, WithClock(fixedClock))
	e.Initialize(cards, ModeCram)
	e.Advance(Next)
	if _, ok := progress.saved["1:cram"]; !ok {
		t.Fatal("progress not persisted while active")
	}

	e.Restart()
	if _, ok := progress.saved["1:cram"]; ok {
		t.Fatal("restart did not clear persisted progress")
	}

	e.Initialize(cards, ModeCram)
	if e.Position() != 0 {
		t.Fatalf("initialize after restart resumed at %d, want fresh build", e.Position())
	}
}

func TestProgressPersistedOnPositionChanges(t *testing.T) {
	cards := []models.Card{card(1, 0), card(2, 0), card(3, 0)}
	e, _, progress := newEngine(t)
	e.Initialize(cards, ModeCram)

	e.Advance(Next)
	snap := progress.saved["1:standard"]
	if snap.Position != 1 {
		t.Fatalf("persisted position = %d, want 1", snap.Position)
	}

	e.SetShuffle(true)
	snap = progress.saved["1:standard"]
	if !snap.Shuffled {
		t.Fatal("persisted snapshot missing shuffle flag")
	}
	if len(snap.CardIDs) != 3 {
		t.Fatalf("persisted queue len = %d, want 3", len(snap.CardIDs))
	}
}
