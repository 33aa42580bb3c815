// Package session owns the active listing, the bounded history and the
// generate/refine lifecycle. All state transitions go through the Manager so
// that non-UI callers cannot violate the at-most-one-in-flight invariant.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"snaplister/internal/category"
	"snaplister/internal/listing"
	"snaplister/internal/llm"
	"snaplister/internal/storage"
)

// HistoryLimit bounds the persisted history. Insertion is at the head;
// eviction from the tail.
const HistoryLimit = 10

// State is the manager's lifecycle state.
type State string

const (
	// StateIdle means no active listing and nothing in flight.
	StateIdle State = "idle"
	// StateLoading means a generation call is in flight.
	StateLoading State = "loading"
	// StateReady means a validated listing is active.
	StateReady State = "ready"
	// StateRefining means a refinement call is in flight while the previous
	// listing stays active.
	StateRefining State = "refining"
	// StateError means the last cycle failed. After a failed analyze the
	// active listing is cleared; after a failed refinement it is preserved.
	StateError State = "error"
)

// Manager orchestrates the generate -> validate -> commit -> refine cycle.
// Every listing reachable through the Manager has passed schema validation.
type Manager struct {
	mu        sync.Mutex
	generator llm.Generator
	store     storage.HistoryStore

	state   State
	active  *listing.Listing
	lastErr error
	history []*listing.Listing

	// generation tags in-flight calls; results whose tag is stale (a clear or
	// another commit happened meanwhile) are discarded.
	generation uint64
}

// NewManager creates a Manager and loads persisted history. A history load
// failure degrades to an empty history rather than blocking startup.
func NewManager(generator llm.Generator, store storage.HistoryStore) *Manager {
	m := &Manager{
		generator: generator,
		store:     store,
		state:     StateIdle,
	}
	history, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load listing history, starting empty")
	} else {
		if len(history) > HistoryLimit {
			history = history[:HistoryLimit]
		}
		m.history = history
	}
	return m
}

// newListingID returns a fresh time-derived listing id.
func newListingID() string {
	return fmt.Sprintf("listing-%d", time.Now().UnixMilli())
}

// Analyze runs one full generation cycle: build the request from images and
// category files, call the model, extract and repair the reply, validate it
// and commit the result. On any failure the active listing is cleared for a
// fresh analysis; history is untouched.
func (m *Manager) Analyze(ctx context.Context, images []llm.ImageInput, categoryFiles []string) (*listing.Listing, error) {
	if len(images) == 0 {
		return nil, pipelineErr(KindInput, fmt.Errorf("no images provided"))
	}
	categories, err := category.ParseFiles(categoryFiles)
	if err != nil {
		return nil, pipelineErr(KindInput, err)
	}

	tag, err := m.begin(StateLoading, true)
	if err != nil {
		return nil, err
	}

	committed, err := m.runGeneration(ctx, images, categories, tag)
	if err != nil {
		m.fail(tag, err, true)
		return nil, err
	}
	return committed, nil
}

func (m *Manager) runGeneration(ctx context.Context, images []llm.ImageInput, categories []string, tag uint64) (*listing.Listing, error) {
	result, err := m.generator.GenerateListing(ctx, images, categories)
	if err != nil {
		return nil, pipelineErr(KindTransport, err)
	}

	validated, err := parseAndValidate(result.RawText, "AI response failed validation")
	if err != nil {
		return nil, err
	}
	validated.Sources = result.Sources

	return m.commit(validated, tag)
}

// Refine runs one refinement cycle against the active listing. The prior
// listing's citations carry over unchanged; refinement does not re-ground.
// On failure the pre-refinement listing is preserved.
func (m *Manager) Refine(ctx context.Context, instruction string) (*listing.Listing, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, pipelineErr(KindInput, fmt.Errorf("refinement instruction is empty"))
	}

	m.mu.Lock()
	if m.state == StateLoading || m.state == StateRefining {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	if m.state != StateReady || m.active == nil {
		m.mu.Unlock()
		return nil, ErrNoActiveListing
	}
	prior := m.active
	m.state = StateRefining
	m.lastErr = nil
	m.generation++
	tag := m.generation
	m.mu.Unlock()

	committed, err := m.runRefinement(ctx, prior, instruction, tag)
	if err != nil {
		m.fail(tag, err, false)
		return nil, err
	}
	return committed, nil
}

func (m *Manager) runRefinement(ctx context.Context, prior *listing.Listing, instruction string, tag uint64) (*listing.Listing, error) {
	// The id and sources are runtime-only fields, never sent back to the model.
	listingJSON, err := prior.MarshalStripped()
	if err != nil {
		return nil, pipelineErr(KindInput, err)
	}

	raw, err := m.generator.RefineListing(ctx, listingJSON, instruction)
	if err != nil {
		return nil, pipelineErr(KindTransport, err)
	}

	validated, err := parseAndValidate(raw, "Refined AI response failed validation")
	if err != nil {
		return nil, err
	}
	validated.Sources = append([]listing.Source(nil), prior.Sources...)

	return m.commit(validated, tag)
}

// parseAndValidate runs the extract -> repair -> validate chain on a raw
// reply, classifying failures.
func parseAndValidate(raw string, validationErrPrefix string) (*listing.Listing, error) {
	candidate, err := listing.ExtractCandidate(raw)
	if err != nil {
		return nil, pipelineErr(KindParse, err)
	}
	listing.RepairTitle(candidate)

	validated, err := listing.Validate(candidate)
	if err != nil {
		return nil, pipelineErr(KindValidation, fmt.Errorf("%s. Details: %w", validationErrPrefix, err))
	}
	return validated, nil
}

// begin transitions into an in-flight state, returning the generation tag the
// call is issued against. clearActive clears the displayed listing for the
// analyze path.
func (m *Manager) begin(next State, clearActive bool) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateLoading || m.state == StateRefining {
		return 0, ErrBusy
	}
	m.state = next
	m.lastErr = nil
	if clearActive {
		m.active = nil
	}
	m.generation++
	return m.generation, nil
}

// commit assigns a fresh id, makes the listing active and pushes it to the
// history head. A stale tag (the session was cleared or superseded while the
// call was in flight) discards the result.
func (m *Manager) commit(l *listing.Listing, tag uint64) (*listing.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != tag {
		log.Warn().Msg("discarding stale model result")
		return nil, pipelineErr(KindTransport, fmt.Errorf("result discarded: session state changed while the call was in flight"))
	}

	l.ID = newListingID()
	m.active = l
	m.state = StateReady
	m.lastErr = nil

	m.history = append([]*listing.Listing{l.Clone()}, m.history...)
	if len(m.history) > HistoryLimit {
		m.history = m.history[:HistoryLimit]
	}
	if err := m.store.Save(m.history); err != nil {
		// Persistence is best-effort; the committed listing stays usable.
		log.Warn().Err(err).Msg("failed to persist listing history")
	}

	return l.Clone(), nil
}

// fail records a cycle failure. The analyze path clears the active listing;
// the refine path keeps the pre-refinement listing untouched.
func (m *Manager) fail(tag uint64, err error, clearActive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != tag {
		return
	}
	m.state = StateError
	m.lastErr = err
	if clearActive {
		m.active = nil
	}
}

// Clear resets the working state: active listing, error and lifecycle state.
// History is untouched; it has its own ClearHistory.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateIdle
	m.active = nil
	m.lastErr = nil
	m.generation++
}

// Active returns a snapshot of the current listing (nil if none), the state
// and the last cycle error.
func (m *Manager) Active() (*listing.Listing, State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active *listing.Listing
	if m.active != nil {
		active = m.active.Clone()
	}
	return active, m.state, m.lastErr
}

// UpdateActive applies a manual edit to the active listing. Edits are trusted
// local state: no re-validation and no history push. The listing's identity
// and citations are preserved when the edit omits them.
func (m *Manager) UpdateActive(edited *listing.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateLoading || m.state == StateRefining {
		return ErrBusy
	}
	if m.active == nil {
		return ErrNoActiveListing
	}
	if edited.ID == "" {
		edited.ID = m.active.ID
	}
	if edited.Sources == nil {
		edited.Sources = m.active.Sources
	}
	m.active = edited.Clone()
	return nil
}

// History returns a snapshot of the history, most recent first.
func (m *Manager) History() []*listing.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*listing.Listing, len(m.history))
	for i, l := range m.history {
		out[i] = l.Clone()
	}
	return out
}

// LoadFromHistory makes a past listing active again and clears any displayed
// error.
func (m *Manager) LoadFromHistory(id string) (*listing.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateLoading || m.state == StateRefining {
		return nil, ErrBusy
	}
	for _, l := range m.history {
		if l.ID == id {
			m.active = l.Clone()
			m.state = StateReady
			m.lastErr = nil
			m.generation++
			return m.active.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// ClearHistory empties the history, both in memory and in the store. The
// active listing is unaffected.
func (m *Manager) ClearHistory() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
