package studio

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/stampmaker/internal/batch"
	"github.com/lehigh-university-libraries/stampmaker/internal/config"
	"github.com/lehigh-university-libraries/stampmaker/internal/imagecodec"
	"github.com/lehigh-university-libraries/stampmaker/internal/models"
)

var (
	// ErrBusy means a batch run or suggestion is already in flight
	ErrBusy = errors.New("session is busy")
	// ErrBatchSize means the requested tab is not one of the configured sizes
	ErrBatchSize = errors.New("unsupported batch size")
	// ErrIndex means an item or reference index is out of range
	ErrIndex = errors.New("index out of range")
	// ErrUnknownStyle means the style key is not a known preset
	ErrUnknownStyle = errors.New("unknown style")
)

// Session is the form state and gallery of one user. Safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu  sync.RWMutex
	cfg *config.Config

	batchSize    int
	items        []models.StampRequest
	references   []imagecodec.File
	style        models.Style
	sharedPrompt string
	password     string

	stamps    []models.GeneratedStamp // newest first
	progress  models.Progress
	lastError string
	busy      bool
}

// Form is a partial update of the session form. Nil fields are left as is.
type Form struct {
	BatchSize    *int                  `json:"batch_size,omitempty"`
	Items        []models.StampRequest `json:"items,omitempty"`
	Style        *string               `json:"style,omitempty"`
	SharedPrompt *string               `json:"shared_prompt,omitempty"`
	Password     *string               `json:"password,omitempty"`
}

// View is a point-in-time copy of the session for rendering
type View struct {
	ID           string                  `json:"id"`
	CreatedAt    time.Time               `json:"created_at"`
	BatchSize    int                     `json:"batch_size"`
	BatchSizes   []int                   `json:"batch_sizes"`
	Items        []models.StampRequest   `json:"items"`
	References   []string                `json:"references"`
	MaxReference int                     `json:"max_references"`
	Style        models.Style            `json:"style"`
	SharedPrompt string                  `json:"shared_prompt"`
	Unlocked     bool                    `json:"unlocked"`
	Stamps       []models.GeneratedStamp `json:"stamps"`
	Progress     models.Progress         `json:"progress"`
	Generating   bool                    `json:"generating"`
	Error        string                  `json:"error,omitempty"`
}

func newSession(id string, cfg *config.Config) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		cfg:       cfg,
		style:     models.DefaultStyle(),
		stamps:    []models.GeneratedStamp{},
	}
	s.resetItems(cfg.DefaultBatchSize())
	return s
}

// resetItems rebuilds n blank slots with slot 0 pre-filled. Caller holds mu.
func (s *Session) resetItems(n int) {
	s.batchSize = n
	s.items = make([]models.StampRequest, n)
	if n > 0 {
		s.items[0].Text = s.cfg.DefaultCaption
	}
}

// SetBatchSize switches tabs, discarding current items
func (s *Session) SetBatchSize(n int) error {
	if !s.cfg.AllowsBatchSize(n) {
		return fmt.Errorf("%w: %d (allowed %v)", ErrBatchSize, n, s.cfg.BatchSizes)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetItems(n)
	return nil
}

// BatchSize is the current tab size
func (s *Session) BatchSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchSize
}

// UpdateItem replaces the item at index i
func (s *Session) UpdateItem(i int, req models.StampRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("%w: item %d of %d", ErrIndex, i, len(s.items))
	}
	s.items[i] = req
	return nil
}

// SetItems replaces the whole item list
func (s *Session) SetItems(items []models.StampRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(items)
}

// Items returns a copy of the item list
func (s *Session) Items() []models.StampRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// ApplySuggestions replaces the item list with one item per caption
func (s *Session) ApplySuggestions(captions []string) {
	items := make([]models.StampRequest, len(captions))
	for i, c := range captions {
		items[i] = models.StampRequest{Text: c}
	}
	s.SetItems(items)
}

// AddReferences appends files, keeping at most the configured maximum.
// It returns how many files were dropped.
func (s *Session) AddReferences(files ...imagecodec.File) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	combined := append(slices.Clone(s.references), files...)
	dropped := 0
	if len(combined) > s.cfg.MaxReferenceImages {
		dropped = len(combined) - s.cfg.MaxReferenceImages
		combined = combined[:s.cfg.MaxReferenceImages]
	}
	s.references = combined
	return dropped
}

// RemoveReference drops the reference at index i, preserving order
func (s *Session) RemoveReference(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.references) {
		return fmt.Errorf("%w: reference %d of %d", ErrIndex, i, len(s.references))
	}
	s.references = slices.Delete(slices.Clone(s.references), i, i+1)
	return nil
}

// References returns the pending reference files
func (s *Session) References() []imagecodec.File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.references)
}

// SetStyle selects a style preset by key
func (s *Session) SetStyle(key string) error {
	style, err := models.LookupStyle(key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownStyle, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style = style
	return nil
}

// Style returns the selected preset
func (s *Session) Style() models.Style {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.style
}

func (s *Session) SetSharedPrompt(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sharedPrompt = p
}

func (s *Session) SharedPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sharedPrompt
}

// SetPassword stores the access password input
func (s *Session) SetPassword(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = p
}

func (s *Session) passwordInput() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.password
}

// Apply merges a form update. The batch size applies first so items in the
// same form land on the new tab.
func (s *Session) Apply(f Form) error {
	if f.BatchSize != nil && *f.BatchSize != s.BatchSize() {
		if err := s.SetBatchSize(*f.BatchSize); err != nil {
			return err
		}
	}
	if f.Style != nil {
		if err := s.SetStyle(*f.Style); err != nil {
			return err
		}
	}
	if f.Items != nil {
		s.SetItems(f.Items)
	}
	if f.SharedPrompt != nil {
		s.SetSharedPrompt(*f.SharedPrompt)
	}
	if f.Password != nil {
		s.SetPassword(*f.Password)
	}
	return nil
}

// Stamps returns the gallery, newest first
func (s *Session) Stamps() []models.GeneratedStamp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.stamps)
}

// Stamp looks up one gallery entry
func (s *Session) Stamp(id string) (models.GeneratedStamp, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stamps {
		if st.ID == id {
			return st, true
		}
	}
	return models.GeneratedStamp{}, false
}

func (s *Session) Progress() models.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// LastError is the remediation message of the last failed action
func (s *Session) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Busy reports whether a run or suggestion is in flight
func (s *Session) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// Reset clears the gallery, progress and error. Form fields are kept.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.stamps = []models.GeneratedStamp{}
	s.progress = models.Progress{}
	s.lastError = ""
	return nil
}

// View snapshots the session
func (s *Session) View(unlocked bool) View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.references))
	for i, f := range s.references {
		names[i] = f.Name()
	}
	return View{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		BatchSize:    s.batchSize,
		BatchSizes:   slices.Clone(s.cfg.BatchSizes),
		Items:        slices.Clone(s.items),
		References:   names,
		MaxReference: s.cfg.MaxReferenceImages,
		Style:        s.style,
		SharedPrompt: s.sharedPrompt,
		Unlocked:     unlocked,
		Stamps:       slices.Clone(s.stamps),
		Progress:     s.progress,
		Generating:   s.busy,
		Error:        s.lastError,
	}
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	s.lastError = ""
	return nil
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.setErrorLocked(err)
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErrorLocked(err)
}

func (s *Session) setErrorLocked(err error) {
	if err == nil {
		s.lastError = ""
		return
	}
	s.lastError = Message(err)
}

// OnProgress, OnStamp and OnItemError record run events on the session

func (s *Session) OnProgress(p models.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = p
}

func (s *Session) OnStamp(st models.GeneratedStamp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamps = append([]models.GeneratedStamp{st}, s.stamps...)
}

func (s *Session) OnItemError(e *batch.ItemError) {
	s.fail(e)
}
