package gradebook

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
)

// PreferenceKV stores raw preference documents. Get returns a nil slice when
// nothing is stored.
type PreferenceKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// PreferencePatch updates a subset of the stored preferences.
type PreferencePatch struct {
	ActiveTab         *models.GradebookTab      `json:"activeTab" validate:"omitempty,oneof=midterm final summary"`
	ViewMode          *models.GradebookViewMode `json:"viewMode" validate:"omitempty,oneof=table compact"`
	SearchTerm        *string                   `json:"searchTerm" validate:"omitempty,max=200"`
	VisibleComponents []int64                   `json:"visibleComponents"`
	ComponentOrder    []int64                   `json:"componentOrder"`
}

// PreferenceStore loads and saves gradebook preferences, always reconciling
// them with the class's current component list.
type PreferenceStore struct {
	kv     PreferenceKV
	logger *zap.Logger
}

// NewPreferenceStore constructs the store.
func NewPreferenceStore(kv PreferenceKV, logger *zap.Logger) *PreferenceStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceStore{kv: kv, logger: logger}
}

// PreferenceKey is the storage key for one user's view of one class.
func PreferenceKey(accountID, classID int64) string {
	return fmt.Sprintf("gradebook-preferences:%d:%d", accountID, classID)
}

// DefaultPreferences shows every component in its natural order on the
// midterm tab.
func DefaultPreferences(componentIDs []int64) models.GradebookPreferences {
	return models.GradebookPreferences{
		ActiveTab:         models.TabMidterm,
		ViewMode:          models.ViewModeTable,
		VisibleComponents: append([]int64{}, componentIDs...),
		ComponentOrder:    append([]int64{}, componentIDs...),
	}
}

// Load returns stored preferences merged over the defaults. Missing or
// unreadable documents yield the defaults.
func (p *PreferenceStore) Load(ctx context.Context, accountID, classID int64, componentIDs []int64) models.GradebookPreferences {
	key := PreferenceKey(accountID, classID)
	defaults := DefaultPreferences(componentIDs)
	if p.kv == nil {
		return defaults
	}

	raw, err := p.kv.Get(ctx, key)
	if err != nil {
		p.logger.Warn("load gradebook preferences", zap.String("key", key), zap.Error(err))
		return defaults
	}
	if len(raw) == 0 {
		return defaults
	}

	var stored models.GradebookPreferences
	if err := json.Unmarshal(raw, &stored); err != nil {
		p.logger.Debug("discarding unreadable gradebook preferences", zap.String("key", key), zap.Error(err))
		return defaults
	}
	return Merge(stored, componentIDs)
}

// Save applies the patch on top of the current preferences and stores the
// result.
func (p *PreferenceStore) Save(ctx context.Context, accountID, classID int64, componentIDs []int64, patch PreferencePatch) (models.GradebookPreferences, error) {
	current := p.Load(ctx, accountID, classID, componentIDs)
	if patch.ActiveTab != nil {
		current.ActiveTab = *patch.ActiveTab
	}
	if patch.ViewMode != nil {
		current.ViewMode = *patch.ViewMode
	}
	if patch.SearchTerm != nil {
		current.SearchTerm = *patch.SearchTerm
	}
	if patch.VisibleComponents != nil {
		current.VisibleComponents = patch.VisibleComponents
	}
	if patch.ComponentOrder != nil {
		current.ComponentOrder = patch.ComponentOrder
	}
	merged := Merge(current, componentIDs)

	if p.kv == nil {
		return merged, nil
	}
	payload, err := json.Marshal(merged)
	if err != nil {
		return merged, fmt.Errorf("marshal gradebook preferences: %w", err)
	}
	if err := p.kv.Set(ctx, PreferenceKey(accountID, classID), payload); err != nil {
		return merged, fmt.Errorf("store gradebook preferences: %w", err)
	}
	return merged, nil
}

// Merge reconciles stored preferences with the current components: unknown
// ids are dropped, new components are appended to the order, and invalid enum
// values fall back to the defaults. A nil visible list means "all".
func Merge(stored models.GradebookPreferences, componentIDs []int64) models.GradebookPreferences {
	out := DefaultPreferences(componentIDs)
	switch stored.ActiveTab {
	case models.TabMidterm, models.TabFinal, models.TabSummary:
		out.ActiveTab = stored.ActiveTab
	}
	switch stored.ViewMode {
	case models.ViewModeTable, models.ViewModeCompact:
		out.ViewMode = stored.ViewMode
	}
	out.SearchTerm = stored.SearchTerm

	known := make(map[int64]struct{}, len(componentIDs))
	for _, id := range componentIDs {
		known[id] = struct{}{}
	}

	if stored.VisibleComponents != nil {
		out.VisibleComponents = filterKnown(stored.VisibleComponents, known)
	}

	if stored.ComponentOrder != nil {
		order := filterKnown(stored.ComponentOrder, known)
		placed := make(map[int64]struct{}, len(order))
		for _, id := range order {
			placed[id] = struct{}{}
		}
		for _, id := range componentIDs {
			if _, ok := placed[id]; !ok {
				order = append(order, id)
			}
		}
		out.ComponentOrder = order
	}
	return out
}

func filterKnown(ids []int64, known map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
