package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"crickmic-engine/internal/domain"
	"crickmic-engine/internal/events"
)

func (o *Orchestrator) Select(id string) error {
	o.mu.Lock()
	if !o.hasMatchLocked(id) {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownMatch, id)
	}
	o.selection[id] = struct{}{}
	o.mu.Unlock()
	o.emitSelection()
	return nil
}

func (o *Orchestrator) Deselect(id string) {
	o.mu.Lock()
	delete(o.selection, id)
	o.mu.Unlock()
	o.emitSelection()
}

// ToggleSelection flips id and reports whether it is now selected.
func (o *Orchestrator) ToggleSelection(id string) (bool, error) {
	o.mu.Lock()
	if _, ok := o.selection[id]; ok {
		delete(o.selection, id)
		o.mu.Unlock()
		o.emitSelection()
		return false, nil
	}
	if !o.hasMatchLocked(id) {
		o.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrUnknownMatch, id)
	}
	o.selection[id] = struct{}{}
	o.mu.Unlock()
	o.emitSelection()
	return true, nil
}

// Selection returns the selected ids, sorted.
func (o *Orchestrator) Selection() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.selectionLocked()
}

func (o *Orchestrator) ClearSelection() {
	o.mu.Lock()
	o.selection = make(map[string]struct{})
	o.mu.Unlock()
	o.emitSelection()
}

// GenerateSelected enriches the selected candidates in candidate-list order
// and clears the selection once the run completes. Ids no longer present in
// the candidate list are ignored. When another run is active the selection is
// kept and ErrBusy returned.
func (o *Orchestrator) GenerateSelected(ctx context.Context) ([]domain.ItemResult, error) {
	o.mu.RLock()
	var items []domain.Match
	for _, m := range o.matches {
		if _, ok := o.selection[m.ID]; ok {
			items = append(items, m)
		}
	}
	o.mu.RUnlock()
	if len(items) == 0 {
		return nil, nil
	}

	results, err := o.enrich(ctx, items, "", domain.OriginSelection, true)
	if err != nil {
		return nil, err
	}
	o.ClearSelection()
	return results, nil
}

func (o *Orchestrator) hasMatchLocked(id string) bool {
	for _, m := range o.matches {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (o *Orchestrator) selectionLocked() []string {
	out := make([]string, 0, len(o.selection))
	for id := range o.selection {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (o *Orchestrator) emitSelection() {
	o.emit(events.TypeSelectionChanged, map[string]any{"selected": o.Selection()})
}
