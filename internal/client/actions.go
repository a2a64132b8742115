package client

import (
	"fmt"

	"github.com/ox-runtime/ox/internal/proto"
)

// ActionSetInfo describes a create_action_set call's arguments, kept only
// for CreateActionSet's membership bookkeeping (actionSets set).
type ActionSetInfo struct {
	Name string
}

// ActionInfo describes a create_action call's arguments, per spec.md §3's
// actions table row.
type ActionInfo struct {
	ActionSet      proto.Handle
	Name           string
	Type           ActionType
	SubactionPaths []string
}

// CreateActionSet registers a new action set under the instance and
// returns its handle. Action sets are purely client-side bookkeeping; the
// service is never told about them.
func (inst *Instance) CreateActionSet(info ActionSetInfo) (proto.Handle, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return 0, err
	}
	h, err := inst.conn.AllocateHandle(proto.HandleKindActionSet)
	if err != nil {
		return 0, err
	}
	inst.actionSets[h] = struct{}{}
	return h, nil
}

// CreateAction registers a new action under an action set, per spec.md
// §4.5.1's actions table.
func (inst *Instance) CreateAction(info ActionInfo) (proto.Handle, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return 0, err
	}
	if _, ok := inst.actionSets[info.ActionSet]; !ok {
		return 0, fmt.Errorf("%w: unknown action set %d", ErrHandleInvalid, info.ActionSet)
	}
	h, err := inst.conn.AllocateHandle(proto.HandleKindAction)
	if err != nil {
		return 0, err
	}
	inst.actions[h] = actionInfo{
		actionSet:      info.ActionSet,
		name:           info.Name,
		valueType:      info.Type,
		subactionPaths: append([]string(nil), info.SubactionPaths...),
	}
	return h, nil
}

// BindingSuggestion is one binding path proposed for an action under a set
// of interaction profiles, per spec.md §4.5.3. SubactionPath may be left
// empty to request inference from the action's declared subaction paths
// per spec.md §9's redesign note.
type BindingSuggestion struct {
	Action        proto.Handle
	BindingPath   string
	SubactionPath string
	Profiles      []string
}

// SuggestBindings records one or more binding suggestions into the
// instance's binding table, per spec.md §4.5.3.
func (inst *Instance) SuggestBindings(suggestions []BindingSuggestion) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return err
	}
	for _, s := range suggestions {
		act, ok := inst.actions[s.Action]
		if !ok {
			return fmt.Errorf("%w: unknown action %d", ErrHandleInvalid, s.Action)
		}
		subaction := s.SubactionPath
		if subaction == "" {
			userPath, _ := splitBindingPath(s.BindingPath)
			subaction = inferSubactionPath(userPath, act.subactionPaths)
		}
		inst.bindings.suggest(s.Action, s.BindingPath, subaction, s.Profiles)
	}
	return nil
}

// AttachSessionActionSets finalizes the set of action sets a session will
// query and negotiates the current interaction profile, per spec.md
// §4.5.3: the first client-suggested profile present in the driver's
// supported list, falling back to the driver's first profile.
func (inst *Instance) AttachSessionActionSets(session proto.Handle, actionSets []proto.Handle) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return err
	}
	if _, ok := inst.sessions[session]; !ok {
		return fmt.Errorf("%w: unknown session %d", ErrHandleInvalid, session)
	}
	for _, as := range actionSets {
		if _, ok := inst.actionSets[as]; !ok {
			return fmt.Errorf("%w: unknown action set %d", ErrHandleInvalid, as)
		}
	}

	suggested := make([]string, 0, 4)
	seen := map[string]bool{}
	for _, e := range inst.bindings.entries {
		for _, p := range e.profiles {
			if !seen[p] {
				seen[p] = true
				suggested = append(suggested, p)
			}
		}
	}

	driverProfiles := inst.conn.InteractionProfiles().Profiles
	inst.currentInteractionProfile = pickCurrentInteractionProfile(suggested, driverProfiles)
	return nil
}

// ActionStateBool is the result of GetActionStateBoolean, per spec.md
// §4.5.3 step 5.
type ActionStateBool struct {
	Active  bool
	Current bool
}

// GetActionStateBoolean resolves a boolean action's current value by
// walking the candidate bindings for (action, subactionPath) under the
// instance's current interaction profile and taking the first available
// result, per spec.md §4.5.3.
func (inst *Instance) GetActionStateBoolean(action proto.Handle, subactionPath string, predictedTime int64) (ActionStateBool, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return ActionStateBool{}, err
	}
	if _, ok := inst.actions[action]; !ok {
		return ActionStateBool{}, fmt.Errorf("%w: unknown action %d", ErrHandleInvalid, action)
	}

	for _, c := range inst.bindings.candidatesFor(action, subactionPath, inst.currentInteractionProfile) {
		resp, err := inst.conn.GetInputStateBoolean(c.userPath, c.componentPath, predictedTime)
		if err != nil {
			return ActionStateBool{}, err
		}
		if resp.Availability == proto.Available {
			return ActionStateBool{Active: true, Current: resp.Value}, nil
		}
	}
	return ActionStateBool{Active: false}, nil
}

// ActionStateFloat is the result of GetActionStateFloat.
type ActionStateFloat struct {
	Active  bool
	Current float32
}

// GetActionStateFloat mirrors GetActionStateBoolean for float-valued
// actions, per spec.md §4.5.3's S4 scenario.
func (inst *Instance) GetActionStateFloat(action proto.Handle, subactionPath string, predictedTime int64) (ActionStateFloat, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return ActionStateFloat{}, err
	}
	if _, ok := inst.actions[action]; !ok {
		return ActionStateFloat{}, fmt.Errorf("%w: unknown action %d", ErrHandleInvalid, action)
	}

	for _, c := range inst.bindings.candidatesFor(action, subactionPath, inst.currentInteractionProfile) {
		resp, err := inst.conn.GetInputStateFloat(c.userPath, c.componentPath, predictedTime)
		if err != nil {
			return ActionStateFloat{}, err
		}
		if resp.Availability == proto.Available {
			return ActionStateFloat{Active: true, Current: resp.Value}, nil
		}
	}
	return ActionStateFloat{Active: false}, nil
}

// ActionStateVector2f is the result of GetActionStateVector2f.
type ActionStateVector2f struct {
	Active  bool
	X, Y    float32
}

// GetActionStateVector2f mirrors GetActionStateBoolean for 2-vector-valued
// actions (e.g. thumbstick axes).
func (inst *Instance) GetActionStateVector2f(action proto.Handle, subactionPath string, predictedTime int64) (ActionStateVector2f, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return ActionStateVector2f{}, err
	}
	if _, ok := inst.actions[action]; !ok {
		return ActionStateVector2f{}, fmt.Errorf("%w: unknown action %d", ErrHandleInvalid, action)
	}

	for _, c := range inst.bindings.candidatesFor(action, subactionPath, inst.currentInteractionProfile) {
		resp, err := inst.conn.GetInputStateVector2f(c.userPath, c.componentPath, predictedTime)
		if err != nil {
			return ActionStateVector2f{}, err
		}
		if resp.Availability == proto.Available {
			return ActionStateVector2f{Active: true, X: resp.X, Y: resp.Y}, nil
		}
	}
	return ActionStateVector2f{Active: false}, nil
}
