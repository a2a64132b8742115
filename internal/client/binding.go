package client

import (
	"strings"

	"github.com/ox-runtime/ox/internal/proto"
)

// bindingEntry is one suggested-binding record, per spec.md §2/§3's device
// binding table: a binding path maps to an action, the subaction path it
// was suggested under, and the interaction profiles it applies to.
type bindingEntry struct {
	action        proto.Handle
	bindingPath   string
	userPath      string
	componentPath string
	subactionPath string
	profiles      []string
}

// bindingTable holds every suggested binding across every interaction
// profile the application has suggested, per spec.md §4.5.3. It is a pure
// data structure; resolution happens in resolveBinding against a caller's
// query and the instance's current interaction profile.
type bindingTable struct {
	entries []bindingEntry
}

func newBindingTable() bindingTable {
	return bindingTable{}
}

// suggest records one binding suggestion, splitting the full binding path
// into user_path and component_path per spec.md §4.5.3 step 4
// ("/user/hand/left/input/trigger/value" -> "/user/hand/left" +
// "/input/trigger/value").
func (bt *bindingTable) suggest(action proto.Handle, bindingPath, subactionPath string, profiles []string) {
	user, component := splitBindingPath(bindingPath)
	bt.entries = append(bt.entries, bindingEntry{
		action:        action,
		bindingPath:   bindingPath,
		userPath:      user,
		componentPath: component,
		subactionPath: subactionPath,
		profiles:      append([]string(nil), profiles...),
	})
}

// splitBindingPath separates a full binding path into its top-level user
// path and its component path at the first "/input/" or "/output/"
// segment: "/user/hand/left/input/trigger/value" splits into
// "/user/hand/left" and "/input/trigger/value", and
// "/user/head/input/volume_up/click" into "/user/head" and
// "/input/volume_up/click". A path with neither segment is returned whole
// as the user path with an empty component path.
func splitBindingPath(path string) (userPath, componentPath string) {
	cut := -1
	for _, marker := range []string{"/input/", "/output/"} {
		if i := strings.Index(path, marker); i > 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	if cut < 0 {
		return path, ""
	}
	return path[:cut], path[cut:]
}

// inferSubactionPath derives the subaction path to use for an action when
// the caller's binding suggestion did not carry an explicit one. Per
// spec.md §9's redesign note, this takes the longest prefix of the
// binding's user path that appears in the action's declared
// subaction_paths, rather than the original's brittle
// "/user/hand/left|right" substring heuristic.
func inferSubactionPath(userPath string, declaredSubactionPaths []string) string {
	best := ""
	for _, candidate := range declaredSubactionPaths {
		if strings.HasPrefix(userPath, candidate) && len(candidate) > len(best) {
			best = candidate
		}
	}
	return best
}

// candidatesFor implements spec.md §4.5.3 steps 1-3: filter to the
// queried action, drop subaction conflicts (a Null query subaction matches
// any binding), drop bindings whose profile list excludes the current
// interaction profile. Returns the surviving candidates in suggestion
// order; the caller performs the typed per-candidate query and takes the
// first available per step 5.
func (bt *bindingTable) candidatesFor(action proto.Handle, querySubactionPath, currentProfile string) []bindingEntry {
	var out []bindingEntry
	for _, e := range bt.entries {
		if e.action != action {
			continue
		}
		if querySubactionPath != "" && e.subactionPath != "" && e.subactionPath != querySubactionPath {
			continue
		}
		if len(e.profiles) > 0 && !containsString(e.profiles, currentProfile) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// pickCurrentInteractionProfile implements spec.md §4.5.3's
// attach-time negotiation: the first client-suggested profile that
// appears in the driver's supported list, falling back to the driver's
// first profile if none of the suggested ones match.
func pickCurrentInteractionProfile(suggested []string, driverSupported []string) string {
	for _, s := range suggested {
		if containsString(driverSupported, s) {
			return s
		}
	}
	if len(driverSupported) > 0 {
		return driverSupported[0]
	}
	return ""
}
