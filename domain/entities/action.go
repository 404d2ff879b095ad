package entities

import "time"

// ActionType represents the type of step a scenario can perform
type ActionType string

const (
	ActionOpen        ActionType = "open"
	ActionClick       ActionType = "click"
	ActionDoubleClick ActionType = "double_click"
	ActionSetValue    ActionType = "set_value"
	ActionTypeText    ActionType = "type"
	ActionClear       ActionType = "clear"
	ActionPressEnter  ActionType = "press_enter"
	ActionShould      ActionType = "should"
	ActionWait        ActionType = "wait"
)

// SelectorSeparator splits a nested selector path into element steps
const SelectorSeparator = " >> "

// Action represents a single step of a scenario
type Action struct {
	Type ActionType `json:"type"`
	// Selector is a css path, nested steps separated by SelectorSeparator
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
	// Condition is used by ActionShould: visible, hidden, enabled, text=..., exact_text=...
	Condition string `json:"condition,omitempty"`
	// Timeout overrides the wait timeout for this action, "250ms" or a number of milliseconds
	Timeout Duration `json:"timeout,omitempty"`
}

// MaxHistory is how many action results are kept, oldest dropped first
const MaxHistory = 500

// TrimHistory returns the newest MaxHistory results
func TrimHistory(history []ActionResult) []ActionResult {
	if len(history) <= MaxHistory {
		return history
	}
	return append([]ActionResult(nil), history[len(history)-MaxHistory:]...)
}

// ActionResult represents the result of an action
type ActionResult struct {
	Action   Action        `json:"action"`
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	PageInfo *PageInfo     `json:"page_info,omitempty"`
}
