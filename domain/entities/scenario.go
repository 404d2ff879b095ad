package entities

// Scenario represents a named sequence of actions
type Scenario struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Status  ScenarioStatus `json:"status"`
	Actions []Action       `json:"actions,omitempty"`
}

// ScenarioStatus represents the status of a scenario
type ScenarioStatus string

const (
	ScenarioStatusPending    ScenarioStatus = "pending"
	ScenarioStatusInProgress ScenarioStatus = "in_progress"
	ScenarioStatusCompleted  ScenarioStatus = "completed"
	ScenarioStatusFailed     ScenarioStatus = "failed"
)
