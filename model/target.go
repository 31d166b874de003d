package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Scope identifies the subscription whose delivery position is changed, on one cluster.
type Scope struct {
	Topic        string `json:"topic"`        // Logical topic name
	Subscription string `json:"subscription"` // Subscription name
	Cluster      string `json:"cluster"`      // Broker cluster (data center) name
}

// Validate implements validation.Validatable.
func (s Scope) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Topic, validation.Required),
		validation.Field(&s.Subscription, validation.Required, validation.Length(1, 255)),
		validation.Field(&s.Cluster, validation.Required, validation.Length(1, 64)),
	)
}

// RetransmissionTarget is a request to move a subscription's position on one cluster.
// A nil Timestamp means the end of the log.
type RetransmissionTarget struct {
	Topic        LogicalTopic `json:"topic"`
	Subscription string       `json:"subscription"`
	Cluster      string       `json:"cluster"`
	Timestamp    *time.Time   `json:"timestamp,omitempty"`
	DryRun       bool         `json:"dryRun"`
}

// Scope returns the declaration scope of the target.
func (t RetransmissionTarget) Scope() Scope {
	return Scope{Topic: t.Topic.Name, Subscription: t.Subscription, Cluster: t.Cluster}
}

// Validate implements validation.Validatable.
func (t RetransmissionTarget) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Topic),
		validation.Field(&t.Subscription, validation.Required, validation.Length(1, 255)),
		validation.Field(&t.Cluster, validation.Required, validation.Length(1, 64)),
	)
}

// State is a step of a retransmission attempt.
type State string

// Retransmission states. Only Requested, Resolving, Declared and Previewed are entered
// by this module; Converging and Converged are observed.
const (
	StateRequested  State = "requested"
	StateResolving  State = "resolving"
	StateDeclared   State = "declared"
	StatePreviewed  State = "previewed"
	StateConverging State = "converging"
	StateConverged  State = "converged"
)

// ConvergenceState maps a convergence check result to the observed state.
func ConvergenceState(converged bool) State {
	if converged {
		return StateConverged
	}
	return StateConverging
}
