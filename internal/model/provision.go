package model

import "time"

// DeploySignalName is the signal name used by the per-project deploy workflow.
const DeploySignalName = "deploy"

// DeployTask is a unit of work processed sequentially by the per-project
// deploy workflow.
type DeployTask struct {
	WorkflowID string       `json:"workflow_id"`
	Params     DeployParams `json:"params"`
}

// DeployParams is the input of DeployWorkflow.
type DeployParams struct {
	AttemptID           string        `json:"attempt_id"`
	RecoveryBudget      int           `json:"recovery_budget"`
	MaxPolls            int           `json:"max_polls,omitempty"`
	PollInterval        time.Duration `json:"poll_interval,omitempty"`
	InitialPollDelay    time.Duration `json:"initial_poll_delay,omitempty"`
	SimulationStepDelay time.Duration `json:"simulation_step_delay,omitempty"`
}

// Deploy defaults.
const (
	DefaultRecoveryBudget      = 1
	DefaultMaxPolls            = 30
	DefaultPollInterval        = 10 * time.Second
	DefaultInitialPollDelay    = 2 * time.Second
	DefaultSimulationStepDelay = 2 * time.Second
)

// WithDefaults fills zero-valued polling fields. RecoveryBudget is left
// untouched so that zero disables automated recovery.
func (p DeployParams) WithDefaults() DeployParams {
	if p.MaxPolls <= 0 {
		p.MaxPolls = DefaultMaxPolls
	}
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPollInterval
	}
	if p.InitialPollDelay <= 0 {
		p.InitialPollDelay = DefaultInitialPollDelay
	}
	if p.SimulationStepDelay <= 0 {
		p.SimulationStepDelay = DefaultSimulationStepDelay
	}
	if p.RecoveryBudget < 0 {
		p.RecoveryBudget = 0
	}
	return p
}

// TaskQueue is the Temporal task queue served by the worker.
const TaskQueue = "sitebuilder-deploy"

// ProjectWorkflowID is the ID of the per-project deploy entity workflow.
func ProjectWorkflowID(projectID string) string {
	return "project-deploy-" + projectID
}

// DeployWorkflowID is the ID of the workflow driving one attempt. Cancelling
// it cancels the attempt.
func DeployWorkflowID(attemptID string) string {
	return "deploy-" + attemptID
}
