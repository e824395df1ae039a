package workflow

import "errors"

var (
	// ErrNameRequired indicates a workflow was submitted without a name.
	ErrNameRequired = errors.New("workflow: name is required")
	// ErrAPIKeyRequired indicates a workflow was submitted without an api_key.
	ErrAPIKeyRequired = errors.New("workflow: api_key is required")
	// ErrDuplicateAPIKey indicates the api_key is already taken by another workflow.
	ErrDuplicateAPIKey = errors.New("workflow: api_key already exists")
	// ErrEmptyStages indicates a workflow was submitted without stages.
	ErrEmptyStages = errors.New("workflow: at least one stage is required")
	// ErrStageNameRequired indicates a stage is missing its name.
	ErrStageNameRequired = errors.New("workflow: stage name required")
	// ErrDuplicateStageID indicates stage ids collide within a workflow.
	ErrDuplicateStageID = errors.New("workflow: duplicate stage id")
	// ErrWorkflowNotFound indicates no workflow exists for the supplied id.
	ErrWorkflowNotFound = errors.New("workflow: workflow not found")
	// ErrWorkflowRequired indicates the request is missing the workflow id.
	ErrWorkflowRequired = errors.New("workflow: workflow id required")
	// ErrModelRequired indicates the request is missing the model id.
	ErrModelRequired = errors.New("workflow: model id required")
)
