package upload

import "fmt"

// Result is the outcome of one destination. Exactly one of Success and Error
// is set.
type Result struct {
	Success     bool              `json:"success"`
	Destination string            `json:"destination"`
	ArtifactID  string            `json:"artifact_id,omitempty"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewResult builds a result, rejecting a success that carries an error and a
// failure that carries none.
func NewResult(success bool, destination, artifactID, errMsg string, metadata map[string]string) (Result, error) {
	r := Result{
		Success:     success,
		Destination: destination,
		ArtifactID:  artifactID,
		Error:       errMsg,
		Metadata:    metadata,
	}
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	return r, nil
}

// Succeeded builds a success result.
func Succeeded(destination, artifactID string, metadata map[string]string) Result {
	return Result{Success: true, Destination: destination, ArtifactID: artifactID, Metadata: metadata}
}

// Failed builds a failure result. An empty message is replaced so the result
// stays valid.
func Failed(destination, errMsg string) Result {
	if errMsg == "" {
		errMsg = "unknown error"
	}
	return Result{Destination: destination, Error: errMsg}
}

// Validate checks the success/error exclusivity.
func (r Result) Validate() error {
	switch {
	case r.Success && r.Error != "":
		return fmt.Errorf("%w: success with error %q", ErrInvalidResult, r.Error)
	case !r.Success && r.Error == "":
		return fmt.Errorf("%w: failure without error message", ErrInvalidResult)
	}
	return nil
}
