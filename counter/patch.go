package counter

import "fmt"

// PatchOp is the operation every counter patch performs.
const PatchOp = "replace"

// Patch is a targeted write-back of one counter value.
type Patch struct {
	ID    string `json:"id" yaml:"id"`
	Value int64  `json:"value" yaml:"value"`
}

// Path addresses the counter inside the connector configuration.
func (p Patch) Path() string {
	return fmt.Sprintf("/counters/%s", p.ID)
}

// Op returns the patch operation.
func (p Patch) Op() string {
	return PatchOp
}
