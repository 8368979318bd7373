// Package ids generates sortable identifiers for jobs and staged objects.
package ids

import (
	"strings"

	"github.com/segmentio/ksuid"
)

const jobPrefix = "job_"

// NewJobID returns a time-ordered job id such as "job_2H4q...".
func NewJobID() string {
	return jobPrefix + ksuid.New().String()
}

// ValidJobID reports whether id has the shape NewJobID produces.
func ValidJobID(id string) bool {
	raw, ok := strings.CutPrefix(id, jobPrefix)
	if !ok {
		return false
	}
	_, err := ksuid.Parse(raw)
	return err == nil
}
