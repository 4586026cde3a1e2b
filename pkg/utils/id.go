package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateJobID generates a job ID with a timestamp prefix
func GenerateJobID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("job-%s-%s", timestamp, strings.SplitN(uuid.NewString(), "-", 2)[0])
}

// IsJobID reports whether id has the shape produced by GenerateJobID.
func IsJobID(id string) bool {
	parts := strings.Split(id, "-")
	return len(parts) == 4 && parts[0] == "job" && len(parts[1]) == 8 && len(parts[2]) == 6 && len(parts[3]) == 8
}
