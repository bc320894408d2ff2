package config

// TaskConfig holds task-specific configuration for a single task UUID.
// This allows tuning agreement thresholds per task without separate
// invocations.
type TaskConfig struct {
	// MinimumRedundancy overrides the global minimum redundancy for this
	// task. If zero, the global value is used.
	MinimumRedundancy int `yaml:"minimum_redundancy,omitempty"`

	// PassThreshold overrides the global pass threshold for this task.
	// If zero, the global value is used.
	PassThreshold int `yaml:"pass_threshold,omitempty"`
}

// File represents the structure of the .tagquorum configuration file.
type File struct {
	// Tasks maps task UUIDs to their task-specific configurations.
	Tasks map[string]TaskConfig `yaml:"tasks,omitempty"`

	// Defaults contains default task configuration applied to all tasks
	// unless overridden in the task-specific configuration.
	Defaults TaskConfig `yaml:"defaults,omitempty"`
}

// GetTaskConfig returns the configuration for a specific task UUID.
// It merges the task-specific configuration with defaults.
func (cf *File) GetTaskConfig(taskUUID string) TaskConfig {
	result := cf.Defaults

	if tc, ok := cf.Tasks[taskUUID]; ok {
		if tc.MinimumRedundancy != 0 {
			result.MinimumRedundancy = tc.MinimumRedundancy
		}
		if tc.PassThreshold != 0 {
			result.PassThreshold = tc.PassThreshold
		}
	}

	return result
}
