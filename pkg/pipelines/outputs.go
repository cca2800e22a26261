package pipelines

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/scottdavis/inferpipe/pkg/errors"
)

// taskOutputs maps task names to the output keys every result for that
// task must carry. It is populated by task packages at init time or by
// applications before building pipelines.
var taskOutputs = struct {
	mu   sync.RWMutex
	keys map[string][]string
}{keys: make(map[string][]string)}

// RegisterTaskOutputs declares the required output keys for a task.
// Re-registering a task replaces its key set.
func RegisterTaskOutputs(task string, keys []string) {
	taskOutputs.mu.Lock()
	defer taskOutputs.mu.Unlock()
	taskOutputs.keys[task] = append([]string(nil), keys...)
}

// UnregisterTaskOutputs removes a task's output declaration.
func UnregisterTaskOutputs(task string) {
	taskOutputs.mu.Lock()
	defer taskOutputs.mu.Unlock()
	delete(taskOutputs.keys, task)
}

// TaskOutputKeys returns the registered output keys for a task. The
// second return is false for unregistered tasks.
func TaskOutputKeys(task string) ([]string, bool) {
	taskOutputs.mu.RLock()
	defer taskOutputs.mu.RUnlock()
	keys, ok := taskOutputs.keys[task]
	if !ok {
		return nil, false
	}
	return append([]string(nil), keys...), true
}

// checkOutput validates a postprocess result against the task's
// registered keys. An unregistered task only warns; a registered task
// with missing keys is a validation error naming exactly the absent
// keys.
func checkOutput(task string, output map[string]any, logger *slog.Logger) error {
	keys, ok := TaskOutputKeys(task)
	if !ok {
		logger.Warn("output keys are not registered for task, skipping validation", "task", task)
		return nil
	}

	var missing []string
	for _, k := range keys {
		if _, present := output[k]; !present {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return errors.WithFields(
			errors.New(errors.ValidationFailed, fmt.Sprintf("expected output keys are %v, those %v are missing", keys, missing)),
			errors.Fields{
				"task":          task,
				"expected_keys": keys,
				"missing_keys":  missing,
			},
		)
	}
	return nil
}
