package visibility

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// batchTask is one fixed-size slice of the query list
type batchTask struct {
	TaskID int
	Start  int
	End    int
}

// batchResult carries the outcome of one task
type batchResult struct {
	TaskID int
	Error  error
}

// queryBatched evaluates the predictor over all pairs in chunks of at most
// batchSize, spread over numWorkers goroutines. Each chunk writes its own
// disjoint range of the result, so the output does not depend on chunking
// or scheduling.
func queryBatched(pred Predictor, points, dirs []core.Vec3, batchSize, numWorkers int) ([]Score, error) {
	n := len(dirs)
	scores := make([]Score, n)
	if n == 0 {
		return scores, nil
	}
	if batchSize <= 0 {
		batchSize = n
	}
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	numTasks := (n + batchSize - 1) / batchSize
	numWorkers = min(numWorkers, numTasks)

	taskQueue := make(chan batchTask, numTasks)
	resultQueue := make(chan batchResult, numTasks)
	for i := 0; i < numTasks; i++ {
		start := i * batchSize
		taskQueue <- batchTask{TaskID: i, Start: start, End: min(start+batchSize, n)}
	}
	close(taskQueue)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskQueue {
				resultQueue <- runBatch(pred, points, dirs, scores, task)
			}
		}()
	}
	wg.Wait()
	close(resultQueue)

	// Report the failure of the lowest task so errors are deterministic
	var firstErr error
	firstID := numTasks
	for result := range resultQueue {
		if result.Error != nil && result.TaskID < firstID {
			firstID = result.TaskID
			firstErr = result.Error
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return scores, nil
}

func runBatch(pred Predictor, points, dirs []core.Vec3, scores []Score, task batchTask) batchResult {
	out, err := pred.Predict(points[task.Start:task.End], dirs[task.Start:task.End])
	if err != nil {
		return batchResult{TaskID: task.TaskID, Error: fmt.Errorf("visibility batch %d [%d:%d]: %w", task.TaskID, task.Start, task.End, err)}
	}
	if len(out) != task.End-task.Start {
		return batchResult{TaskID: task.TaskID, Error: fmt.Errorf("%w: predictor returned %d scores for %d queries", ErrShapeMismatch, len(out), task.End-task.Start)}
	}
	copy(scores[task.Start:task.End], out)
	return batchResult{TaskID: task.TaskID}
}
