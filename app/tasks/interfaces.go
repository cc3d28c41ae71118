package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// The HTTP layer enqueues visit recording through it; main starts and stops it.
//
//	scheduler := NewScheduler(catalog, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRecordVisitTask(visit, visitRepo))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
