// Package timeline provides the cooperative scheduler that every part of the
// experience runs on.
//
// A Scheduler is a single-threaded timer queue with a logical clock. Nothing
// fires until Advance is called; Advance fires due timers in deadline order
// (FIFO among equal deadlines) on the calling goroutine. Components express
// their waits as timers instead of goroutines, so a whole presentation can be
// stepped deterministically in tests:
//
//	sched := timeline.NewScheduler(time.Unix(0, 0), 20*time.Millisecond)
//	sched.After(time.Second, func() { fmt.Println("one second later") })
//	sched.Advance(time.Second)
//
// A Scope groups timers so they can be cancelled together, and Guard wraps
// completion callbacks handed to collaborators so that a callback arriving
// after Cancel is silently dropped.
//
// In production a Loop owns the Scheduler, advances it from the wall clock
// and serialises work posted from other goroutines (MQTT handlers, HTTP
// requests) onto the loop goroutine.
//
// # Thread Safety
//
// Scheduler and Scope are not safe for concurrent use. Loop.Post and Loop.Do
// are the only entry points that may be called from other goroutines.
package timeline
