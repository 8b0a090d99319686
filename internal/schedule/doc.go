// Package schedule releases queued items at fixed times of day.
//
// A Scheduler owns one loop goroutine. Cron callbacks and manual RunNow calls
// only enqueue requests for that loop, so firings never overlap: each firing
// requeues stale in-progress items, peeks the FIFO head, claims it, and hands
// it to the upload coordinator. A timer firing that arrives while another is
// running is coalesced into a single waiting request. On Start, items left in
// progress by a previous process are routed through the retry path before the
// first firing.
package schedule
