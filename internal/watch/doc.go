// Package watch turns filesystem change notifications into rebuild runs.
//
// A [Watcher] observes the directories behind a [pattern.Set] and emits an
// [Event] for every change to a matching file. A [Reactor] consumes those
// events, prints a status line for each, and hands the configured
// [action.Action] to a bounded [Dispatcher] so the event loop keeps
// listening while builds run. An optional [Debouncer] coalesces bursts.
package watch
