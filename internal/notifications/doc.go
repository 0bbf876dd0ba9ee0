// Package notifications posts run milestones to an ntfy topic.
//
// The Notifier is an events.Sink. It announces a run when it starts and
// reports the tally when it finishes. Without a configured topic NewNotifier
// returns nil and the encode command leaves it out.
package notifications
