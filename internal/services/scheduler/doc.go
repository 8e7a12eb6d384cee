// Package scheduler runs the bot's periodic tasks (achievement polls, daily
// overview, presence rotation) on a shared worker pool. Definitions are cron
// specs or fixed intervals; a task's panic or error is contained at the task
// boundary and recorded in the run history.
package scheduler
