// Package tasks holds the scheduled jobs the bot runs: the achievement poll
// cycle, the end-of-day overview, and the presence rotation. Each task is a
// plain Run method suitable for registration with the scheduler.
package tasks
