// Package alerts evaluates alert rules against polled service health and
// delivers notifications to Teams, Slack or generic HTTP webhooks when a rule
// fires or resolves.
package alerts
