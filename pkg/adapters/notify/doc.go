// Package notify provides ports.Notifier implementations that deliver
// completed lead records: email through SendGrid or SES, queues through SQS
// or a Redis list, and a log-only stub. Retrying and Fanout compose them.
package notify
