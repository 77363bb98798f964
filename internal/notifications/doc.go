// Package notifications delivers operator notices and staff email.
//
// Service publishes batch summaries and sweep failures to ntfy using the topic
// configured in config.toml, suppressing repeats inside the dedup window, and
// degrades to a no-op when no topic is set. Mailer sends HTML mail over SMTP
// for the alerts engine; an empty SMTP host yields a mailer that drops
// messages.
package notifications
