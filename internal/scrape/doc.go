// Package scrape runs one single-shot extraction: open a browser session, drive the
// page to readiness, extract and assemble the record, then persist it. The session is
// released on every exit path and terminal failures leave a diagnostic screenshot.
package scrape
