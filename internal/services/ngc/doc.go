// Package ngc wraps the NGC batch CLI: submitting jobs and fetching job
// details by parsing the CLI's job information output.
package ngc
