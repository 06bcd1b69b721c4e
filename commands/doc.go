// Package commands defines the stratdesk CLI.
//
// Commands
//
//   - serve    Run the HTTP API
//   - migrate  Create or update the database schema
//   - seed     Load the broker, plan, strategy and module catalog
//   - token    Mint a development bearer token
//
// The root command loads .env and the environment before any subcommand
// runs; subcommands open the database themselves.
package commands
