// Package cli provides the interactive flogger command-line client.
//
// NewApp wires configuration, logging, the session store, the configured
// storage provider (Dropbox over OAuth, S3 or in-memory) and the document
// layers; App.Run serves the OAuth callback endpoint when needed and runs
// the REPL until the user exits.
//
// Key features:
//   - Connect / Disconnect, with a browser hand-off for OAuth providers
//   - List documents and templates, open several documents at once
//   - Add, edit and remove dated entries; edit the pretext
//   - Create and delete documents
//   - Query the tag index by document or tag
//
// See runREPL for the command list.
package cli
