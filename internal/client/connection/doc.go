// Package connection owns the OAuth2 authorization-code + PKCE grant against
// the storage provider.
//
// The component that starts the grant (BeginConnection, usually the REPL) is
// not the one that receives the redirect (the loopback callback endpoint).
// The hand-off goes through the shared session store and the Manager's
// observers: CompleteConnectionFromRedirect writes the token, then wakes
// anything blocked in AwaitConnection.
//
// State machine:
//
//	Disconnected --BeginConnection--> AwaitingRedirect
//	AwaitingRedirect --redirect ok--> Connected
//	AwaitingRedirect --redirect failed--> Disconnected
//	Connected --refresh failed / ClearConnection--> Disconnected
package connection
