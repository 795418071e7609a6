// Package bot is the transport-independent command layer.
//
// Every front end (REST, chat socket, MCP) funnels into the same
// Dispatcher: a command name plus string arguments and a resolved
// identity. The dispatcher authorizes the tier, charges the rate
// window, and only then executes the handler. Handlers return a
// Response envelope that each transport adapts to its medium.
//
// The registry is pure data built once at startup; dispatch is a map
// lookup and a function call.
package bot
