// Command appdl is the command-line client for the appdl download daemon.
// Every command except daemon and config talks to a running daemon over its
// HTTP API; daemon runs the daemon itself in the foreground.
package main
