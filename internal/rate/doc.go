// Package rate implements Redis fixed-window counters: INCR, then EXPIRE on
// the first hit of a window. The server uses it to throttle development
// logins and websocket upgrades per client address.
package rate
