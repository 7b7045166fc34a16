// Package client implements a resilient client for the controller's
// undocumented management API: firmware-family detection, session and
// credential lifecycle, bootstrap synchronization with inventory diffing,
// the realtime updates socket with heartbeat liveness, and governed device
// mutations.
//
// One ProtectClient serves one controller. All session, snapshot and
// governor state is memory-resident and rebuilt on reconnect; nothing is
// persisted across process restarts.
package client
