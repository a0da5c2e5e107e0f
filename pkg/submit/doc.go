// Package submit packages a completed submission state and hands it to the
// owning form's submit endpoint. Preview mode never touches the network: the
// collected values are logged and returned to the caller. Embed mode stamps
// request metadata at dispatch time, so a retry after a failure always
// carries a fresh timestamp.
package submit
