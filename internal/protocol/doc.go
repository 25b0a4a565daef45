// Package protocol owns the mesh streaming wire contract: the framed
// envelope, the message-type tagging, and the payload codecs.
//
// Ownership boundary:
// - envelope framing and version/size gates
// - message type discriminants
// - MeshFrame payload encode/decode (binary and JSON)
package protocol
