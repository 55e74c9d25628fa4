// Package gep provides the GEP stream messenger protocol.
//
// GEP is communicated between the reader firmware and a host over a single
// byte stream (e.g. serial port). It is a best-effort link layer: there are
// no acknowledgements or retransmissions, but the receiver always recovers
// from corrupted input by waiting for the next start byte.
//
// Every data byte is sent as two self-checking bytes, one per nibble, where
// the low half of each transmitted byte is the complement of the high half.
// Control bytes never satisfy that relation, so they can't be confused with
// data. A frame looks like:
//
//	START | ENC(dest) | ENC(payload)... | (ENC(tagHi) ENC(tagLo))? | END | CRC
//
// END is EndByte for untagged frames and EndWithTagByte for tagged ones. CRC
// is a CRC-8/MAXIM over the decoded destination, payload and tag bytes and is
// sent without encoding.
package gep
