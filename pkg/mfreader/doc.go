// Package mfreader implements a MIFARE card reader over GEP.
//
// The reader device (Firmware) reports card presence with broadcast
// messages and executes tagged commands, answering with the same tag.
// The host side (Reader) sends one command at a time and correlates the
// response by its tag.
//
// Message payloads start with a code byte:
//
//	host -> device:  command code, arguments...
//	device -> host:  1 (OK), result...
//	                 2 (failed)
//	                 3 (card detected), card type, block count, UID...
//	                 4 (card removed)
package mfreader
