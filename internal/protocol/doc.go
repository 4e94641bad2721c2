// Package protocol implements the reflow oven controller wire format.
//
// Commands are two bytes long:
//
//	byte 0: opcode   (1=HeaterControl, 2=Reserve, 3=Release, 4=StatusRequest, 5=Stop)
//	byte 1: argument (HeaterControl only: 0=off, nonzero=on)
//
// Status replies are three bytes long:
//
//	bytes 0-1: temperature, uint16 big-endian
//	byte 2:    flag, 0 or 1
package protocol
