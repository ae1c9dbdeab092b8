// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

// CalculateChecksum computes the frame checksum for a complete frame buffer:
// the two's complement of the byte sum strictly between the first and the last
// byte, modulo 256. Frames shorter than two bytes have nothing to sum.
func CalculateChecksum(data []byte) uint8 {
	var sum uint8
	for i := 1; i < len(data)-1; i++ {
		sum += data[i]
	}
	return -sum
}

// CalculateCommandNibble computes byte 12 of a command frame: a XOR fold over
// the nibbles of bytes 4..11 seeded with 0x3, inverted, placed in the high
// nibble with the low nibble fixed to 0x1.
func CalculateCommandNibble(data []byte) uint8 {
	acc := uint8(0x3)
	for i := 4; i < 12 && i < len(data); i++ {
		acc ^= data[i] & 0x0F
		acc ^= (data[i] >> 4) & 0x0F
	}
	return (0xF-(acc&0x0F))<<4 | 0x01
}
