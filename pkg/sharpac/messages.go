// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Messages holds the fixed literals sent during the handshake and while polling.
// Each literal is stored without its checksum byte; one byte is appended and
// stamped with the frame checksum when the literal is transmitted.
type Messages struct {
	InitProbe    []byte // sent until the unit answers with 0x02
	InitFollowUp []byte // step 0 -> 1
	Subscribe    []byte // step 1 -> 2
	Subscribe2   []byte // step 3 -> 4
	GetState     []byte // step 4 -> 5, answered with a 14 byte mode frame
	GetStatus    []byte // step 5 -> 6 and periodic poll, answered with an 18 byte status frame
	Connected    []byte // step 6 -> 7
}

// DefaultMessages returns the handshake literals for the indoor unit adapter
// port. They are reconstructed from the discriminators each step expects, not
// copied from a vendor table; units that need other bytes take them from the
// messages: section of the config file.
func DefaultMessages() Messages {
	return Messages{
		InitProbe:    []byte{0x12, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		InitFollowUp: []byte{0x02, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00},
		Subscribe:    []byte{0x02, 0xFF, 0xFF, 0x01, 0x01, 0x00, 0x01},
		Subscribe2:   []byte{0x03, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00},
		GetState:     []byte{0xDD, 0x0B, 0xFB, 0x61, 0x00, 0x00, 0x00},
		GetStatus:    []byte{0xDD, 0x0B, 0xFB, 0x62, 0x00, 0x00, 0x00},
		Connected:    []byte{0xDD, 0x0B, 0xFB, 0x60, 0x01, 0x00, 0x00},
	}
}

// Merge returns m with every empty literal replaced by the one from base.
func (m Messages) Merge(base Messages) Messages {
	pick := func(a, b []byte) []byte {
		if len(a) == 0 {
			return b
		}
		return a
	}
	return Messages{
		InitProbe:    pick(m.InitProbe, base.InitProbe),
		InitFollowUp: pick(m.InitFollowUp, base.InitFollowUp),
		Subscribe:    pick(m.Subscribe, base.Subscribe),
		Subscribe2:   pick(m.Subscribe2, base.Subscribe2),
		GetState:     pick(m.GetState, base.GetState),
		GetStatus:    pick(m.GetStatus, base.GetStatus),
		Connected:    pick(m.Connected, base.Connected),
	}
}

// literalFrame builds the transmitted frame for a literal: the literal plus
// one checksum byte.
func literalFrame(literal []byte) *Frame {
	buf := make([]byte, len(literal)+1)
	copy(buf, literal)
	f := NewFrame(buf)
	f.StampChecksum()
	return f
}

// ParseHexBytes parses a literal written as hex, with optional spaces, commas
// or 0x prefixes ("dd 0b fb", "0xDD,0x0B").
func ParseHexBytes(s string) ([]byte, error) {
	cleaned := strings.NewReplacer("0x", "", "0X", "", ",", " ", ":", " ").Replace(s)
	cleaned = strings.Join(strings.Fields(cleaned), "")
	if cleaned == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex literal %q: %w", s, err)
	}
	return b, nil
}
