// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rng.Read(b)
	return b
}

func randomState(rng *rand.Rand) DeviceState {
	return DeviceState{
		Power:       rng.Intn(2) == 1,
		Mode:        PowerModes[rng.Intn(len(PowerModes))],
		Fan:         FanModes[rng.Intn(len(FanModes))],
		Horizontal:  HorizontalPositions[rng.Intn(len(HorizontalPositions))],
		Vertical:    VerticalPositions[rng.Intn(len(VerticalPositions))],
		Temperature: MinTemperature + rng.Intn(MaxTemperature-MinTemperature+1),
		Ion:         rng.Intn(2) == 1,
		Preset:      Presets[rng.Intn(len(Presets))],
	}
}

// TestFuzzChecksum_StampValidate stamps random buffers and corrupts one byte
func TestFuzzChecksum_StampValidate(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		raw := randomBytes(rng, 2+rng.Intn(40))
		f := NewFrame(raw)
		f.StampChecksum()
		require.True(t, f.ValidChecksum(), "round %d: % X", i, f.Bytes())

		if f.Len() < 3 {
			continue
		}
		pos := 1 + rng.Intn(f.Len()-2)
		f.data[pos] += byte(1 + rng.Intn(255))
		require.False(t, f.ValidChecksum(), "round %d: corrupted byte %d", i, pos)
	}
}

// TestFuzzCommand_RandomStates renders random states and checks the frames
func TestFuzzCommand_RandomStates(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		s := randomState(rng)
		f := BuildCommand(s)

		require.Equal(t, CommandSize, f.Len())
		require.True(t, f.ValidChecksum())
		require.Empty(t, ValidateFrame(f), s.String())

		v, ok := AsMode(f)
		require.True(t, ok)
		assert.Equal(t, s.Mode, v.PowerMode())
		assert.Equal(t, s.Horizontal, v.SwingHorizontal())
		assert.Equal(t, s.Vertical, v.SwingVertical())
		assert.Equal(t, s.Preset, v.Preset())
	}
}

// TestFuzzReader_RandomBytes feeds random bytes to the reader and checks it
// always makes progress
func TestFuzzReader_RandomBytes(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		ft := newFakeTransport()
		ft.push(randomBytes(rng, 1+rng.Intn(256))...)
		r := NewFrameReader(ft)

		// every short read streak ends in a resync, so the stream drains
		limit := (maxShortReads + 1) * 300
		for n := 0; r.Buffered() > 0; n++ {
			require.Less(t, n, limit, "round %d: reader stalled", i)
			f := r.ReadFrame()
			require.LessOrEqual(t, f.Len(), MaxFrameSize)
		}
	}
}

// TestFuzzEngine_RandomTraffic drives an engine with random frames, valid
// frames and random control calls without panicking
func TestFuzzEngine_RandomTraffic(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	e, ft, _ := newTestEngine()
	for i := 0; i < rounds; i++ {
		switch rng.Intn(6) {
		case 0:
			ft.push(randomBytes(rng, 1+rng.Intn(20))...)
		case 1:
			ft.push(handshakeReplies()[rng.Intn(8)]...)
		case 2:
			ft.push(statusFrame(16 + rng.Intn(16))...)
		case 3:
			ft.advance(time.Duration(rng.Intn(15)) * time.Second)
		case 4:
			e.Control(func(s *DeviceState) { *s = randomState(rng) })
		case 5:
			e.ControlTemperature(rng.Intn(50))
		}
		e.Service()

		require.GreaterOrEqual(t, e.Step(), 0)
		require.LessOrEqual(t, e.Step(), StepConnected)
		s := e.State()
		require.GreaterOrEqual(t, s.Temperature, MinTemperature)
		require.LessOrEqual(t, s.Temperature, MaxTemperature)
	}

	for _, tx := range ft.tx {
		f := NewFrame(tx)
		if f.Len() > 1 {
			require.True(t, f.ValidChecksum(), "% X", tx)
		}
	}
}
