package telemetry

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/dashmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerEntersLowPowerWhenIdle(t *testing.T) {
	f := newFixture(t)
	s := f.sampler(WithActiveModule(ModuleStorage))

	require.True(t, s.Update())
	require.True(t, s.HasChanges())

	f.clock.Advance(idleTimeout - time.Millisecond)
	assert.False(t, s.Update())
	assert.False(t, s.LowPower())

	f.clock.Advance(2 * time.Millisecond)
	assert.False(t, s.Update())
	assert.True(t, s.LowPower())
}

func TestSamplerChangeLeavesLowPower(t *testing.T) {
	f := newFixture(t)
	s := f.sampler(WithActiveModule(ModuleStorage))
	s.Update()
	s.HasChanges()

	f.clock.Advance(idleTimeout + time.Millisecond)
	s.Update()
	require.True(t, s.LowPower())

	f.write("meminfo", "MemTotal: 100000 kB\nMemAvailable: 40000 kB\n")
	f.clock.Advance(lowPowerFactor * time.Second)
	assert.True(t, s.Update())
	assert.False(t, s.LowPower())

	used, total, pct := s.Memory()
	assert.Equal(t, uint64(60000), used)
	assert.Equal(t, uint64(100000), total)
	assert.Equal(t, uint8(60), pct)
}

func TestSamplerHomeModuleIdle(t *testing.T) {
	f := newFixture(t)
	s := f.sampler()

	// prime every reader: cpu and forced storage, then memory
	s.Update()
	s.Update()
	s.Update()
	s.HasChanges()

	f.clock.Advance(idleTimeout + time.Millisecond)
	s.Update()
	assert.True(t, s.LowPower())
}

func TestSamplerUserActivity(t *testing.T) {
	f := newFixture(t)
	s := f.sampler(WithActiveModule(ModuleStorage))
	s.Update()
	f.clock.Advance(idleTimeout)
	s.Update()
	require.True(t, s.LowPower())

	s.NotifyUserActivity()
	assert.Equal(t, PriorityHigh, s.Priority())
	assert.False(t, s.LowPower())

	f.clock.Advance(priorityDecay - time.Millisecond)
	assert.Equal(t, PriorityHigh, s.Priority())

	f.clock.Advance(time.Millisecond)
	assert.Equal(t, PriorityMedium, s.Priority())
}

func TestSamplerSetPriorityCancelsDecay(t *testing.T) {
	f := newFixture(t)
	s := f.sampler()

	s.NotifyUserActivity()
	s.SetPriority(PriorityHigh)
	f.clock.Advance(10 * priorityDecay)
	assert.Equal(t, PriorityHigh, s.Priority())

	s.SetPriority(Priority(9))
	assert.Equal(t, PriorityHigh, s.Priority())
	s.SetPriority(Priority(-1))
	assert.Equal(t, PriorityLow, s.Priority())
}

func TestSamplerRedrawFlag(t *testing.T) {
	f := newFixture(t)
	s := f.sampler(WithActiveModule(ModuleStorage))

	assert.True(t, s.Update())
	assert.True(t, s.Update(), "unconsumed changes still request a redraw")

	assert.True(t, s.HasChanges())
	assert.False(t, s.HasChanges())
	assert.False(t, s.Update())

	s.SetAnimating(true)
	assert.True(t, s.Update())
	assert.False(t, s.HasChanges(), "animation does not fake data changes")

	s.SetAnimating(false)
	assert.False(t, s.Update())
}

func TestSamplerReportsLoadEveryTick(t *testing.T) {
	f := newFixture(t)
	sink := &countingSink{}
	s := f.sampler(WithPerfSink(sink), WithActiveModule(ModuleStorage))

	for i := 0; i < 10; i++ {
		s.Update()
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 10, sink.calls)
	assert.InDelta(t, 50.0, sink.memory, 0.001)
}

func TestSamplerAccessors(t *testing.T) {
	f := newFixture(t)
	s := f.sampler(WithActiveModule(ModuleCPU))
	s.Update()

	usage, temp := s.CPU()
	assert.Zero(t, usage)
	assert.Equal(t, uint8(48), temp)

	used, total, pct := s.Storage()
	assert.Equal(t, uint64(2000), used)
	assert.Equal(t, uint64(4000), total)
	assert.Equal(t, uint8(50), pct)

	assert.Equal(t, 2, s.CPUCoreCount())
	core, ok := s.CPUCore(1)
	assert.True(t, ok)
	assert.Equal(t, 1.0, core)
	_, ok = s.CPUCore(2)
	assert.False(t, ok)
	_, ok = s.CPUCore(-1)
	assert.False(t, ok)

	s.SetActiveModule(ModuleLyrics)
	assert.Equal(t, ModuleLyrics, s.ActiveModule())
}

func TestSamplerSnapshot(t *testing.T) {
	f := newFixture(t)
	s := f.sampler(WithActiveModule(ModuleCPU))
	s.Update()

	snap := s.Snapshot()
	assert.Equal(t, f.clock.Now(), snap.Timestamp)
	assert.Equal(t, "/", snap.Storage.Path)
	assert.Equal(t, uint8(50), snap.Storage.Percent)
	assert.Equal(t, uint8(50), snap.Memory.Percent)
	assert.Len(t, snap.CPU.Cores, 2)

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "medium", decoded["priority"])
	assert.Equal(t, "cpu", decoded["active_module"])
	assert.Equal(t, false, decoded["low_power"])
}

func TestSnapshotDecodesBack(t *testing.T) {
	f := newFixture(t)
	s := f.sampler(WithActiveModule(ModuleStorage))
	s.Update()
	s.NotifyUserActivity()

	snap := s.Snapshot()
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, snap.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, PriorityHigh, decoded.Priority)
	assert.Equal(t, ModuleStorage, decoded.ActiveModule)
	assert.Equal(t, snap.CPU, decoded.CPU)
	assert.Equal(t, snap.Memory, decoded.Memory)
	assert.Equal(t, snap.Storage, decoded.Storage)
}

func TestUnmarshalTextNames(t *testing.T) {
	for p := PriorityLow; p <= PriorityHigh; p++ {
		var got Priority
		require.NoError(t, got.UnmarshalText([]byte(p.String())))
		assert.Equal(t, p, got)
	}

	for m := ModuleHome; m.Valid(); m++ {
		var got Module
		require.NoError(t, got.UnmarshalText([]byte(m.String())))
		assert.Equal(t, m, got)
	}

	var p Priority
	err := json.Unmarshal([]byte(`"urgent"`), &p)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrUnknownPriority))

	var m Module
	err = json.Unmarshal([]byte(`"module(9)"`), &m)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrUnknownModule))
}

func TestSamplerConcurrentUse(t *testing.T) {
	f := newFixture(t)
	s := f.sampler()

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			f.clock.Advance(50 * time.Millisecond)
			s.Update()
		}
		close(done)
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				s.NotifyUserActivity()
				s.SetActiveModule(Module(i))
				_ = s.Snapshot()
				_, _, _ = s.Memory()
				s.HasChanges()
			}
		}(i)
	}

	wg.Wait()
	s.NotifyUserActivity()
	assert.Equal(t, PriorityHigh, s.Priority())
	assert.False(t, s.LowPower())
}
